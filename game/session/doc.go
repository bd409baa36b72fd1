// Package session provides session management for the Cube Blast game.
//
// The session package implements:
//   - Thread-safe session storage and retrieval
//   - Unique session ID generation
//   - Session persistence to files or Redis
//   - Eviction of idle sessions
//
// Core Types:
//
// Manager is the main session manager that handles all session operations.
// Each session owns its own GameEngine; engines are created with the options
// passed through WithEngineOptions (tuning, level loader).
//
// Session Identifiers:
//
// Sessions use 4-character hex IDs for easy reference. IDs are matched
// case-insensitively.
//
// Persistence:
//
// A SessionPersistence stores an engine snapshot (level, cells, health,
// remaining moves, outcome and turn history) per session. FilePersistence
// writes one JSON file per session; RedisPersistence stores the same JSON
// under a key prefix with an optional TTL. Sessions missing from memory are
// restored from persistence on first access.
//
// Usage:
//
//	persistence, err := session.NewFilePersistence("sessions")
//	if err != nil {
//		log.Fatal(err)
//	}
//	manager := session.NewManagerWithPersistence(persistence,
//		session.WithEngineOptions(engine.WithLoader(levels)))
//
//	sess, err := manager.Create(ctx, "", levels.GetDefault())
package session
