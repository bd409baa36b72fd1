// Package service provides the business logic layer for the Cube Blast game.
//
// The service package implements:
//   - Multi-session game management
//   - Level loading and storage
//   - Turn processing with event collection
//   - Turn history pagination
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval, and lifecycle.
// LevelManager loads, lists and stores level files.
// EventPublisher receives every completed turn for fan-out to other systems.
//
// Architecture:
//
// The service layer sits between the transport layer (HTTP/WebSocket/MCP) and
// the game engine. Each session owns a GameEngine with its own board; taps on
// one session are serialized by the board, so the service only takes its lock
// exclusively when sessions are created or deleted.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	levelMgr, _ := config.NewManager("levels")
//	gameService := service.NewGameService(sessionMgr, levelMgr,
//		service.WithLogger(logger))
//
//	info, err := gameService.CreateSession(ctx, 1)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Tap(ctx, info.ID, engine.Position{X: 2, Y: 0})
package service
