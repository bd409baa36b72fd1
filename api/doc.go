// Package api provides the HTTP REST API for the Cube Blast game.
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session ({"level": 2}, default level when omitted)
//   - GET /api/sessions - List sessions (?sort=created|accessed&order=asc|desc&limit=N)
//   - GET /api/sessions/{id} - Get a session with its board
//   - DELETE /api/sessions/{id} - Delete a session
//
// Game Operations:
//   - GET /api/sessions/{id}/state - Current board state
//   - POST /api/sessions/{id}/tap - Tap a cell ({"x": 1, "y": 0}, row 0 is the bottom)
//   - POST /api/sessions/{id}/reset - Restart the current level
//   - POST /api/sessions/{id}/level - Switch level ({"level": 3})
//   - GET /api/sessions/{id}/history - Turn history (?page=1&limit=20&order=desc)
//
// Levels:
//   - GET /api/levels - List stored levels
//   - GET /api/levels/{n} - Get a level ("3" or "level_03.json")
//   - POST /api/levels - Validate and store a level
//
// Other:
//   - GET /ws?session={id} - WebSocket stream of board updates and turn events
//   - GET /health - Liveness probe
//
// Errors are returned as {"error": "..."}: unknown sessions and levels map to
// 404, taps on a finished level to 409 and invalid levels to 400.
//
// Turns, resets and level changes are broadcast to the session's WebSocket
// clients after the service call returns.
package api
