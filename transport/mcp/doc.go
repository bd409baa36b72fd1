// Package mcp exposes the Cube Blast REST API as Model Context Protocol tools.
//
// Client is a thin proxy: every tool call becomes one or two REST requests
// and the JSON response is rendered as text an agent can read.
//
// MCP Tools:
//   - create_session, list_sessions, get_session
//   - board_state: board rendered with row labels (y 0 is the bottom row)
//   - tap: tap a cell, reports the turn, events summary and settled board
//   - reset_level, change_level
//   - turn_history: paginated turn log
//   - list_levels
//   - game_instructions: rules and strategy notes
//   - describe_cell: kind, color, health and what tapping the cell does
//
// Transport Modes:
//
// The MCP server returned by GetMCPServer can be served over stdio
// (server.ServeStdio) or mounted behind an HTTP endpoint that forwards
// JSON-RPC messages to HandleMessage.
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	if err := server.ServeStdio(client.GetMCPServer()); err != nil {
//		log.Fatal(err)
//	}
package mcp
