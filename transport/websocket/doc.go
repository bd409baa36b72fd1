// Package websocket pushes live board updates to browser clients.
//
// The package uses a hub-and-spoke model: a central Hub owns every connection
// and a single goroutine (Run) handles registration and broadcasts. Each
// client connection gets a read pump, which only keeps the connection alive,
// and a write pump that delivers frames and pings.
//
// Clients join a session through the HTTP layer (/ws?session=ab12) and only
// receive frames for that session:
//
//	{"session_id":"ab12","event":"state_update","board":{...}}
//	{"session_id":"ab12","event":"turn","turn":{...},"events":[...],"board":{...}}
//
// Turn frames carry the board events in emission order so a client can
// replay matches, drops and refills without polling.
//
// Usage:
//
//	hub := websocket.NewHub(logger)
//	go hub.Run(ctx)
//
//	hub.ServeWS(w, r, sessionID, state)
//	hub.BroadcastTurn(sessionID, result)
package websocket
