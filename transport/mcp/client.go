package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/wricardo/cube-blast-game/game/engine"
	"github.com/wricardo/cube-blast-game/game/service"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"Cube Blast",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Cube Blast - MCP Interface

This is a thin client that proxies all requests to the REST API server.

GAME OBJECTIVE:
Clear every obstacle (boxes, stones, vases) before you run out of moves by tapping groups of
two or more same-colored cubes.

AVAILABLE TOOLS:
- create_session: Start a new game on a level
- list_sessions / get_session: Inspect sessions
- board_state: Show the board (row 0 is the bottom)
- tap: Tap a cell - requires intent explanation
- reset_level: Restart the current level
- change_level: Switch to another level
- turn_history: View past turns
- list_levels: List available levels
- game_instructions: Full rules and strategy notes
- describe_cell: Detailed info about a single cell

NOTE: The 'intent' parameter on tap serves as rubber duck debugging - explain your reasoning!`),
	)

	c.registerTools()
}

func sessionIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Session ID",
	}
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	// Session management
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new game session, optionally on a specific level",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"level": map[string]interface{}{
					"type":        "integer",
					"description": "Level number to play (optional, defaults to the first level)",
				},
			},
		},
	}, c.handleCreateSession)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active game sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListSessions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session including its board",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleGetSession)

	// Game operations
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "board_state",
		Description: "Get the current board, remaining moves and goals",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleBoardState)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "tap",
		Description: "Tap a cell. Tapping a group of 2+ same-colored cubes or a rocket/bomb spends one move.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "Column, 0 is the leftmost",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Row, 0 is the bottom",
				},
				"intent": map[string]interface{}{
					"type":        "string",
					"description": "Brief explanation of the intent behind this tap (serves as a rubber duck to help explain your reasoning)",
				},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleTap)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "reset_level",
		Description: "Restart the current level with its original layout and move count",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
			},
			Required: []string{"session_id"},
		},
	}, c.handleReset)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "change_level",
		Description: "Switch the session to another level",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"level": map[string]interface{}{
					"type":        "integer",
					"description": "Level number",
				},
			},
			Required: []string{"session_id", "level"},
		},
	}, c.handleChangeLevel)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "turn_history",
		Description: "Get turn history for a session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"page": map[string]interface{}{
					"type":        "integer",
					"description": "Page number",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Items per page",
				},
				"order": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"asc", "desc"},
					"description": "Oldest first (asc) or newest first (desc, default)",
				},
			},
			Required: []string{"session_id"},
		},
	}, c.handleTurnHistory)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_levels",
		Description: "List available levels",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListLevels)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "game_instructions",
		Description: "Get comprehensive game instructions and rules",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleGameInstructions)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "describe_cell",
		Description: "Get detailed information about a single cell: tile kind, color, health, group size state and what tapping it does.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": sessionIDProperty(),
				"x": map[string]interface{}{
					"type":        "integer",
					"description": "Column, 0 is the leftmost",
				},
				"y": map[string]interface{}{
					"type":        "integer",
					"description": "Row, 0 is the bottom",
				},
			},
			Required: []string{"session_id", "x", "y"},
		},
	}, c.handleDescribeCell)
}

// GetMCPServer returns the underlying MCP server for serving
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// Helper methods for API calls

func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}
	return nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	if args, ok := request.Params.Arguments.(map[string]interface{}); ok {
		return args
	}
	return map[string]interface{}{}
}

// intArg reads a JSON number argument
func intArg(args map[string]interface{}, name string) (int, bool) {
	switch v := args[name].(type) {
	case float64:
		return int(v), true
	case int:
		return v, true
	}
	return 0, false
}

func sessionPath(sessionID, suffix string) string {
	return "/api/sessions/" + url.PathEscape(sessionID) + suffix
}

// Tool handlers

func (c *Client) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	body := map[string]int{}
	if level, ok := intArg(arguments(request), "level"); ok {
		body["level"] = level
	}

	var session service.SessionInfo
	if err := c.apiCall(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result := fmt.Sprintf("Created session: %s\nLevel: %d\n\n%s", session.ID, session.LevelNumber, formatBoard(session.Board))
	return mcp.NewToolResultText(result), nil
}

func (c *Client) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var response struct {
		Count    int                   `json:"count"`
		Sessions []service.SessionInfo `json:"sessions"`
	}
	if err := c.apiCall(ctx, "GET", "/api/sessions", nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Active Sessions (%d):\n\n", response.Count)
	for _, s := range response.Sessions {
		fmt.Fprintf(&b, "- %s (Level: %d, Outcome: %s, Turns: %d, Created: %s)\n",
			s.ID, s.LevelNumber, s.Outcome, s.TurnsPlayed, s.CreatedAt.Format("15:04:05"))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var session service.SessionInfo
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, ""), nil, &session); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatSessionInfo(&session)), nil
}

func (c *Client) handleBoardState(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var state engine.BoardState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatBoard(&state)), nil
}

func (c *Client) handleTap(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required"), nil
	}
	// intent is only there for the caller's benefit

	var result service.TapResult
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/tap"), map[string]int{"x": x, "y": y}, &result); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatTapResult(&result)), nil
}

func (c *Client) handleReset(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessionID, _ := arguments(request)["session_id"].(string)

	var response struct {
		Message string             `json:"message"`
		State   *engine.BoardState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/reset"), nil, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatBoard(response.State))), nil
}

func (c *Client) handleChangeLevel(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	level, ok := intArg(args, "level")
	if !ok {
		return mcp.NewToolResultError("level is required"), nil
	}

	var response struct {
		Message string             `json:"message"`
		State   *engine.BoardState `json:"state"`
	}
	if err := c.apiCall(ctx, "POST", sessionPath(sessionID, "/level"), map[string]int{"level": level}, &response); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("%s\n\n%s", response.Message, formatBoard(response.State))), nil
}

func (c *Client) handleTurnHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)

	query := url.Values{}
	if page, ok := intArg(args, "page"); ok {
		query.Set("page", fmt.Sprint(page))
	}
	if limit, ok := intArg(args, "limit"); ok {
		query.Set("limit", fmt.Sprint(limit))
	}
	if order, ok := args["order"].(string); ok && order != "" {
		query.Set("order", order)
	}
	path := sessionPath(sessionID, "/history")
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var history service.HistoryResponse
	if err := c.apiCall(ctx, "GET", path, nil, &history); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(formatHistory(&history)), nil
}

func (c *Client) handleListLevels(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var levels []service.LevelInfo
	if err := c.apiCall(ctx, "GET", "/api/levels", nil, &levels); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	b.WriteString("Available Levels:\n\n")
	for _, level := range levels {
		fmt.Fprintf(&b, "• Level %d (%s)\n  Grid: %dx%d, Moves: %d, Goals: %s\n\n",
			level.LevelNumber, level.Filename, level.Width, level.Height, level.MoveCount, formatGoals(level.Goals))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (c *Client) handleGameInstructions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(instructions), nil
}

func (c *Client) handleDescribeCell(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)
	sessionID, _ := args["session_id"].(string)
	x, okX := intArg(args, "x")
	y, okY := intArg(args, "y")
	if !okX || !okY {
		return mcp.NewToolResultError("x and y are required"), nil
	}

	var state engine.BoardState
	if err := c.apiCall(ctx, "GET", sessionPath(sessionID, "/state"), nil, &state); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if x < 0 || x >= state.Width || y < 0 || y >= state.Height {
		return mcp.NewToolResultError(fmt.Sprintf("Coordinates (%d, %d) are out of bounds. Board is %dx%d (x 0-%d, y 0-%d, y 0 is the bottom row)",
			x, y, state.Width, state.Height, state.Width-1, state.Height-1)), nil
	}

	return mcp.NewToolResultText(describeCell(&state, engine.Position{X: x, Y: y})), nil
}

const instructions = `Cube Blast - Complete Instructions

GAME OBJECTIVE:
Destroy every obstacle on the board before the move counter reaches zero.

COORDINATES:
• x is the column, 0 is the leftmost column
• y is the row, 0 is the BOTTOM row; board displays list the top row first
• Tiles fall toward row 0 and new cubes drop in from the top

TILE LEGEND:
• r g b y - Red, green, blue and yellow cubes
• bo - Box (1 health), broken by adjacent matches and by specials
• s  - Stone (1 health), ONLY broken by rockets and bombs, never falls
• v  - Vase (2 health), one hit per adjacent match, also broken by specials
• roh / rov - Horizontal / vertical rocket
• t  - Bomb (TNT)
• .  - Empty cell

MATCHING:
• Tap a cube that belongs to a group of 2 or more same-colored, orthogonally connected cubes
• The whole group is destroyed and costs one move
• Obstacles directly next to the group take one hit
• Tapping a single cube, an obstacle or an empty cell does nothing and costs nothing

SPECIAL ITEMS:
• A group of 3+ cubes leaves a rocket where you tapped (random direction)
• A group of 5+ cubes leaves a bomb where you tapped
  (default thresholds, servers may tune them)
• Board displays mark cubes whose group would create a special
• Rockets clear their whole row or column, bombs clear a square around them
• Tapping a special next to another special combines them:
  - rocket + rocket: clears the row AND the column
  - bomb + rocket: clears three rows and three columns
  - bomb + bomb: a much larger square
• Specials caught in another special's blast go off too

VICTORY CONDITIONS:
- All obstacles destroyed while moves remain (or with the last move)

FAILURE CONDITIONS:
- Move counter reaches 0 with obstacles left

STRATEGY:
- Hit obstacles with groups that touch them; a big group next to several boxes breaks them all at once
- Stones need specials: build 5+ groups near stones
- Combining two specials is usually worth more than using them alone
- Use describe_cell to check a cell before tapping

SESSION MANAGEMENT:
- Each session has a unique 4-character ID
- Sessions keep their board and history independently
- reset_level restarts the level, change_level switches levels

Good luck blasting!`

// Formatting helpers

func formatSessionInfo(session *service.SessionInfo) string {
	return fmt.Sprintf("Session: %s\nLevel: %d\nOutcome: %s\nTurns: %d\nCreated: %s\n\n%s",
		session.ID, session.LevelNumber, session.Outcome, session.TurnsPlayed,
		session.CreatedAt.Format("2006-01-02 15:04:05"),
		formatBoard(session.Board))
}

// formatGoals renders goals in a stable order
func formatGoals(goals map[engine.Kind]int) string {
	if len(goals) == 0 {
		return "none"
	}
	kinds := make([]string, 0, len(goals))
	for kind := range goals {
		kinds = append(kinds, string(kind))
	}
	sort.Strings(kinds)

	parts := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		parts = append(parts, fmt.Sprintf("%s x%d", kind, goals[engine.Kind(kind)]))
	}
	return strings.Join(parts, ", ")
}

func formatBoard(state *engine.BoardState) string {
	if state == nil {
		return "No board state available"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Level: %d | Moves: %d | Goals: %s\n\n", state.LevelNumber, state.MoveCount, formatGoals(state.Goals))

	// Rows arrive top first; label them with their y coordinate
	for i, row := range state.Rows {
		y := state.Height - 1 - i
		fmt.Fprintf(&b, "%2d | ", y)
		for _, code := range strings.Fields(row) {
			fmt.Fprintf(&b, "%-4s", code)
		}
		b.WriteString("\n")
	}
	if len(state.Rows) > 0 {
		b.WriteString("     ")
		for x := 0; x < state.Width; x++ {
			fmt.Fprintf(&b, "%-4d", x)
		}
		b.WriteString("\n")
	}

	if hints := specialHints(state); hints != "" {
		b.WriteString("\n" + hints)
	}

	switch {
	case state.Won:
		b.WriteString("\nLEVEL COMPLETE!")
	case state.Failed:
		b.WriteString("\nOUT OF MOVES")
	}
	return b.String()
}

// specialHints lists cubes whose group would create a special item
func specialHints(state *engine.BoardState) string {
	var rockets, bombs []string
	for _, tile := range state.Tiles {
		switch tile.Cluster {
		case engine.ClusterRocket:
			rockets = append(rockets, fmt.Sprintf("(%d,%d)", tile.Position.X, tile.Position.Y))
		case engine.ClusterBomb:
			bombs = append(bombs, fmt.Sprintf("(%d,%d)", tile.Position.X, tile.Position.Y))
		}
	}
	var b strings.Builder
	if len(bombs) > 0 {
		fmt.Fprintf(&b, "Bomb groups: %s\n", strings.Join(bombs, " "))
	}
	if len(rockets) > 0 {
		fmt.Fprintf(&b, "Rocket groups: %s\n", strings.Join(rockets, " "))
	}
	return b.String()
}

func formatTapResult(result *service.TapResult) string {
	var b strings.Builder
	if result.Turn != nil && result.Turn.Match != nil && result.Turn.Match.Matched {
		b.WriteString("✓ ")
	} else {
		b.WriteString("✗ ")
	}
	b.WriteString(result.Message)
	b.WriteString("\n")

	if result.Turn != nil {
		fmt.Fprintf(&b, "Turn %d | Moves left: %d | Outcome: %s\n", result.Turn.TurnNumber, result.Turn.MovesLeft, result.Turn.Outcome)
		if m := result.Turn.Match; m != nil && len(m.Broken) > 0 {
			fmt.Fprintf(&b, "Obstacles broken: %s\n", formatGoals(m.Broken))
		}
	}

	if summary := summarizeEvents(result.Events); summary != "" {
		b.WriteString("Events: " + summary + "\n")
	}

	b.WriteString("\n" + formatBoard(result.Board))
	return b.String()
}

// summarizeEvents counts events by type in first-seen order
func summarizeEvents(events []engine.Event) string {
	counts := make(map[engine.EventType]int)
	var order []engine.EventType
	for _, e := range events {
		if counts[e.Type] == 0 {
			order = append(order, e.Type)
		}
		counts[e.Type]++
	}
	parts := make([]string, 0, len(order))
	for _, t := range order {
		parts = append(parts, fmt.Sprintf("%s x%d", t, counts[t]))
	}
	return strings.Join(parts, ", ")
}

func formatHistory(history *service.HistoryResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Turn History (page %d/%d, %d total):\n\n", history.Page, history.TotalPages, history.TotalTurns)
	for _, turn := range history.Turns {
		status := "✗"
		if turn.Matched {
			status = "✓"
		}
		fmt.Fprintf(&b, "%d. tap (%d,%d) %s destroyed=%d moves_left=%d %s\n",
			turn.TurnNumber, turn.Position.X, turn.Position.Y, turn.Kind, turn.Destroyed, turn.MovesLeft, status)
	}
	if history.HasNext {
		b.WriteString("\nMore turns available on the next page")
	}
	return b.String()
}

func tileAt(state *engine.BoardState, pos engine.Position) *engine.TileView {
	for i := range state.Tiles {
		if state.Tiles[i].Position == pos {
			return &state.Tiles[i]
		}
	}
	return nil
}

func describeCell(state *engine.BoardState, pos engine.Position) string {
	tile := tileAt(state, pos)

	var b strings.Builder
	fmt.Fprintf(&b, "Cell at position (%d, %d):\n━━━━━━━━━━━━━━━━━━━━━━━━\n", pos.X, pos.Y)
	if tile == nil {
		b.WriteString("Empty cell - tapping does nothing\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Code: %s\nKind: %s\n", tile.Code, tile.Kind)
	switch {
	case tile.Kind == engine.KindCube:
		fmt.Fprintf(&b, "Color: %s\nGroup: %s\n", tile.Color, tile.Cluster)
		switch tile.Cluster {
		case engine.ClusterNone:
			b.WriteString("Tapping: no effect, the cube has no same-colored neighbor\n")
		case engine.ClusterLinked:
			b.WriteString("Tapping: destroys the group and damages adjacent obstacles\n")
		case engine.ClusterRocket:
			b.WriteString("Tapping: destroys the group and leaves a rocket here\n")
		case engine.ClusterBomb:
			b.WriteString("Tapping: destroys the group and leaves a bomb here\n")
		}
	case tile.Kind.IsObstacle():
		fmt.Fprintf(&b, "Health: %d\n", tile.Health)
		if tile.Kind == engine.KindStone {
			b.WriteString("Breaks only from rockets and bombs and never falls\n")
		} else {
			b.WriteString("Breaks from adjacent matches and from rockets and bombs\n")
		}
		b.WriteString("Tapping: no effect\n")
	case tile.Kind.IsSpecialItem():
		if tile.Used {
			b.WriteString("Already triggered\n")
		} else if partner := adjacentSpecial(state, pos); partner != nil {
			fmt.Fprintf(&b, "Tapping: combines with the %s at (%d,%d)\n", partner.Kind, partner.Position.X, partner.Position.Y)
		} else {
			b.WriteString("Tapping: triggers its area effect\n")
		}
	}
	return b.String()
}

// adjacentSpecial mirrors the board's partner choice: a bomb wins, else the first in scan order
func adjacentSpecial(state *engine.BoardState, pos engine.Position) *engine.TileView {
	var partner *engine.TileView
	for _, d := range []engine.Position{{X: 1}, {Y: 1}, {X: -1}, {Y: -1}} {
		t := tileAt(state, pos.Add(d))
		if t == nil || !t.Kind.IsSpecialItem() || t.Used {
			continue
		}
		if t.Kind == engine.KindBomb {
			return t
		}
		if partner == nil {
			partner = t
		}
	}
	return partner
}
