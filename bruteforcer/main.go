// Command bruteforcer plays Cube Blast levels through the REST API with a greedy
// strategy, resetting the level between attempts until it wins or gives up.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/cube-blast-game/game/engine"
	"github.com/wricardo/cube-blast-game/game/service"
)

type Client struct {
	baseURL   string
	sessionID string
	client    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// do sends a JSON request and decodes a 2xx response into result
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s failed: %s - %s", method, path, resp.Status, apiErr.Error)
		}
		return fmt.Errorf("%s %s failed: %s", method, path, resp.Status)
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// CreateSession starts a session on level (0 for the server default)
func (c *Client) CreateSession(ctx context.Context, level int) (*engine.BoardState, error) {
	var body interface{}
	if level > 0 {
		body = map[string]int{"level": level}
	}

	var session service.SessionInfo
	if err := c.do(ctx, "POST", "/api/sessions", body, &session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	c.sessionID = session.ID
	return session.Board, nil
}

func (c *Client) GetState(ctx context.Context) (*engine.BoardState, error) {
	var state engine.BoardState
	if err := c.do(ctx, "GET", fmt.Sprintf("/api/sessions/%s/state", c.sessionID), nil, &state); err != nil {
		return nil, fmt.Errorf("get state: %w", err)
	}
	return &state, nil
}

type ResetResponse struct {
	Message string             `json:"message"`
	State   *engine.BoardState `json:"state"`
}

func (c *Client) Reset(ctx context.Context) (*engine.BoardState, error) {
	var resp ResetResponse
	if err := c.do(ctx, "POST", fmt.Sprintf("/api/sessions/%s/reset", c.sessionID), nil, &resp); err != nil {
		return nil, fmt.Errorf("reset: %w", err)
	}
	return resp.State, nil
}

func (c *Client) Tap(ctx context.Context, pos engine.Position) (*service.TapResult, error) {
	var result service.TapResult
	if err := c.do(ctx, "POST", fmt.Sprintf("/api/sessions/%s/tap", c.sessionID), pos, &result); err != nil {
		return nil, fmt.Errorf("tap: %w", err)
	}
	return &result, nil
}

// attemptResult summarizes one playthrough
type attemptResult struct {
	Taps      int
	Won       bool
	Failed    bool
	MovesLeft int
}

// playAttempt taps until the level ends, the strategy runs out of moves or maxTaps is reached
func playAttempt(ctx context.Context, c *Client, strategy *GreedyStrategy, state *engine.BoardState, maxTaps int, delay time.Duration, logger *zap.SugaredLogger) (attemptResult, error) {
	var res attemptResult
	strategy.Reset()

	for !state.Won && !state.Failed && res.Taps < maxTaps {
		pos, ok := strategy.NextTap(state)
		if !ok {
			logger.Warn("no valid taps available")
			break
		}

		result, err := c.Tap(ctx, pos)
		if err != nil {
			return res, err
		}
		res.Taps++

		matched := result.Turn != nil && result.Turn.Match != nil && result.Turn.Match.Matched
		strategy.Observe(pos, matched)

		if result.Board != nil {
			state = result.Board
		} else if state, err = c.GetState(ctx); err != nil {
			return res, err
		}
		logger.Debugw("tap", "x", pos.X, "y", pos.Y, "matched", matched, "moves_left", state.MoveCount, "goals", state.Goals)

		if delay > 0 {
			time.Sleep(delay)
		}
	}

	res.Won, res.Failed, res.MovesLeft = state.Won, state.Failed, state.MoveCount
	return res, nil
}

// goalTotal counts the obstacles still to clear
func goalTotal(state *engine.BoardState) int {
	total := 0
	for _, n := range state.Goals {
		total += n
	}
	return total
}

func main() {
	serverURL := flag.String("url", "http://localhost:8080", "Game server URL")
	level := flag.Int("level", 0, "Level to play (0 = server default)")
	continueSession := flag.String("continue", "", "Resume playing an existing session by ID")
	maxTaps := flag.Int("max-taps", 500, "Maximum taps per attempt")
	maxAttempts := flag.Int("max-attempts", 100, "Maximum attempts before giving up")
	verbose := flag.Bool("v", false, "Verbose output")
	delayMs := flag.Int("delay", 0, "Delay between taps in milliseconds (0 = no delay)")
	flag.Parse()

	cfg := zap.NewDevelopmentConfig()
	if !*verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	base, err := cfg.Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer base.Sync()
	logger := base.Sugar()

	ctx := context.Background()
	logger.Infof("Connecting to game server at %s", *serverURL)
	client := NewClient(*serverURL)

	// Check for saved session ID
	sessionFile := ".session"
	savedSessionID := *continueSession
	if savedSessionID == "" {
		if data, err := os.ReadFile(sessionFile); err == nil {
			savedSessionID = string(bytes.TrimSpace(data))
		}
	}

	var state *engine.BoardState
	if savedSessionID != "" {
		client.sessionID = savedSessionID
		logger.Infof("🔄 Resuming session: %s", client.sessionID)
		if state, err = client.GetState(ctx); err != nil {
			logger.Warnf("Failed to resume session (may be deleted): %v", err)
			savedSessionID = ""
		}
	}

	if savedSessionID == "" {
		state, err = client.CreateSession(ctx, *level)
		if err != nil {
			logger.Fatalf("Failed to create session: %v", err)
		}
		logger.Infof("✨ Session created: %s", client.sessionID)
		if err := os.WriteFile(sessionFile, []byte(client.sessionID), 0644); err != nil {
			logger.Warnf("Failed to save session ID: %v", err)
		}
	}
	logger.Infof("Level %d - Grid: %dx%d, Moves: %d, Obstacles: %d",
		state.LevelNumber, state.Width, state.Height, state.MoveCount, goalTotal(state))

	strategy := NewGreedyStrategy()
	delay := time.Duration(*delayMs) * time.Millisecond

	for attempt := 1; attempt <= *maxAttempts; attempt++ {
		// Every attempt starts from a fresh board
		state, err = client.Reset(ctx)
		if err != nil {
			logger.Fatalf("Failed to reset level: %v", err)
		}

		logger.Infof("=== 🎮 Attempt %d/%d ===", attempt, *maxAttempts)
		res, err := playAttempt(ctx, client, strategy, state, *maxTaps, delay, logger)
		if err != nil {
			logger.Errorf("Attempt %d aborted: %v", attempt, err)
			continue
		}
		logger.Infof("Attempt %d: Taps=%d, Moves left=%d, Won=%v", attempt, res.Taps, res.MovesLeft, res.Won)

		if res.Won {
			logger.Infof("🎉 VICTORY! Level won in attempt %d with %d taps!", attempt, res.Taps)
			logger.Infof("Session: %s", client.sessionID)
			os.Exit(0)
		}
	}

	logger.Errorf("❌ Failed to win after %d attempts", *maxAttempts)
	logger.Infof("Session: %s", client.sessionID)
	os.Exit(1)
}
