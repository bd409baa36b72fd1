package service_test

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/wricardo/cube-blast-game/game/engine"
	"github.com/wricardo/cube-blast-game/game/service"
)

// testLevel builds a level from rows given top row first, codes separated by spaces
func testLevel(number, moves int, rows ...string) *engine.LevelSpec {
	height := len(rows)
	width := len(strings.Fields(rows[0]))
	grid := make([]string, width*height)
	for i, row := range rows {
		y := height - 1 - i
		for x, code := range strings.Fields(row) {
			grid[x+width*y] = code
		}
	}
	return &engine.LevelSpec{
		LevelNumber: number,
		Width:       width,
		Height:      height,
		MoveCount:   moves,
		Grid:        grid,
	}
}

// MockSessionManager implements service.SessionManager for testing
type MockSessionManager struct {
	mu       sync.Mutex
	sessions map[string]*service.Session
	loader   engine.LevelLoader
	saves    int
}

func NewMockSessionManager(loader engine.LevelLoader) *MockSessionManager {
	return &MockSessionManager{
		sessions: make(map[string]*service.Session),
		loader:   loader,
	}
}

func (m *MockSessionManager) Create(ctx context.Context, id string, level *engine.LevelSpec) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Generate ID if empty (mimics real session manager behavior)
	if id == "" {
		id = fmt.Sprintf("test_%d", len(m.sessions)+1)
	}
	if _, exists := m.sessions[id]; exists {
		return nil, errors.New("session already exists")
	}

	eng, err := engine.NewEngine(level,
		engine.WithRand(rand.New(rand.NewPCG(1, 2))),
		engine.WithLoader(m.loader))
	if err != nil {
		return nil, err
	}

	session := &service.Session{
		ID:             id,
		Engine:         eng,
		CreatedAt:      time.Now(),
		LastAccessedAt: time.Now(),
	}
	m.sessions[id] = session
	return session, nil
}

func (m *MockSessionManager) Get(ctx context.Context, id string) (*service.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, exists := m.sessions[id]
	if !exists {
		return nil, service.ErrSessionNotFound
	}
	return session, nil
}

func (m *MockSessionManager) List() []*service.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*service.Session, 0, len(m.sessions))
	for _, session := range m.sessions {
		result = append(result, session)
	}
	return result
}

func (m *MockSessionManager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[id]; !exists {
		return service.ErrSessionNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *MockSessionManager) UpdateLastAccessed(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session, exists := m.sessions[id]; exists {
		session.LastAccessedAt = time.Now()
		return nil
	}
	return service.ErrSessionNotFound
}

func (m *MockSessionManager) Save(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[id]; !exists {
		return service.ErrSessionNotFound
	}
	m.saves++
	return nil
}

// MockLevelManager implements service.LevelManager for testing
type MockLevelManager struct {
	mu     sync.Mutex
	levels map[int]*engine.LevelSpec
}

func NewMockLevelManager() *MockLevelManager {
	return &MockLevelManager{
		levels: map[int]*engine.LevelSpec{
			1: testLevel(1, 5,
				"g y g",
				"bo g y",
				"r r b",
			),
			2: testLevel(2, 1,
				"g y g",
				"y s y",
				"r r g",
			),
		},
	}
}

func (m *MockLevelManager) LoadLevel(number int) (*engine.LevelSpec, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	level, exists := m.levels[number]
	if !exists {
		return nil, fmt.Errorf("level %d: %w", number, engine.ErrLevelNotFound)
	}
	return level.Clone(), nil
}

func (m *MockLevelManager) ListLevels() ([]*service.LevelInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*service.LevelInfo, 0, len(m.levels))
	for n, level := range m.levels {
		result = append(result, &service.LevelInfo{
			Filename:    engine.LevelFileName(n),
			LevelNumber: n,
			Width:       level.Width,
			Height:      level.Height,
			MoveCount:   level.MoveCount,
			Goals:       engine.LevelGoals(level),
		})
	}
	return result, nil
}

func (m *MockLevelManager) GetDefault() *engine.LevelSpec {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.levels[1].Clone()
}

func (m *MockLevelManager) SaveLevel(level *engine.LevelSpec) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[level.LevelNumber] = level.Clone()
	return nil
}

// MockPublisher implements service.EventPublisher for testing
type MockPublisher struct {
	PublishTurnFunc func(ctx context.Context, sessionID string, result *service.TapResult) error
}

func (m *MockPublisher) PublishTurn(ctx context.Context, sessionID string, result *service.TapResult) error {
	if m.PublishTurnFunc != nil {
		return m.PublishTurnFunc(ctx, sessionID, result)
	}
	return nil
}

func newTestService(opts ...service.Option) (service.GameService, *MockSessionManager, *MockLevelManager) {
	levels := NewMockLevelManager()
	sessions := NewMockSessionManager(levels)
	return service.NewGameService(sessions, levels, opts...), sessions, levels
}

func TestGameService_CreateSession(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	tests := []struct {
		name      string
		level     int
		wantLevel int
		wantErr   error
	}{
		{name: "create with default level", level: 0, wantLevel: 1},
		{name: "create with specific level", level: 2, wantLevel: 2},
		{name: "create with unknown level", level: 42, wantErr: engine.ErrLevelNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := svc.CreateSession(ctx, tt.level)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateSession() error = %v", err)
			}
			if info.LevelNumber != tt.wantLevel {
				t.Errorf("Expected level %d, got %d", tt.wantLevel, info.LevelNumber)
			}
			if info.Board == nil || info.Outcome != engine.OutcomePlaying {
				t.Errorf("Expected a playing board, got %+v", info)
			}
		})
	}
}

func TestGameService_CreateSessionUnknownLevelListsAvailable(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.CreateSession(context.Background(), 9)
	if err == nil || !strings.Contains(err.Error(), "Available levels") {
		t.Errorf("Expected the error to list available levels, got %v", err)
	}
}

func TestGameService_Tap(t *testing.T) {
	ctx := context.Background()

	var published []string
	publisher := &MockPublisher{
		PublishTurnFunc: func(ctx context.Context, sessionID string, result *service.TapResult) error {
			published = append(published, result.Turn.TurnID)
			return nil
		},
	}
	svc, sessions, _ := newTestService(service.WithPublisher(publisher))

	info, err := svc.CreateSession(ctx, 1)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	t.Run("single cube is a no-op", func(t *testing.T) {
		result, err := svc.Tap(ctx, info.ID, engine.Position{X: 2, Y: 0})
		if err != nil {
			t.Fatalf("Tap failed: %v", err)
		}
		if result.Turn.Match.Matched || result.Turn.MovesLeft != 5 {
			t.Errorf("Expected no move spent, got %+v", result.Turn)
		}
		if len(result.Events) != 0 {
			t.Errorf("Expected no events, got %d", len(result.Events))
		}
		if !strings.Contains(result.Message, "Nothing to match") {
			t.Errorf("Unexpected message %q", result.Message)
		}
	})

	t.Run("pair breaks the box and wins", func(t *testing.T) {
		result, err := svc.Tap(ctx, info.ID, engine.Position{X: 1, Y: 0})
		if err != nil {
			t.Fatalf("Tap failed: %v", err)
		}
		if result.Turn.Outcome != engine.OutcomeWon || !result.Board.Won {
			t.Errorf("Expected victory, got %s", result.Turn.Outcome)
		}
		if result.Turn.MovesLeft != 4 {
			t.Errorf("Expected 4 moves left, got %d", result.Turn.MovesLeft)
		}

		types := map[engine.EventType]int{}
		for _, e := range result.Events {
			types[e.Type]++
		}
		if types[engine.EventTileMatched] != 3 || types[engine.EventGoalProgress] != 1 || types[engine.EventLevelWon] != 1 {
			t.Errorf("Unexpected events: %v", types)
		}
		if types[engine.EventTilesCreated] != 1 {
			t.Errorf("Expected one refill event, got %d", types[engine.EventTilesCreated])
		}
		if !strings.Contains(result.Message, "complete") {
			t.Errorf("Unexpected message %q", result.Message)
		}
	})

	t.Run("tap after victory", func(t *testing.T) {
		if _, err := svc.Tap(ctx, info.ID, engine.Position{X: 0, Y: 0}); !errors.Is(err, engine.ErrLevelOver) {
			t.Errorf("Expected ErrLevelOver, got %v", err)
		}
	})

	t.Run("unknown session", func(t *testing.T) {
		if _, err := svc.Tap(ctx, "nope", engine.Position{}); !errors.Is(err, service.ErrSessionNotFound) {
			t.Errorf("Expected ErrSessionNotFound, got %v", err)
		}
	})

	if len(published) != 2 {
		t.Errorf("Expected 2 published turns, got %d", len(published))
	}
	if sessions.saves != 2 {
		t.Errorf("Expected 2 saves, got %d", sessions.saves)
	}
}

func TestGameService_TapPublisherErrorIsIgnored(t *testing.T) {
	ctx := context.Background()
	publisher := &MockPublisher{
		PublishTurnFunc: func(ctx context.Context, sessionID string, result *service.TapResult) error {
			return errors.New("bus down")
		},
	}
	svc, _, _ := newTestService(service.WithPublisher(publisher))
	info, _ := svc.CreateSession(ctx, 1)

	if _, err := svc.Tap(ctx, info.ID, engine.Position{X: 0, Y: 0}); err != nil {
		t.Errorf("Expected publish failures not to fail the tap, got %v", err)
	}
}

func TestGameService_FailureAndReset(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	info, err := svc.CreateSession(ctx, 2)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	result, err := svc.Tap(ctx, info.ID, engine.Position{X: 0, Y: 0})
	if err != nil {
		t.Fatalf("Tap failed: %v", err)
	}
	if result.Turn.Outcome != engine.OutcomeFailed || !result.Board.Failed {
		t.Errorf("Expected failure, got %s", result.Turn.Outcome)
	}
	if !strings.Contains(result.Message, "Out of moves") {
		t.Errorf("Unexpected message %q", result.Message)
	}

	state, err := svc.Reset(ctx, info.ID)
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if state.MoveCount != 1 || state.Failed {
		t.Errorf("Expected fresh board after reset, got %+v", state)
	}

	got, err := svc.GetSession(ctx, info.ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if got.Outcome != engine.OutcomePlaying || got.TurnsPlayed != 1 {
		t.Errorf("Expected playing session with 1 turn, got %+v", got)
	}

	// Reset placement events must not leak into the next tap
	next, err := svc.Tap(ctx, info.ID, engine.Position{X: 2, Y: 0})
	if err != nil {
		t.Fatalf("Tap failed: %v", err)
	}
	if len(next.Events) != 0 {
		t.Errorf("Expected no events for a no-op tap, got %+v", next.Events)
	}
}

func TestGameService_ChangeLevel(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	info, _ := svc.CreateSession(ctx, 1)

	state, err := svc.ChangeLevel(ctx, info.ID, 2)
	if err != nil {
		t.Fatalf("ChangeLevel failed: %v", err)
	}
	if state.LevelNumber != 2 || state.Goals[engine.KindStone] != 1 {
		t.Errorf("Expected level 2 with a stone goal, got %+v", state)
	}

	if _, err := svc.ChangeLevel(ctx, info.ID, 7); !errors.Is(err, engine.ErrLevelNotFound) {
		t.Errorf("Expected ErrLevelNotFound, got %v", err)
	}
}

func TestGameService_GetTurnHistory(t *testing.T) {
	ctx := context.Background()
	svc, _, levels := newTestService()
	levels.SaveLevel(testLevel(3, 50,
		"g y g y",
		"y g y g",
		"g y g y",
		"y g y bo",
	))
	info, err := svc.CreateSession(ctx, 3)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	// Single cubes never match, so the board stays the same for every turn
	for i := 0; i < 5; i++ {
		if _, err := svc.Tap(ctx, info.ID, engine.Position{X: i % 3, Y: 1}); err != nil {
			t.Fatalf("Tap %d failed: %v", i, err)
		}
	}

	tests := []struct {
		name      string
		opts      service.HistoryOptions
		wantTurns []int
		wantNext  bool
		wantPages int
	}{
		{
			name:      "defaults are newest first",
			opts:      service.HistoryOptions{},
			wantTurns: []int{5, 4, 3, 2, 1},
			wantPages: 1,
		},
		{
			name:      "ascending first page",
			opts:      service.HistoryOptions{Page: 1, Limit: 2, Order: "asc"},
			wantTurns: []int{1, 2},
			wantNext:  true,
			wantPages: 3,
		},
		{
			name:      "descending last page",
			opts:      service.HistoryOptions{Page: 3, Limit: 2, Order: "desc"},
			wantTurns: []int{1},
			wantPages: 3,
		},
		{
			name:      "page past the end",
			opts:      service.HistoryOptions{Page: 9, Limit: 2, Order: "asc"},
			wantTurns: []int{},
			wantPages: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := svc.GetTurnHistory(ctx, info.ID, tt.opts)
			if err != nil {
				t.Fatalf("GetTurnHistory failed: %v", err)
			}
			if resp.TotalTurns != 5 {
				t.Errorf("Expected 5 total turns, got %d", resp.TotalTurns)
			}
			if resp.TotalPages != tt.wantPages || resp.HasNext != tt.wantNext {
				t.Errorf("Expected %d pages (next=%v), got %d (next=%v)", tt.wantPages, tt.wantNext, resp.TotalPages, resp.HasNext)
			}
			if len(resp.Turns) != len(tt.wantTurns) {
				t.Fatalf("Expected %d turns, got %d", len(tt.wantTurns), len(resp.Turns))
			}
			for i, n := range tt.wantTurns {
				if resp.Turns[i].TurnNumber != n {
					t.Errorf("Expected turn %d at index %d, got %d", n, i, resp.Turns[i].TurnNumber)
				}
			}
		})
	}
}

func TestGameService_Sessions(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	a, _ := svc.CreateSession(ctx, 1)
	b, _ := svc.CreateSession(ctx, 2)

	list, err := svc.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("Expected 2 sessions, got %d", len(list))
	}

	if err := svc.DeleteSession(ctx, a.ID); err != nil {
		t.Fatalf("DeleteSession failed: %v", err)
	}
	if _, err := svc.GetSession(ctx, a.ID); !errors.Is(err, service.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound after delete, got %v", err)
	}
	if _, err := svc.GetBoardState(ctx, b.ID); err != nil {
		t.Errorf("Expected remaining session to be reachable, got %v", err)
	}
}

func TestGameService_Levels(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	levels, err := svc.ListLevels(ctx)
	if err != nil || len(levels) != 2 {
		t.Fatalf("Expected 2 levels, got %d (%v)", len(levels), err)
	}

	if err := svc.SaveLevel(ctx, testLevel(5, 10, "r r", "g q")); !errors.Is(err, engine.ErrInvalidLevel) {
		t.Errorf("Expected ErrInvalidLevel for unknown code, got %v", err)
	}
	if err := svc.SaveLevel(ctx, testLevel(5, 10, "r r", "g v")); err != nil {
		t.Fatalf("SaveLevel failed: %v", err)
	}

	level, err := svc.LoadLevel(ctx, 5)
	if err != nil {
		t.Fatalf("LoadLevel failed: %v", err)
	}
	if level.MoveCount != 10 || level.Grid[1] != "v" {
		t.Errorf("Unexpected level %+v", level)
	}
}

func TestGameService_ConcurrentTaps(t *testing.T) {
	ctx := context.Background()
	svc, _, levels := newTestService()
	levels.SaveLevel(testLevel(4, 200,
		"rand rand rand rand rand",
		"rand rand rand rand rand",
		"rand rand bo rand rand",
		"rand rand rand rand rand",
		"rand rand rand rand rand",
	))
	info, err := svc.CreateSession(ctx, 4)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				_, err := svc.Tap(ctx, info.ID, engine.Position{X: (g + i) % 5, Y: i % 5})
				if err != nil && !errors.Is(err, engine.ErrLevelOver) {
					t.Errorf("Tap failed: %v", err)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	history, err := svc.GetTurnHistory(ctx, info.ID, service.HistoryOptions{Limit: 100})
	if err != nil {
		t.Fatal(err)
	}
	matched := 0
	for _, turn := range history.Turns {
		if turn.Matched {
			matched++
		}
	}
	state, _ := svc.GetBoardState(ctx, info.ID)
	if state.MoveCount != 200-matched {
		t.Errorf("Expected %d moves left, got %d", 200-matched, state.MoveCount)
	}
}
