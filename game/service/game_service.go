package service

import (
	"context"
	"time"

	"github.com/wricardo/cube-blast-game/game/engine"
)

// GameService defines all game-related operations
type GameService interface {
	// Session Management
	CreateSession(ctx context.Context, level int) (*SessionInfo, error)
	GetSession(ctx context.Context, sessionID string) (*SessionInfo, error)
	ListSessions(ctx context.Context) ([]*SessionInfo, error)
	DeleteSession(ctx context.Context, sessionID string) error

	// Game Operations
	Tap(ctx context.Context, sessionID string, pos engine.Position) (*TapResult, error)
	Reset(ctx context.Context, sessionID string) (*engine.BoardState, error)
	ChangeLevel(ctx context.Context, sessionID string, level int) (*engine.BoardState, error)

	// Game State
	GetBoardState(ctx context.Context, sessionID string) (*engine.BoardState, error)
	GetTurnHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error)

	// Levels
	ListLevels(ctx context.Context) ([]*LevelInfo, error)
	LoadLevel(ctx context.Context, number int) (*engine.LevelSpec, error)
	SaveLevel(ctx context.Context, level *engine.LevelSpec) error
}

// SessionManager defines session storage operations
type SessionManager interface {
	Create(ctx context.Context, id string, level *engine.LevelSpec) (*Session, error)
	Get(ctx context.Context, id string) (*Session, error)
	List() []*Session
	Delete(ctx context.Context, id string) error
	UpdateLastAccessed(id string) error
	Save(ctx context.Context, id string) error
}

// LevelManager handles level loading and storage
type LevelManager interface {
	engine.LevelLoader
	ListLevels() ([]*LevelInfo, error)
	GetDefault() *engine.LevelSpec
	SaveLevel(level *engine.LevelSpec) error
}

// EventPublisher receives every completed turn, e.g. to fan it out over a message bus
type EventPublisher interface {
	PublishTurn(ctx context.Context, sessionID string, result *TapResult) error
}

// Session represents an active game session
type Session struct {
	ID             string
	Engine         *engine.GameEngine
	CreatedAt      time.Time
	LastAccessedAt time.Time
}
