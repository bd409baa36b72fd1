package service

import (
	"time"

	"github.com/wricardo/cube-blast-game/game/engine"
)

// SessionInfo provides information about a game session
type SessionInfo struct {
	ID             string             `json:"id"`
	LevelNumber    int                `json:"level_number"`
	Outcome        engine.Outcome     `json:"outcome"`
	CreatedAt      time.Time          `json:"created_at"`
	LastAccessedAt time.Time          `json:"last_accessed_at"`
	TurnsPlayed    int                `json:"turns_played"`
	Board          *engine.BoardState `json:"board"`
}

// TapResult contains the result of a tap: the turn summary, the settled board
// and every event emitted while the turn resolved
type TapResult struct {
	Turn    *engine.TurnResult `json:"turn"`
	Board   *engine.BoardState `json:"board"`
	Events  []engine.Event     `json:"events"`
	Message string             `json:"message"`
}

// HistoryOptions configures turn history retrieval
type HistoryOptions struct {
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
	Order string `json:"order"` // "asc" or "desc"
}

// HistoryResponse contains paginated turn history
type HistoryResponse struct {
	Turns       []engine.TurnRecord `json:"turns"`
	TotalTurns  int                 `json:"total_turns"`
	Page        int                 `json:"page"`
	PageSize    int                 `json:"page_size"`
	TotalPages  int                 `json:"total_pages"`
	HasNext     bool                `json:"has_next"`
	HasPrevious bool                `json:"has_previous"`
}

// LevelInfo provides information about a stored level
type LevelInfo struct {
	Filename    string              `json:"filename"`
	LevelNumber int                 `json:"level_number"`
	Width       int                 `json:"grid_width"`
	Height      int                 `json:"grid_height"`
	MoveCount   int                 `json:"move_count"`
	Goals       map[engine.Kind]int `json:"goals"`
}
