package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrLevelOver is returned for taps after the level was won or failed
	ErrLevelOver = errors.New("level is already over")
	// ErrNoLoader is returned by ChangeLevel when the engine has no level loader
	ErrNoLoader = errors.New("no level loader configured")
)

// Outcome is the result of a level so far
type Outcome string

const (
	OutcomePlaying Outcome = "playing"
	OutcomeWon     Outcome = "won"
	OutcomeFailed  Outcome = "failed"
)

// Engine provides the main interface for game operations
type Engine interface {
	// Turns
	Tap(ctx context.Context, pos Position) (*TurnResult, error)
	SpendMove(n int)

	// Level management
	Reset(ctx context.Context) error
	ChangeLevel(ctx context.Context, number int) error
	LevelNumber() int

	// State
	State(ctx context.Context) (*BoardState, error)
	Snapshot(ctx context.Context) (*Snapshot, error)
	Restore(ctx context.Context, snap *Snapshot) error
	DrainEvents() []Event
	Outcome() Outcome
	IsVictory() bool
	IsGameOver() bool
	MoveCount() int
	Goals() map[Kind]int

	// History
	History() []TurnRecord
	LastTurn() *TurnRecord
}

// TurnResult is the outcome of one player tap
type TurnResult struct {
	TurnID     string       `json:"turn_id"`
	TurnNumber int          `json:"turn_number"`
	Match      *MatchResult `json:"match"`
	MovesLeft  int          `json:"moves_left"`
	Goals      map[Kind]int `json:"goals"`
	Outcome    Outcome      `json:"outcome"`
}

// GameEngine runs player turns on a Board: it spends moves for completed matches,
// decides when the level is won or failed and keeps the turn history.
type GameEngine struct {
	board  *Board
	loader LevelLoader

	mu      sync.Mutex
	level   int
	outcome Outcome
	played  bool // a tap reached the board since the level started
	history []TurnRecord
}

// NewEngine creates a new game engine playing the provided level
func NewEngine(level *LevelSpec, opts ...Option) (*GameEngine, error) {
	if err := ValidateLevel(level); err != nil {
		return nil, err
	}

	o := buildOptions(opts)
	board, err := newBoard(o)
	if err != nil {
		return nil, err
	}
	if err := board.Initialize(context.Background(), level); err != nil {
		return nil, err
	}

	return &GameEngine{
		board:   board,
		loader:  o.loader,
		level:   level.LevelNumber,
		outcome: OutcomePlaying,
		history: []TurnRecord{},
	}, nil
}

// Board returns the underlying board
func (e *GameEngine) Board() *Board {
	return e.board
}

// Tap matches at pos and spends one move if anything was matched. Taps queued behind
// the one that ends the level return ErrLevelOver.
func (e *GameEngine) Tap(ctx context.Context, pos Position) (*TurnResult, error) {
	if e.Outcome() != OutcomePlaying {
		return nil, ErrLevelOver
	}

	match, err := e.board.playTurn(ctx, pos, e.admitTap, e.finishTap)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Chained activations may have broken the last obstacle after finishTap ran
	e.evaluateLocked()

	record := TurnRecord{
		TurnID:     uuid.New().String(),
		TurnNumber: len(e.history) + 1,
		Position:   pos,
		Kind:       match.Kind,
		Matched:    match.Matched,
		Destroyed:  match.Destroyed,
		Broken:     match.Broken,
		MovesLeft:  e.board.MoveCount(),
		Timestamp:  time.Now().Unix(),
	}
	e.history = append(e.history, record)

	return &TurnResult{
		TurnID:     record.TurnID,
		TurnNumber: record.TurnNumber,
		Match:      match,
		MovesLeft:  record.MovesLeft,
		Goals:      e.board.Goals(),
		Outcome:    e.outcome,
	}, nil
}

// admitTap refuses a tap once the level is decided or out of moves. Runs in the board turn.
func (e *GameEngine) admitTap() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.played {
		e.evaluateLocked()
	}
	if e.outcome != OutcomePlaying || e.board.MoveCount() <= 0 {
		return ErrLevelOver
	}
	return nil
}

// finishTap spends the move of a completed match. Runs in the board turn.
func (e *GameEngine) finishTap(match *MatchResult) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.played = true
	if match.Matched {
		e.board.SpendMove(1)
	}
	e.evaluateLocked()
}

// SpendMove decrements the move counter outside of a tap
func (e *GameEngine) SpendMove(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.board.SpendMove(n)
	e.evaluateLocked()
}

// evaluateLocked settles the outcome once. Victory is checked before failure, and
// failure waits for queued chained activations that could still win the level.
func (e *GameEngine) evaluateLocked() {
	if e.outcome != OutcomePlaying {
		return
	}
	switch {
	case e.board.IsLevelWon():
		e.outcome = OutcomeWon
		e.board.events.Push(Event{Type: EventLevelWon})
	case e.board.IsLevelFailed() && !e.board.chainsPending():
		e.outcome = OutcomeFailed
		e.board.events.Push(Event{Type: EventLevelFailed, Remaining: len(e.board.Goals())})
	}
}

// Reset restarts the current level. Cumulative history is preserved.
func (e *GameEngine) Reset(ctx context.Context) error {
	level, err := e.board.Level(ctx)
	if err != nil {
		return err
	}
	if level == nil {
		return fmt.Errorf("engine has no level to reset")
	}
	return e.start(ctx, level)
}

// ChangeLevel loads another level through the configured loader and starts it
func (e *GameEngine) ChangeLevel(ctx context.Context, number int) error {
	if e.loader == nil {
		return ErrNoLoader
	}
	level, err := e.loader.LoadLevel(number)
	if err != nil {
		return err
	}
	return e.start(ctx, level)
}

func (e *GameEngine) start(ctx context.Context, level *LevelSpec) error {
	if err := e.board.Initialize(ctx, level); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.level = level.LevelNumber
	e.outcome = OutcomePlaying
	e.played = false
	return nil
}

// LevelNumber returns the number of the level being played
func (e *GameEngine) LevelNumber() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.level
}

// State returns the settled board state. Won and Failed report the engine's outcome,
// so a level without obstacles is not won before its first tap.
func (e *GameEngine) State(ctx context.Context) (*BoardState, error) {
	state, err := e.board.State(ctx)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	state.Won = e.outcome == OutcomeWon
	state.Failed = e.outcome == OutcomeFailed
	return state, nil
}

// Snapshot captures the board together with the outcome and history
func (e *GameEngine) Snapshot(ctx context.Context) (*Snapshot, error) {
	snap, err := e.board.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	snap.Outcome = e.outcome
	snap.History = append([]TurnRecord(nil), e.history...)
	return snap, nil
}

// Restore replaces the board, outcome and history with a snapshot (used for persistence loading)
func (e *GameEngine) Restore(ctx context.Context, snap *Snapshot) error {
	if err := e.board.Restore(ctx, snap); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.level = snap.Level.LevelNumber
	e.outcome = snap.Outcome
	if e.outcome == "" {
		e.outcome = OutcomePlaying
	}
	e.played = e.outcome != OutcomePlaying || snap.MoveCount < snap.Level.MoveCount
	e.history = append([]TurnRecord{}, snap.History...)
	return nil
}

// DrainEvents returns the events queued since the last drain
func (e *GameEngine) DrainEvents() []Event {
	return e.board.DrainEvents()
}

// Outcome returns whether the level is being played, won or failed
func (e *GameEngine) Outcome() Outcome {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.outcome
}

// IsVictory returns whether the player has won
func (e *GameEngine) IsVictory() bool {
	return e.Outcome() == OutcomeWon
}

// IsGameOver returns whether the level ended either way
func (e *GameEngine) IsGameOver() bool {
	return e.Outcome() != OutcomePlaying
}

// MoveCount returns the remaining moves
func (e *GameEngine) MoveCount() int {
	return e.board.MoveCount()
}

// Goals returns the remaining obstacle counts
func (e *GameEngine) Goals() map[Kind]int {
	return e.board.Goals()
}

// History returns the complete turn history
func (e *GameEngine) History() []TurnRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]TurnRecord(nil), e.history...)
}

// LastTurn returns the last turn played, or nil if none
func (e *GameEngine) LastTurn() *TurnRecord {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.history) == 0 {
		return nil
	}
	last := e.history[len(e.history)-1]
	return &last
}
