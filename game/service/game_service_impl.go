package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/wricardo/cube-blast-game/game/engine"
)

var (
	// ErrSessionNotFound is returned for unknown session IDs
	ErrSessionNotFound = errors.New("session not found")
	// ErrNoLevels is returned when a session is created without a level and no default exists
	ErrNoLevels = errors.New("no levels available")
)

// Option configures the game service
type Option func(*gameServiceImpl)

// WithLogger sets the structured logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *gameServiceImpl) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPublisher sets a publisher notified after every tap
func WithPublisher(p EventPublisher) Option {
	return func(s *gameServiceImpl) { s.publisher = p }
}

// gameServiceImpl implements the GameService interface
type gameServiceImpl struct {
	sessions  SessionManager
	levels    LevelManager
	publisher EventPublisher
	logger    *zap.Logger
	mu        sync.RWMutex
}

// NewGameService creates a new game service instance
func NewGameService(sessions SessionManager, levels LevelManager, opts ...Option) GameService {
	s := &gameServiceImpl{
		sessions: sessions,
		levels:   levels,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession creates a new game session playing the given level, or the default level when 0
func (s *gameServiceImpl) CreateSession(ctx context.Context, level int) (*SessionInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var spec *engine.LevelSpec
	if level > 0 {
		var err error
		spec, err = s.levels.LoadLevel(level)
		if err != nil {
			if errors.Is(err, engine.ErrLevelNotFound) {
				return nil, fmt.Errorf("%w. Available levels: %v", err, s.levelNumbers())
			}
			return nil, fmt.Errorf("failed to load level %d: %w", level, err)
		}
	} else {
		spec = s.levels.GetDefault()
		if spec == nil {
			return nil, ErrNoLevels
		}
	}

	// Let session manager generate a proper 4-character ID
	sess, err := s.sessions.Create(ctx, "", spec)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	sess.Engine.DrainEvents()

	s.logger.Info("session created",
		zap.String("session_id", sess.ID),
		zap.Int("level", spec.LevelNumber))

	return s.sessionInfo(ctx, sess)
}

// GetSession retrieves session information
func (s *gameServiceImpl) GetSession(ctx context.Context, sessionID string) (*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.sessionInfo(ctx, sess)
}

// ListSessions returns all active sessions
func (s *gameServiceImpl) ListSessions(ctx context.Context) ([]*SessionInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := s.sessions.List()
	result := make([]*SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		info, err := s.sessionInfo(ctx, sess)
		if err != nil {
			return nil, err
		}
		result = append(result, info)
	}
	return result, nil
}

// DeleteSession removes a session
func (s *gameServiceImpl) DeleteSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	s.logger.Info("session deleted", zap.String("session_id", sessionID))
	return nil
}

// Tap plays one turn at pos. Taps on the same session are applied in arrival order
// by the engine, so the service lock is only held for reading.
func (s *gameServiceImpl) Tap(ctx context.Context, sessionID string, pos engine.Position) (*TapResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	turn, err := sess.Engine.Tap(ctx, pos)
	if err != nil {
		return nil, err
	}
	board, err := sess.Engine.State(ctx)
	if err != nil {
		return nil, err
	}

	result := &TapResult{
		Turn:    turn,
		Board:   board,
		Events:  sess.Engine.DrainEvents(),
		Message: turnMessage(turn, sess.Engine.LevelNumber()),
	}

	logger := s.logger.With(
		zap.String("session_id", sess.ID),
		zap.String("turn_id", turn.TurnID),
		zap.Int("level", sess.Engine.LevelNumber()))
	logger.Debug("turn played",
		zap.Int("x", pos.X),
		zap.Int("y", pos.Y),
		zap.Bool("matched", turn.Match.Matched),
		zap.Int("destroyed", turn.Match.Destroyed),
		zap.Int("moves_left", turn.MovesLeft))
	if turn.Outcome != engine.OutcomePlaying {
		logger.Info("level finished", zap.String("outcome", string(turn.Outcome)))
	}

	if err := s.sessions.Save(ctx, sess.ID); err != nil {
		logger.Warn("failed to persist session after tap", zap.Error(err))
	}
	if s.publisher != nil {
		if err := s.publisher.PublishTurn(ctx, sess.ID, result); err != nil {
			logger.Warn("failed to publish turn", zap.Error(err))
		}
	}

	return result, nil
}

// Reset restarts the current level of a session
func (s *gameServiceImpl) Reset(ctx context.Context, sessionID string) (*engine.BoardState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Engine.Reset(ctx); err != nil {
		return nil, fmt.Errorf("failed to reset session %s: %w", sessionID, err)
	}
	return s.settle(ctx, sess, "reset")
}

// ChangeLevel switches a session to another level
func (s *gameServiceImpl) ChangeLevel(ctx context.Context, sessionID string, level int) (*engine.BoardState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := sess.Engine.ChangeLevel(ctx, level); err != nil {
		return nil, fmt.Errorf("failed to change session %s to level %d: %w", sessionID, level, err)
	}
	return s.settle(ctx, sess, "level changed")
}

// settle drops the placement events of a fresh board and persists the session
func (s *gameServiceImpl) settle(ctx context.Context, sess *Session, what string) (*engine.BoardState, error) {
	sess.Engine.DrainEvents()
	state, err := sess.Engine.State(ctx)
	if err != nil {
		return nil, err
	}

	logger := s.logger.With(zap.String("session_id", sess.ID), zap.Int("level", state.LevelNumber))
	logger.Info(what)
	if err := s.sessions.Save(ctx, sess.ID); err != nil {
		logger.Warn("failed to persist session", zap.Error(err))
	}
	return state, nil
}

// GetBoardState retrieves the current settled board
func (s *gameServiceImpl) GetBoardState(ctx context.Context, sessionID string) (*engine.BoardState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return sess.Engine.State(ctx)
}

// GetTurnHistory returns paginated turn history
func (s *gameServiceImpl) GetTurnHistory(ctx context.Context, sessionID string, opts HistoryOptions) (*HistoryResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	history := sess.Engine.History()
	total := len(history)

	// Apply defaults
	if opts.Page < 1 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.Limit > 100 {
		opts.Limit = 100
	}
	if opts.Order != "asc" {
		opts.Order = "desc"
	}

	totalPages := (total + opts.Limit - 1) / opts.Limit
	if totalPages == 0 {
		totalPages = 1
	}

	start := (opts.Page - 1) * opts.Limit
	end := start + opts.Limit
	if end > total {
		end = total
	}

	turns := []engine.TurnRecord{}
	if opts.Order == "desc" {
		// Most recent first
		for i := total - 1 - start; i >= 0 && i >= total-end; i-- {
			turns = append(turns, history[i])
		}
	} else if start < total {
		turns = append(turns, history[start:end]...)
	}

	return &HistoryResponse{
		Turns:       turns,
		TotalTurns:  total,
		Page:        opts.Page,
		PageSize:    opts.Limit,
		TotalPages:  totalPages,
		HasNext:     opts.Page < totalPages,
		HasPrevious: opts.Page > 1,
	}, nil
}

// ListLevels returns the stored levels
func (s *gameServiceImpl) ListLevels(ctx context.Context) ([]*LevelInfo, error) {
	return s.levels.ListLevels()
}

// LoadLevel loads a specific level
func (s *gameServiceImpl) LoadLevel(ctx context.Context, number int) (*engine.LevelSpec, error) {
	return s.levels.LoadLevel(number)
}

// SaveLevel validates and stores a level
func (s *gameServiceImpl) SaveLevel(ctx context.Context, level *engine.LevelSpec) error {
	if err := engine.ValidateLevel(level); err != nil {
		return err
	}
	if err := s.levels.SaveLevel(level); err != nil {
		return err
	}
	s.logger.Info("level saved", zap.Int("level", level.LevelNumber))
	return nil
}

func (s *gameServiceImpl) session(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, err)
	}
	s.sessions.UpdateLastAccessed(sess.ID)
	return sess, nil
}

func (s *gameServiceImpl) sessionInfo(ctx context.Context, sess *Session) (*SessionInfo, error) {
	board, err := sess.Engine.State(ctx)
	if err != nil {
		return nil, err
	}
	return &SessionInfo{
		ID:             sess.ID,
		LevelNumber:    sess.Engine.LevelNumber(),
		Outcome:        sess.Engine.Outcome(),
		CreatedAt:      sess.CreatedAt,
		LastAccessedAt: sess.LastAccessedAt,
		TurnsPlayed:    len(sess.Engine.History()),
		Board:          board,
	}, nil
}

func (s *gameServiceImpl) levelNumbers() []int {
	levels, err := s.levels.ListLevels()
	if err != nil {
		return nil
	}
	numbers := make([]int, 0, len(levels))
	for _, l := range levels {
		numbers = append(numbers, l.LevelNumber)
	}
	return numbers
}

// turnMessage describes a turn for players and agents
func turnMessage(turn *engine.TurnResult, level int) string {
	switch turn.Outcome {
	case engine.OutcomeWon:
		return fmt.Sprintf("Level %d complete with %d moves to spare!", level, turn.MovesLeft)
	case engine.OutcomeFailed:
		remaining := 0
		for _, n := range turn.Goals {
			remaining += n
		}
		return fmt.Sprintf("Out of moves! %d obstacles remaining", remaining)
	}

	m := turn.Match
	switch {
	case !m.Matched:
		return fmt.Sprintf("Nothing to match at (%d,%d)", m.Position.X, m.Position.Y)
	case m.Partner != engine.KindNone:
		return fmt.Sprintf("%s combined with %s, %d tiles destroyed", m.Kind, m.Partner, m.Destroyed)
	case m.Kind.IsSpecialItem():
		return fmt.Sprintf("%s triggered, %d tiles destroyed", m.Kind, m.Destroyed)
	case m.Created != nil:
		return fmt.Sprintf("Matched %d cubes and created a %s", m.Destroyed, m.Created.Kind)
	default:
		return fmt.Sprintf("Matched %d cubes", m.Destroyed)
	}
}
