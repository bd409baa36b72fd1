package engine

import (
	"context"
	"fmt"
)

// Snapshot is the persisted form of a running board. Cells holds one level code per
// cell ("" when empty) and Health the remaining health of each occupied cell.
type Snapshot struct {
	Level     *LevelSpec   `json:"level"`
	MoveCount int          `json:"move_count"`
	Cells     []string     `json:"cells"`
	Health    []int        `json:"health"`
	Outcome   Outcome      `json:"outcome,omitempty"`
	History   []TurnRecord `json:"history,omitempty"`
}

// Snapshot captures the settled board
func (b *Board) Snapshot(ctx context.Context) (*Snapshot, error) {
	if _, err := b.seq.acquire(ctx); err != nil {
		return nil, err
	}
	defer b.seq.release()

	if b.level == nil {
		return nil, fmt.Errorf("board is not initialized")
	}
	snap := &Snapshot{
		Level:     b.level.Clone(),
		MoveCount: b.MoveCount(),
		Cells:     make([]string, len(b.cells)),
		Health:    make([]int, len(b.cells)),
	}
	for i, t := range b.cells {
		if t == nil {
			continue
		}
		snap.Cells[i] = t.Code()
		snap.Health[i] = t.Health
	}
	return snap, nil
}

// Restore rebuilds the board from a snapshot. Queued match requests are cancelled.
func (b *Board) Restore(ctx context.Context, snap *Snapshot) error {
	if err := validateSnapshot(snap); err != nil {
		return err
	}
	b.seq.cancelPending()
	if _, err := b.seq.acquire(ctx); err != nil {
		return err
	}
	defer b.seq.release()

	b.build(snap.Level, snap.Cells, snap.Health, snap.MoveCount)
	return nil
}

func validateSnapshot(snap *Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: snapshot is nil", ErrInvalidLevel)
	}
	if err := ValidateLevel(snap.Level); err != nil {
		return err
	}
	size := snap.Level.Width * snap.Level.Height
	if len(snap.Cells) != size || len(snap.Health) != size {
		return fmt.Errorf("%w: snapshot must have %d cells, got %d cells and %d health values",
			ErrInvalidLevel, size, len(snap.Cells), len(snap.Health))
	}
	for i, code := range snap.Cells {
		if code == "" {
			continue
		}
		if code == CodeRandom {
			return fmt.Errorf("%w: snapshot cell %d has no concrete color", ErrInvalidLevel, i)
		}
		if _, err := parseCode(code); err != nil {
			return err
		}
	}
	if snap.MoveCount < 0 {
		return fmt.Errorf("%w: snapshot move_count must not be negative, got %d", ErrInvalidLevel, snap.MoveCount)
	}
	return nil
}
