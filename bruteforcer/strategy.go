package main

import "github.com/wricardo/cube-blast-game/game/engine"

// GreedyStrategy picks taps with engine.SuggestTap and remembers cells whose tap
// matched nothing, so a stale suggestion is not repeated until the board changes.
type GreedyStrategy struct {
	dead map[engine.Position]bool
}

func NewGreedyStrategy() *GreedyStrategy {
	return &GreedyStrategy{dead: make(map[engine.Position]bool)}
}

// NextTap returns the next cell to tap, or false when no move is left
func (s *GreedyStrategy) NextTap(state *engine.BoardState) (engine.Position, bool) {
	if len(s.dead) == 0 {
		return engine.SuggestTap(state)
	}

	filtered := *state
	filtered.Tiles = make([]engine.TileView, 0, len(state.Tiles))
	for _, t := range state.Tiles {
		if !s.dead[t.Position] {
			filtered.Tiles = append(filtered.Tiles, t)
		}
	}
	return engine.SuggestTap(&filtered)
}

// Observe records the outcome of a tap at pos
func (s *GreedyStrategy) Observe(pos engine.Position, matched bool) {
	if matched {
		clear(s.dead)
		return
	}
	s.dead[pos] = true
}

// Reset forgets everything learned during an attempt
func (s *GreedyStrategy) Reset() {
	clear(s.dead)
}
