package engine

import "strings"

// abs returns the absolute value of x
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// rows renders the grid top row first, one space-separated code per cell, "." when empty
func (b *Board) rows() []string {
	rows := make([]string, 0, b.height)
	for y := b.height - 1; y >= 0; y-- {
		codes := make([]string, b.width)
		for x := 0; x < b.width; x++ {
			if t := b.cells[b.index(Position{X: x, Y: y})]; t != nil {
				codes[x] = t.Code()
			} else {
				codes[x] = "."
			}
		}
		rows = append(rows, strings.Join(codes, " "))
	}
	return rows
}

// CountKind counts the tiles of a kind in a board state
func CountKind(state *BoardState, kind Kind) int {
	count := 0
	for _, t := range state.Tiles {
		if t.Kind == kind {
			count++
		}
	}
	return count
}

// TileAt finds the tile at pos in a board state
func TileAt(state *BoardState, pos Position) (TileView, bool) {
	for _, t := range state.Tiles {
		if t.Position == pos {
			return t, true
		}
	}
	return TileView{}, false
}

// LargestCluster returns a position inside the biggest interactable cube group of a board state
func LargestCluster(state *BoardState) (Position, int, bool) {
	byPos := make(map[Position]TileView, len(state.Tiles))
	for _, t := range state.Tiles {
		byPos[t.Position] = t
	}

	seen := make(map[Position]bool)
	best, bestSize, found := Position{}, 0, false
	for _, t := range state.Tiles {
		if t.Kind != KindCube || !t.Interactable || seen[t.Position] {
			continue
		}
		size := 0
		stack := []Position{t.Position}
		seen[t.Position] = true
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			size++
			for _, d := range neighborOffsets {
				n := p.Add(d)
				other, ok := byPos[n]
				if !ok || seen[n] || other.Kind != KindCube || other.Color != t.Color {
					continue
				}
				seen[n] = true
				stack = append(stack, n)
			}
		}
		if size > bestSize {
			best, bestSize, found = t.Position, size, true
		}
	}
	return best, bestSize, found
}

// SuggestTap picks a greedy move for a board state: a special item next to another
// special (combo) first, then a bomb, then a rocket, then the largest cube cluster.
// It returns false when the board offers no move.
func SuggestTap(state *BoardState) (Position, bool) {
	byPos := make(map[Position]TileView, len(state.Tiles))
	for _, t := range state.Tiles {
		byPos[t.Position] = t
	}

	var bomb, rocket *TileView
	for i := range state.Tiles {
		t := &state.Tiles[i]
		if !t.Kind.IsSpecialItem() || t.Used {
			continue
		}
		for _, d := range neighborOffsets {
			if n, ok := byPos[t.Position.Add(d)]; ok && n.Kind.IsSpecialItem() && !n.Used {
				return t.Position, true
			}
		}
		switch {
		case t.Kind == KindBomb:
			if bomb == nil {
				bomb = t
			}
		case rocket == nil:
			rocket = t
		}
	}
	if bomb != nil {
		return bomb.Position, true
	}
	if rocket != nil {
		return rocket.Position, true
	}

	pos, size, ok := LargestCluster(state)
	if !ok || size < 2 {
		return Position{}, false
	}
	return pos, true
}
