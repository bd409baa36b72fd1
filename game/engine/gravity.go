package engine

import "sort"

// settle drops tiles into the gaps left by the last matches and refills columns.
// It runs once the match queue is empty, with the turn held.
func (b *Board) settle() {
	if !b.dirty || b.cells == nil {
		return
	}
	b.settles++

	type drop struct {
		tile     *Tile
		from, to Position
	}
	var drops []drop
	var created []TileView

	for x := 0; x < b.width; x++ {
		explodes := b.columnExplodes(x)
		spawned := 0

		for y := 0; y < b.height; y++ {
			to := Position{X: x, Y: y}
			if b.cells[b.index(to)] != nil {
				continue
			}

			above := -1
			for ny := y + 1; ny < b.height; ny++ {
				if b.cells[b.index(Position{X: x, Y: ny})] != nil {
					above = ny
					break
				}
			}

			if above < 0 {
				t := NewColorTile(b.newID(), b.randomColor())
				t.CreationOffset = spawned
				t.DropDelay = explodes.highest()
				t.Moving = true
				from := Position{X: x, Y: b.height + spawned}
				t.SetPosition(from)
				spawned++
				b.cells[b.index(to)] = t
				created = append(created, t.View())
				drops = append(drops, drop{tile: t, from: from, to: to})
				continue
			}

			from := Position{X: x, Y: above}
			t := b.cells[b.index(from)]
			if !t.CanFall() {
				// Cells under an immovable obstacle stay empty until it breaks.
				y = above
				continue
			}
			b.cells[b.index(from)] = nil
			b.cells[b.index(to)] = t
			t.Moving = true
			t.DropDelay = explodes.below(above)
			drops = append(drops, drop{tile: t, from: from, to: to})
		}
	}

	b.recomputeClusters()

	if len(created) > 0 {
		b.events.Push(Event{Type: EventTilesCreated, Tiles: created, Animate: true})
	}
	for _, d := range drops {
		d.tile.DropTo(d.to)
		from := d.from
		b.events.Push(Event{
			Type:           EventTileDropped,
			TileID:         d.tile.ID,
			Kind:           d.tile.Kind,
			From:           &from,
			Position:       d.to,
			DropDelay:      d.tile.DropDelay,
			CreationOffset: d.tile.CreationOffset,
		})
	}

	b.destroyed = make(map[Position]int)
	b.dirty = false
}

type explosion struct {
	y      int
	offset int
}

// columnExplosions are the destroyed cells of one column, highest row first
type columnExplosions []explosion

func (b *Board) columnExplodes(x int) columnExplosions {
	var out columnExplosions
	for p, offset := range b.destroyed {
		if p.X == x {
			out = append(out, explosion{y: p.Y, offset: offset})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].y > out[j].y })
	return out
}

// below returns the explode offset of the nearest destroyed cell under row y
func (c columnExplosions) below(y int) int {
	for _, e := range c {
		if e.y < y {
			return e.offset
		}
	}
	return 0
}

// highest returns the largest explode offset in the column
func (c columnExplosions) highest() int {
	m := 0
	for _, e := range c {
		m = max(m, e.offset)
	}
	return m
}
