package engine

import "sort"

// Effect is the area effect carried by a special item
type Effect uint8

const (
	EffectNone Effect = iota
	EffectHorizontalRocket
	EffectVerticalRocket
	EffectBomb
)

func (e Effect) String() string {
	switch e {
	case EffectHorizontalRocket:
		return "horizontal_rocket"
	case EffectVerticalRocket:
		return "vertical_rocket"
	case EffectBomb:
		return "bomb"
	default:
		return "none"
	}
}

func effectForKind(k Kind) Effect {
	switch k {
	case KindHorizontalRocket:
		return EffectHorizontalRocket
	case KindVerticalRocket:
		return EffectVerticalRocket
	case KindBomb:
		return EffectBomb
	default:
		return EffectNone
	}
}

// effectFamily groups effects that combine the same way. Both rocket directions are one family.
type effectFamily uint8

const (
	familyRocket effectFamily = iota + 1
	familyBomb
)

func (e Effect) family() effectFamily {
	switch e {
	case EffectHorizontalRocket, EffectVerticalRocket:
		return familyRocket
	case EffectBomb:
		return familyBomb
	default:
		return 0
	}
}

// Area maps every affected position to its propagation distance from the origin
type Area map[Position]int

// AffectedCell is one entry of an Area
type AffectedCell struct {
	Position Position `json:"position"`
	Distance int      `json:"distance"`
}

func (a Area) add(p Position, distance int) {
	if d, ok := a[p]; ok && d <= distance {
		return
	}
	a[p] = distance
}

// Cells returns the area ordered by distance, then row, then column
func (a Area) Cells() []AffectedCell {
	cells := make([]AffectedCell, 0, len(a))
	for p, d := range a {
		cells = append(cells, AffectedCell{Position: p, Distance: d})
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Distance != cells[j].Distance {
			return cells[i].Distance < cells[j].Distance
		}
		if cells[i].Position.Y != cells[j].Position.Y {
			return cells[i].Position.Y < cells[j].Position.Y
		}
		return cells[i].Position.X < cells[j].Position.X
	})
	return cells
}

// EffectCalculator computes affected areas on a board of fixed dimensions
type EffectCalculator struct {
	width  int
	height int
	tuning Tuning
}

// NewEffectCalculator returns a calculator clipping to a width x height board
func NewEffectCalculator(width, height int, tuning Tuning) EffectCalculator {
	return EffectCalculator{width: width, height: height, tuning: tuning}
}

type comboKey struct {
	low, high effectFamily
}

func newComboKey(a, b effectFamily) comboKey {
	if a > b {
		a, b = b, a
	}
	return comboKey{low: a, high: b}
}

// combinations is keyed by the unordered pair of families, so a+b and b+a resolve identically
var combinations = map[comboKey]func(EffectCalculator, Position) Area{
	newComboKey(familyRocket, familyRocket): EffectCalculator.rocketCross,
	newComboKey(familyBomb, familyBomb):     EffectCalculator.bigBomb,
	newComboKey(familyBomb, familyRocket):   EffectCalculator.bombRocket,
}

// Solo returns the area of a special item activated without a partner
func (c EffectCalculator) Solo(e Effect, origin Position) Area {
	area := Area{}
	switch e {
	case EffectHorizontalRocket:
		c.sweepRow(area, origin)
	case EffectVerticalRocket:
		c.sweepColumn(area, origin)
	case EffectBomb:
		c.square(area, origin, c.tuning.BombRadius)
	}
	return area
}

// Combined returns the area of two special items activated together at origin.
// The result does not depend on argument order.
func (c EffectCalculator) Combined(a, b Effect, origin Position) Area {
	combo, ok := combinations[newComboKey(a.family(), b.family())]
	if !ok {
		return c.Solo(a, origin)
	}
	return combo(c, origin)
}

func (c EffectCalculator) rocketCross(origin Position) Area {
	area := Area{}
	c.sweepRow(area, origin)
	c.sweepColumn(area, origin)
	return area
}

func (c EffectCalculator) bigBomb(origin Position) Area {
	area := Area{}
	c.square(area, origin, c.tuning.BombComboRadius)
	return area
}

// bombRocket sweeps the full row and column of every cell in the core square around origin.
// Distance is the Chebyshev distance to the core square.
func (c EffectCalculator) bombRocket(origin Position) Area {
	r := c.tuning.BombRocketCore
	minX, maxX := max(0, origin.X-r), min(c.width-1, origin.X+r)
	minY, maxY := max(0, origin.Y-r), min(c.height-1, origin.Y+r)

	distance := func(p Position) int {
		dx, dy := 0, 0
		if p.X < minX {
			dx = minX - p.X
		} else if p.X > maxX {
			dx = p.X - maxX
		}
		if p.Y < minY {
			dy = minY - p.Y
		} else if p.Y > maxY {
			dy = p.Y - maxY
		}
		return max(dx, dy)
	}

	area := Area{}
	for y := minY; y <= maxY; y++ {
		for x := 0; x < c.width; x++ {
			p := Position{X: x, Y: y}
			area.add(p, distance(p))
		}
	}
	for x := minX; x <= maxX; x++ {
		for y := 0; y < c.height; y++ {
			p := Position{X: x, Y: y}
			area.add(p, distance(p))
		}
	}
	return area
}

func (c EffectCalculator) sweepRow(area Area, origin Position) {
	for x := 0; x < c.width; x++ {
		area.add(Position{X: x, Y: origin.Y}, c.rocketDistance(x-origin.X))
	}
}

func (c EffectCalculator) sweepColumn(area Area, origin Position) {
	for y := 0; y < c.height; y++ {
		area.add(Position{X: origin.X, Y: y}, c.rocketDistance(y-origin.Y))
	}
}

func (c EffectCalculator) rocketDistance(offset int) int {
	return max(0, abs(offset)-c.tuning.RocketBlastRadius)
}

func (c EffectCalculator) square(area Area, origin Position, radius int) {
	for y := max(0, origin.Y-radius); y <= min(c.height-1, origin.Y+radius); y++ {
		for x := max(0, origin.X-radius); x <= min(c.width-1, origin.X+radius); x++ {
			area.add(Position{X: x, Y: y}, 0)
		}
	}
}
