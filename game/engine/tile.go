package engine

// BreakRule decides whether a hit counts against a tile's health
type BreakRule uint8

const (
	// AlwaysBreakable tiles take damage from any hit
	AlwaysBreakable BreakRule = iota
	// FreelyBreakable tiles take damage from adjacent matches and special effects
	FreelyBreakable
	// SpecialOnlyBreakable tiles ignore adjacent matches and only break under special effects
	SpecialOnlyBreakable
)

// CanBreak reports whether a hit coming from a special effect (or not) damages the tile
func (r BreakRule) CanBreak(bySpecial bool) bool {
	switch r {
	case AlwaysBreakable, FreelyBreakable:
		return true
	case SpecialOnlyBreakable:
		return bySpecial
	default:
		return false
	}
}

// Tile is a single board occupant: a colored cube, an obstacle or a special item.
// Which fields are meaningful depends on Kind.
type Tile struct {
	ID       int
	Kind     Kind
	Color    Color
	Health   int
	Rule     BreakRule
	Position Position

	Interactable bool
	Moving       bool

	// Cubes only
	Cluster ClusterState

	// Special items only
	Effect            Effect
	Used              bool
	UsedInCombination bool

	// Presentation hints, never read by the simulation
	CreationOffset int
	ExplodeOffset  int
	DropDelay      int
}

// NewColorTile creates a cube of the given color
func NewColorTile(id int, color Color) *Tile {
	return &Tile{
		ID:      id,
		Kind:    KindCube,
		Color:   color,
		Health:  1,
		Rule:    AlwaysBreakable,
		Cluster: ClusterNone,
	}
}

// NewObstacleTile creates an obstacle. Returns nil when kind is not an obstacle.
func NewObstacleTile(id int, kind Kind) *Tile {
	t := &Tile{ID: id, Kind: kind, Health: 1}
	switch kind {
	case KindBox:
		t.Rule = FreelyBreakable
	case KindVase:
		t.Rule = FreelyBreakable
		t.Health = 2
	case KindStone:
		t.Rule = SpecialOnlyBreakable
	default:
		return nil
	}
	return t
}

// NewSpecialTile creates a rocket or bomb. Returns nil when kind is not a special item.
func NewSpecialTile(id int, kind Kind) *Tile {
	effect := effectForKind(kind)
	if effect == EffectNone {
		return nil
	}
	return &Tile{
		ID:           id,
		Kind:         kind,
		Health:       1,
		Rule:         AlwaysBreakable,
		Effect:       effect,
		Interactable: true,
	}
}

// IsObstacle reports whether the tile is an obstacle
func (t *Tile) IsObstacle() bool {
	return t.Kind.IsObstacle()
}

// IsSpecialItem reports whether the tile is a rocket or bomb
func (t *Tile) IsSpecialItem() bool {
	return t.Kind.IsSpecialItem()
}

// CanFall reports whether gravity moves this tile. Vases are the only falling obstacle.
func (t *Tile) CanFall() bool {
	if t.IsObstacle() {
		return t.Kind == KindVase
	}
	return true
}

// Hit applies one hit to the tile. applied is false when the break rule ignores it;
// destroyed is true when the hit took the last point of health.
func (t *Tile) Hit(bySpecial bool) (applied, destroyed bool) {
	if t.Health <= 0 || !t.Rule.CanBreak(bySpecial) {
		return false, false
	}
	t.Health--
	return true, t.Health == 0
}

// SetPosition moves the tile's logical position without scheduling a drop
func (t *Tile) SetPosition(p Position) {
	t.Position = p
}

// DropTo gives the tile its settled destination after gravity
func (t *Tile) DropTo(p Position) {
	t.Position = p
	t.Moving = false
}

// setCluster applies a recomputed cluster state to a cube
func (t *Tile) setCluster(state ClusterState) {
	t.Cluster = state
	t.Interactable = state != ClusterNone
}

// Code returns the level-file code for the tile
func (t *Tile) Code() string {
	if t.Kind == KindCube {
		return colorCodes[t.Color]
	}
	return kindCodes[t.Kind]
}

// View returns a serializable copy of the tile
func (t *Tile) View() TileView {
	return TileView{
		ID:             t.ID,
		Kind:           t.Kind,
		Code:           t.Code(),
		Color:          t.Color,
		Position:       t.Position,
		Health:         t.Health,
		Cluster:        clusterOf(t),
		Interactable:   t.Interactable,
		Moving:         t.Moving,
		Used:           t.Used,
		CreationOffset: t.CreationOffset,
		ExplodeOffset:  t.ExplodeOffset,
		DropDelay:      t.DropDelay,
	}
}

func clusterOf(t *Tile) ClusterState {
	if t.Kind != KindCube {
		return ""
	}
	return t.Cluster
}
