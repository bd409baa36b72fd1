package engine

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
)

// Option configures a Board or a GameEngine
type Option func(*options)

type options struct {
	tuning Tuning
	rng    *rand.Rand
	loader LevelLoader
}

// WithTuning overrides the default gameplay variables
func WithTuning(t Tuning) Option {
	return func(o *options) { o.tuning = t }
}

// WithRand sets the random source used for refills and rocket directions
func WithRand(r *rand.Rand) Option {
	return func(o *options) { o.rng = r }
}

// WithLoader sets the loader used by GameEngine.ChangeLevel
func WithLoader(l LevelLoader) Option {
	return func(o *options) { o.loader = l }
}

func buildOptions(opts []Option) options {
	o := options{tuning: DefaultTuning()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.rng == nil {
		o.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return o
}

// MatchResult summarizes one MatchAt call. Destroyed and Broken include special items
// chained from the tap; Partner only describes the tapped item's own combination.
type MatchResult struct {
	Position  Position     `json:"position"`
	Kind      Kind         `json:"kind,omitempty"`
	Matched   bool         `json:"matched"`
	Partner   Kind         `json:"partner,omitempty"`
	Destroyed int          `json:"destroyed"`
	Broken    map[Kind]int `json:"broken,omitempty"`
	Created   *TileView    `json:"created,omitempty"`
}

// Board is the simulation grid of one level. MatchAt may be called from many goroutines;
// requests are applied one at a time in arrival order and gravity runs once the queue is empty.
type Board struct {
	tuning Tuning
	rng    *rand.Rand
	seq    *sequencer
	events EventQueue
	chains atomic.Int32

	// Owned by the goroutine holding the sequencer turn
	level     *LevelSpec
	width     int
	height    int
	cells     []*Tile
	effects   EffectCalculator
	nextID    int
	destroyed map[Position]int
	dirty     bool
	settles   int

	mu          sync.Mutex // guards the fields below
	initialized bool
	moveCount   int
	goals       map[Kind]int
}

// NewBoard creates an empty board. Call Initialize before matching.
func NewBoard(opts ...Option) (*Board, error) {
	return newBoard(buildOptions(opts))
}

func newBoard(o options) (*Board, error) {
	if err := o.tuning.Validate(); err != nil {
		return nil, err
	}
	b := &Board{
		tuning:    o.tuning,
		rng:       o.rng,
		destroyed: make(map[Position]int),
		goals:     make(map[Kind]int),
	}
	b.seq = newSequencer(b.settle)
	return b, nil
}

// Initialize rebuilds the board from a level. Queued match requests are cancelled.
// On validation failure the current board is left untouched.
func (b *Board) Initialize(ctx context.Context, level *LevelSpec) error {
	if err := ValidateLevel(level); err != nil {
		return err
	}
	b.seq.cancelPending()
	if _, err := b.seq.acquire(ctx); err != nil {
		return err
	}
	defer b.seq.release()

	cells := make([]string, len(level.Grid))
	copy(cells, level.Grid)
	b.build(level, cells, nil, level.MoveCount)
	return nil
}

// build replaces the grid. Empty codes leave the cell empty. Caller holds the turn.
func (b *Board) build(level *LevelSpec, codes []string, health []int, moves int) {
	b.level = level.Clone()
	b.width = level.Width
	b.height = level.Height
	b.effects = NewEffectCalculator(b.width, b.height, b.tuning)
	b.cells = make([]*Tile, b.width*b.height)
	b.destroyed = make(map[Position]int)
	b.dirty = false
	b.events.clear()

	goals := make(map[Kind]int)
	for i, code := range codes {
		if code == "" {
			continue
		}
		cell, _ := parseCode(code)
		var t *Tile
		switch {
		case cell.kind == KindCube:
			color := cell.color
			if cell.random {
				color = b.randomColor()
			}
			t = NewColorTile(b.newID(), color)
		case cell.kind.IsObstacle():
			t = NewObstacleTile(b.newID(), cell.kind)
			goals[cell.kind]++
		default:
			t = NewSpecialTile(b.newID(), cell.kind)
		}
		if health != nil && health[i] > 0 {
			t.Health = health[i]
		}
		t.SetPosition(b.positionOf(i))
		b.cells[i] = t
	}
	b.recomputeClusters()

	b.mu.Lock()
	b.initialized = true
	b.moveCount = moves
	b.goals = goals
	b.mu.Unlock()

	b.events.Push(Event{Type: EventTilesCreated, Tiles: b.views(), Initial: true})
}

// MatchAt applies a tap at pos. Taps on empty cells, obstacles, single cubes or used
// special items return a result with Matched false. The call returns once every special
// item chained from the tap has been activated.
func (b *Board) MatchAt(ctx context.Context, pos Position) (*MatchResult, error) {
	return b.playTurn(ctx, pos, nil, nil)
}

// turn tracks one tap together with the special activations chained from it
type turn struct {
	epoch  uint64
	res    *MatchResult
	chains sync.WaitGroup
}

func newTurn(epoch uint64, pos Position) *turn {
	return &turn{epoch: epoch, res: &MatchResult{Position: pos, Broken: make(map[Kind]int)}}
}

// playTurn runs one tap in its turn. before may refuse the tap and after sees the result
// of the destructive phase; both run while the turn is held.
func (b *Board) playTurn(ctx context.Context, pos Position, before func() error, after func(*MatchResult)) (*MatchResult, error) {
	epoch, err := b.seq.acquire(ctx)
	if err != nil {
		return nil, err
	}

	tr := newTurn(epoch, pos)
	err = func() error {
		defer b.seq.release()
		if before != nil {
			if err := before(); err != nil {
				return err
			}
		}
		b.resolve(tr)
		if b.seq.currentEpoch() != epoch {
			return ErrMatchCancelled
		}
		if after != nil {
			after(tr.res)
		}
		return nil
	}()
	if err != nil {
		return nil, err
	}

	tr.chains.Wait()
	return tr.res, nil
}

func (b *Board) resolve(tr *turn) *MatchResult {
	res := tr.res
	t := b.tileAt(res.Position)
	if t == nil {
		return res
	}
	res.Kind = t.Kind

	switch {
	case t.IsSpecialItem():
		if !t.Used {
			t.ExplodeOffset = 0
			b.activateSpecial(t, tr, false)
		}
	case t.Kind == KindCube:
		if t.Interactable {
			b.matchCluster(t, res)
		}
	}
	return res
}

// matchCluster destroys the same-colored group of t, damages obstacles touching it
// and spawns a special item at t's position for big enough groups.
func (b *Board) matchCluster(t *Tile, res *MatchResult) {
	origin := t.Position
	members, obstacles := b.collectCluster(b.index(origin), make([]bool, len(b.cells)))
	res.Matched = true

	for _, m := range members {
		m.ExplodeOffset = 0
		b.hit(m, false, KindCube, res)
	}
	for _, o := range obstacles {
		o.ExplodeOffset = 0
		b.hit(o, false, KindCube, res)
	}

	var kind Kind
	switch b.tuning.clusterStateFor(len(members)) {
	case ClusterBomb:
		kind = KindBomb
	case ClusterRocket:
		kind = KindHorizontalRocket
		if b.rng.IntN(2) == 1 {
			kind = KindVerticalRocket
		}
	}
	if kind == KindNone {
		return
	}

	special := NewSpecialTile(b.newID(), kind)
	special.SetPosition(origin)
	b.cells[b.index(origin)] = special
	view := special.View()
	res.Created = &view
	b.events.Push(Event{
		Type:       EventTilesCreated,
		Position:   origin,
		Tiles:      []TileView{view},
		AtPosition: true,
		Animate:    true,
	})
}

// activateSpecial applies the effect of t, combined with an adjacent special item if any.
// t may already be off the grid when it runs as a chained activation.
func (b *Board) activateSpecial(t *Tile, tr *turn, chained bool) {
	res := tr.res
	t.Used = true
	res.Matched = true
	origin := t.Position

	var area Area
	partner := b.findPartner(origin, t)
	if partner != nil {
		partner.Used = true
		partner.UsedInCombination = true
		if !chained {
			res.Partner = partner.Kind
		}
		area = b.effects.Combined(t.Effect, partner.Effect, origin)
	} else {
		area = b.effects.Solo(t.Effect, origin)
	}

	for _, cell := range area.Cells() {
		target := b.tileAt(cell.Position)
		if target == nil {
			continue
		}
		trigger := t.Kind
		if target == t && partner != nil {
			trigger = partner.Kind
		}
		target.ExplodeOffset = cell.Distance + t.ExplodeOffset
		if !b.hit(target, true, trigger, res) {
			continue
		}
		if target != t && target.IsSpecialItem() && !target.Used {
			b.chain(target, tr)
		}
	}
}

// chain queues the activation of a special item destroyed by another effect.
// Its destruction is counted in the result of the tap that started the chain.
func (b *Board) chain(t *Tile, tr *turn) {
	tr.chains.Add(1)
	b.chains.Add(1)
	b.seq.enqueueJob(tr.epoch, func() {
		b.events.Push(Event{
			Type:          EventSpecialTriggered,
			TileID:        t.ID,
			Kind:          t.Kind,
			Position:      t.Position,
			ExplodeOffset: t.ExplodeOffset,
		})
		b.activateSpecial(t, tr, true)
	}, func() {
		b.chains.Add(-1)
		tr.chains.Done()
	})
}

// chainsPending reports whether chained activations are still queued
func (b *Board) chainsPending() bool {
	return b.chains.Load() > 0
}

// findPartner picks the special item combined with the one at origin: the first unused
// special in scan order, unless a bomb is adjacent.
func (b *Board) findPartner(origin Position, self *Tile) *Tile {
	var partner *Tile
	for _, d := range neighborOffsets {
		n := b.tileAt(origin.Add(d))
		if n == nil || n == self || !n.IsSpecialItem() || n.Used {
			continue
		}
		if n.Kind == KindBomb {
			return n
		}
		if partner == nil {
			partner = n
		}
	}
	return partner
}

// hit applies one hit and reports whether it destroyed the tile
func (b *Board) hit(t *Tile, bySpecial bool, trigger Kind, res *MatchResult) bool {
	applied, destroyed := t.Hit(bySpecial)
	if !applied {
		return false
	}
	b.events.Push(Event{
		Type:          EventTileMatched,
		TileID:        t.ID,
		Kind:          t.Kind,
		Trigger:       trigger,
		Position:      t.Position,
		Destroyed:     destroyed,
		ExplodeOffset: t.ExplodeOffset,
	})
	if !destroyed {
		return false
	}

	b.cells[b.index(t.Position)] = nil
	b.destroyed[t.Position] = t.ExplodeOffset
	b.dirty = true
	res.Destroyed++
	if t.IsObstacle() {
		res.Broken[t.Kind]++
		b.progressGoal(t.Kind, t.Position)
	}
	return true
}

func (b *Board) progressGoal(kind Kind, pos Position) {
	b.mu.Lock()
	remaining, ok := b.goals[kind]
	if ok {
		remaining--
		if remaining <= 0 {
			delete(b.goals, kind)
			remaining = 0
		} else {
			b.goals[kind] = remaining
		}
	}
	b.mu.Unlock()
	if ok {
		b.events.Push(Event{Type: EventGoalProgress, Kind: kind, Position: pos, Remaining: remaining})
	}
}

// SpendMove decrements the move counter by n, never below zero
func (b *Board) SpendMove(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.moveCount = max(b.moveCount-n, 0)
}

// MoveCount returns the remaining moves
func (b *Board) MoveCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.moveCount
}

// Goals returns a copy of the remaining obstacle counts
func (b *Board) Goals() map[Kind]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	goals := make(map[Kind]int, len(b.goals))
	for k, v := range b.goals {
		goals[k] = v
	}
	return goals
}

// IsLevelWon reports whether every goal obstacle has been destroyed
func (b *Board) IsLevelWon() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized && len(b.goals) == 0
}

// IsLevelFailed reports whether the move counter reached zero
func (b *Board) IsLevelFailed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.initialized && b.moveCount <= 0
}

// DrainEvents returns and clears the events queued since the last drain
func (b *Board) DrainEvents() []Event {
	return b.events.Drain()
}

// State returns a consistent view of the board after in-flight matches settle
func (b *Board) State(ctx context.Context) (*BoardState, error) {
	if _, err := b.seq.acquire(ctx); err != nil {
		return nil, err
	}
	defer b.seq.release()

	state := &BoardState{
		Width:  b.width,
		Height: b.height,
		Tiles:  b.views(),
		Rows:   b.rows(),
	}
	if b.level != nil {
		state.LevelNumber = b.level.LevelNumber
	}
	state.MoveCount = b.MoveCount()
	state.Goals = b.Goals()
	state.Won = b.IsLevelWon()
	state.Failed = !state.Won && b.IsLevelFailed()
	return state, nil
}

// Level returns a copy of the level the board was built from, or nil
func (b *Board) Level(ctx context.Context) (*LevelSpec, error) {
	if _, err := b.seq.acquire(ctx); err != nil {
		return nil, err
	}
	defer b.seq.release()
	if b.level == nil {
		return nil, nil
	}
	return b.level.Clone(), nil
}

// CheckInvariants verifies the structural invariants of a settled board
func (b *Board) CheckInvariants(ctx context.Context) error {
	if _, err := b.seq.acquire(ctx); err != nil {
		return err
	}
	defer b.seq.release()

	ids := make(map[int]bool)
	obstacles := make(map[Kind]int)
	for i, t := range b.cells {
		if t == nil {
			continue
		}
		if t.Position != b.positionOf(i) {
			return fmt.Errorf("tile %d at index %v reports position %v", t.ID, b.positionOf(i), t.Position)
		}
		if t.Health <= 0 {
			return fmt.Errorf("tile %d at %v has health %d", t.ID, t.Position, t.Health)
		}
		if ids[t.ID] {
			return fmt.Errorf("duplicate tile id %d", t.ID)
		}
		ids[t.ID] = true
		if t.IsObstacle() {
			obstacles[t.Kind]++
		}
	}
	goals := b.Goals()
	if len(goals) != len(obstacles) {
		return fmt.Errorf("goal tally %v does not match obstacles on board %v", goals, obstacles)
	}
	for k, n := range obstacles {
		if goals[k] != n {
			return fmt.Errorf("goal tally %v does not match obstacles on board %v", goals, obstacles)
		}
	}
	return nil
}

func (b *Board) newID() int {
	b.nextID++
	return b.nextID
}

func (b *Board) randomColor() Color {
	return Colors[b.rng.IntN(len(Colors))]
}

func (b *Board) inBounds(p Position) bool {
	return p.X >= 0 && p.X < b.width && p.Y >= 0 && p.Y < b.height
}

func (b *Board) index(p Position) int {
	return p.Y*b.width + p.X
}

func (b *Board) positionOf(i int) Position {
	return Position{X: i % b.width, Y: i / b.width}
}

func (b *Board) tileAt(p Position) *Tile {
	if b.cells == nil || !b.inBounds(p) {
		return nil
	}
	return b.cells[b.index(p)]
}

func (b *Board) views() []TileView {
	views := make([]TileView, 0, len(b.cells))
	for _, t := range b.cells {
		if t != nil {
			views = append(views, t.View())
		}
	}
	return views
}
