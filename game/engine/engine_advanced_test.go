package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestConcurrentMatchesSettleOnce(t *testing.T) {
	b := newTestBoard(t, levelFromRows(1, 10,
		"g y g y g y",
		"y g y g y g",
		"r r g y b b",
	))
	ctx := context.Background()

	// Hold the turn so both requests queue behind it
	if _, err := b.seq.acquire(ctx); err != nil {
		t.Fatal(err)
	}

	results := make([]*MatchResult, 2)
	var wg sync.WaitGroup
	for i, pos := range []Position{{X: 0, Y: 0}, {X: 5, Y: 0}} {
		wg.Add(1)
		go func(i int, pos Position) {
			defer wg.Done()
			res, err := b.MatchAt(ctx, pos)
			if err != nil {
				t.Errorf("MatchAt %v failed: %v", pos, err)
				return
			}
			results[i] = res
		}(i, pos)
		waitFor(t, "match to queue", func() bool { return b.seq.waiting() == i+1 })
	}

	b.seq.release()
	wg.Wait()

	for i, res := range results {
		if res == nil || !res.Matched || res.Destroyed != 2 {
			t.Errorf("Expected request %d to destroy a pair, got %+v", i, res)
		}
	}
	if b.settles != 1 {
		t.Errorf("Expected exactly one gravity pass, got %d", b.settles)
	}

	events := b.DrainEvents()
	var matchedX []int
	for _, e := range eventsOfType(events, EventTileMatched) {
		matchedX = append(matchedX, e.Position.X)
	}
	if len(matchedX) != 4 || matchedX[0] > 1 || matchedX[1] > 1 || matchedX[2] < 4 || matchedX[3] < 4 {
		t.Errorf("Expected the red pair before the blue pair, got columns %v", matchedX)
	}
	if created := eventsOfType(events, EventTilesCreated); len(created) != 1 || len(created[0].Tiles) != 4 {
		t.Errorf("Expected one refill batch of 4 tiles, got %+v", created)
	}
	assertInvariants(t, b)
}

func TestInitializeCancelsQueuedMatches(t *testing.T) {
	level := levelFromRows(1, 10,
		"g y g",
		"y g y",
		"r r g",
	)
	b := newTestBoard(t, level)
	ctx := context.Background()

	if _, err := b.seq.acquire(ctx); err != nil {
		t.Fatal(err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := b.MatchAt(ctx, Position{X: 0, Y: 0})
		errCh <- err
	}()
	waitFor(t, "match to queue", func() bool { return b.seq.waiting() == 1 })

	initDone := make(chan error, 1)
	go func() {
		initDone <- b.Initialize(ctx, level)
	}()

	if err := <-errCh; !errors.Is(err, ErrMatchCancelled) {
		t.Errorf("Expected ErrMatchCancelled, got %v", err)
	}
	waitFor(t, "reset to queue", func() bool { return b.seq.waiting() == 1 })

	b.seq.release()
	if err := <-initDone; err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if tile := b.tileAt(Position{X: 0, Y: 0}); tile == nil || tile.Color != Red {
		t.Errorf("Expected the cancelled match never to apply, got %+v", tile)
	}
	events := b.DrainEvents()
	if len(events) != 1 || !events[0].Initial {
		t.Errorf("Expected only the initial placement event, got %+v", events)
	}
	if b.settles != 0 {
		t.Errorf("Expected no gravity pass, got %d", b.settles)
	}
}

func TestInFlightMatchCancelledByReset(t *testing.T) {
	level := levelFromRows(1, 10,
		"g y g y g",
		"y g y g y",
		"roh y g t g",
		"y g y g y",
		"g y g y g",
	)
	b := newTestBoard(t, level)
	ctx := context.Background()

	epoch, err := b.seq.acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	// Simulate a destructive phase that is interrupted by a reset before it finishes
	res := b.resolve(newTurn(epoch, Position{X: 0, Y: 2}))
	if !res.Matched {
		t.Fatal("Expected the rocket to fire")
	}

	initDone := make(chan error, 1)
	go func() {
		initDone <- b.Initialize(ctx, level)
	}()
	waitFor(t, "reset to queue", func() bool { return b.seq.waiting() == 1 })

	if b.seq.currentEpoch() == epoch {
		t.Fatal("Expected the reset to start a new epoch")
	}
	b.seq.release()
	if err := <-initDone; err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	// The chained bomb belonged to the old board and must not run on the new one
	for _, e := range b.DrainEvents() {
		if e.Type == EventSpecialTriggered {
			t.Errorf("Expected stale chained activation to be dropped, got %+v", e)
		}
	}
	if tile := b.tileAt(Position{X: 3, Y: 2}); tile == nil || tile.Kind != KindBomb {
		t.Errorf("Expected the bomb back in place after reset, got %+v", tile)
	}
	if b.chainsPending() {
		t.Error("Expected the dropped chain to be released")
	}
	assertInvariants(t, b)
}

func TestMatchAtHonoursContext(t *testing.T) {
	b := newTestBoard(t, levelFromRows(1, 10, "r r", "g y"))

	if _, err := b.seq.acquire(context.Background()); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := b.MatchAt(ctx, Position{X: 0, Y: 1}); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
	b.seq.release()

	res := mustMatch(t, b, 0, 1)
	if !res.Matched {
		t.Error("Expected the board to accept matches after the timeout")
	}
}

func TestConcurrentTaps(t *testing.T) {
	e := createTestEngine(t, levelFromRows(1, 500,
		"rand rand rand rand rand rand rand",
		"rand rand rand rand rand rand rand",
		"rand rand rand bo rand rand rand",
		"rand rand rand rand rand rand rand",
		"rand rand rand rand rand rand rand",
		"rand rand rand rand rand rand rand",
		"rand rand rand rand rand rand rand",
	))
	ctx := context.Background()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				pos := Position{X: (g + i) % 7, Y: (g * i) % 7}
				if _, err := e.Tap(ctx, pos); err != nil && !errors.Is(err, ErrLevelOver) {
					t.Errorf("Tap failed: %v", err)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	matched := 0
	for _, turn := range e.History() {
		if turn.Matched {
			matched++
		}
	}
	if e.MoveCount() != 500-matched {
		t.Errorf("Expected %d moves left, got %d", 500-matched, e.MoveCount())
	}
	if err := e.Board().CheckInvariants(ctx); err != nil {
		t.Errorf("Invariant violated: %v", err)
	}
}

func TestQueuedTapsStopAtLastMove(t *testing.T) {
	e := createTestEngine(t, levelFromRows(1, 1,
		"g g y",
		"y s y",
		"r r b",
	))
	ctx := context.Background()

	// Hold the turn so both taps pass the outcome check before either one plays
	if _, err := e.board.seq.acquire(ctx); err != nil {
		t.Fatal(err)
	}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i, pos := range []Position{{X: 0, Y: 0}, {X: 0, Y: 2}} {
		wg.Add(1)
		go func(i int, pos Position) {
			defer wg.Done()
			_, errs[i] = e.Tap(ctx, pos)
		}(i, pos)
		waitFor(t, "tap to queue", func() bool { return e.board.seq.waiting() == i+1 })
	}

	e.board.seq.release()
	wg.Wait()

	if errs[0] != nil {
		t.Errorf("Expected the first tap to play, got %v", errs[0])
	}
	if !errors.Is(errs[1], ErrLevelOver) {
		t.Errorf("Expected ErrLevelOver for the tap queued behind the last move, got %v", errs[1])
	}
	if e.MoveCount() != 0 {
		t.Errorf("Expected 0 moves left, got %d", e.MoveCount())
	}
	if e.Outcome() != OutcomeFailed {
		t.Errorf("Expected outcome failed, got %s", e.Outcome())
	}
	if len(e.History()) != 1 {
		t.Errorf("Expected one recorded turn, got %d", len(e.History()))
	}

	state, err := e.State(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !state.Failed || state.MoveCount != 0 {
		t.Errorf("Expected a failed state at 0 moves, got failed=%v moves=%d", state.Failed, state.MoveCount)
	}
	if failed := eventsOfType(e.DrainEvents(), EventLevelFailed); len(failed) != 1 {
		t.Errorf("Expected one level_failed event, got %d", len(failed))
	}
}

func TestChainedBreaksCountInTurn(t *testing.T) {
	rows := []string{
		"g y g y g",
		"y g y g y",
		"roh y g t g",
		"y g y g y",
		"g y g y bo",
	}

	tests := []struct {
		name  string
		moves int
	}{
		{"moves to spare", 10},
		{"last move", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := createTestEngine(t, levelFromRows(1, tt.moves, rows...))

			turn, err := e.Tap(context.Background(), Position{X: 0, Y: 2})
			if err != nil {
				t.Fatalf("Tap failed: %v", err)
			}
			if turn.Match.Broken[KindBox] != 1 {
				t.Errorf("Expected the box broken by the chained bomb, got %v", turn.Match.Broken)
			}
			if turn.Outcome != OutcomeWon {
				t.Errorf("Expected the chained bomb to win the level, got %s", turn.Outcome)
			}
			if turn.MovesLeft != tt.moves-1 {
				t.Errorf("Expected %d moves left, got %d", tt.moves-1, turn.MovesLeft)
			}

			last := e.LastTurn()
			if last == nil || last.Broken[KindBox] != 1 || last.Destroyed != turn.Match.Destroyed {
				t.Errorf("Expected the history to record the chained break, got %+v", last)
			}

			events := e.DrainEvents()
			if n := len(eventsOfType(events, EventLevelFailed)); n != 0 {
				t.Errorf("Expected no level_failed event, got %d", n)
			}
			if n := len(eventsOfType(events, EventLevelWon)); n != 1 {
				t.Errorf("Expected one level_won event, got %d", n)
			}
		})
	}
}

func TestStateReportsEngineOutcome(t *testing.T) {
	e := createTestEngine(t, levelFromRows(1, 5, "r r", "g y"))
	ctx := context.Background()

	state, err := e.State(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if state.Won || state.Failed {
		t.Errorf("Expected a level without obstacles to be in play before the first tap, got won=%v failed=%v", state.Won, state.Failed)
	}
	if e.Outcome() != OutcomePlaying {
		t.Errorf("Expected outcome playing, got %s", e.Outcome())
	}

	if _, err := e.Tap(ctx, Position{X: 0, Y: 1}); err != nil {
		t.Fatalf("Tap failed: %v", err)
	}
	state, err = e.State(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !state.Won || e.Outcome() != OutcomeWon {
		t.Errorf("Expected the first match to win, got won=%v outcome=%s", state.Won, e.Outcome())
	}
}
