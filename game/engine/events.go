package engine

import "sync"

// EventType identifies a board notification
type EventType string

const (
	EventTileMatched      EventType = "tile_matched"
	EventTilesCreated     EventType = "tiles_created"
	EventTileDropped      EventType = "tile_dropped"
	EventGoalProgress     EventType = "goal_progress"
	EventSpecialTriggered EventType = "special_triggered"
	EventLevelWon         EventType = "level_won"
	EventLevelFailed      EventType = "level_failed"
)

// Event is a timing-free notification for presentation layers.
// Only the fields relevant to Type are set.
type Event struct {
	Seq      uint64    `json:"seq"`
	Type     EventType `json:"type"`
	TileID   int       `json:"tile_id,omitempty"`
	Kind     Kind      `json:"kind,omitempty"`
	Trigger  Kind      `json:"trigger,omitempty"`
	Position Position  `json:"position"`
	From     *Position `json:"from,omitempty"`

	Destroyed     bool `json:"destroyed,omitempty"`
	ExplodeOffset int  `json:"explode_offset,omitempty"`

	Tiles      []TileView `json:"tiles,omitempty"`
	Initial    bool       `json:"initial,omitempty"`
	AtPosition bool       `json:"at_position,omitempty"`
	Animate    bool       `json:"animate,omitempty"`

	DropDelay      int `json:"drop_delay,omitempty"`
	CreationOffset int `json:"creation_offset,omitempty"`

	Remaining int `json:"remaining,omitempty"`
}

// EventQueue collects events in emission order until the caller drains them
type EventQueue struct {
	mu     sync.Mutex
	seq    uint64
	events []Event
}

// Push appends an event, stamping its sequence number
func (q *EventQueue) Push(e Event) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.seq++
	e.Seq = q.seq
	q.events = append(q.events, e)
}

// Drain returns all queued events and empties the queue
func (q *EventQueue) Drain() []Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	events := q.events
	q.events = nil
	return events
}

// Len returns the number of queued events
func (q *EventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// clear discards queued events without resetting the sequence
func (q *EventQueue) clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.events = nil
}
