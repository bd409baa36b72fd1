package engine

// Kind represents the different kinds of tiles a board cell can hold
type Kind string

const (
	KindNone             Kind = ""
	KindCube             Kind = "cube"
	KindBox              Kind = "box"
	KindStone            Kind = "stone"
	KindVase             Kind = "vase"
	KindHorizontalRocket Kind = "horizontal_rocket"
	KindVerticalRocket   Kind = "vertical_rocket"
	KindBomb             Kind = "bomb"
)

// IsObstacle reports whether tiles of this kind are obstacles counted by level goals
func (k Kind) IsObstacle() bool {
	return k == KindBox || k == KindStone || k == KindVase
}

// IsSpecialItem reports whether tiles of this kind trigger an area effect when tapped
func (k Kind) IsSpecialItem() bool {
	return k == KindHorizontalRocket || k == KindVerticalRocket || k == KindBomb
}

// Color is the color of a cube tile
type Color string

const (
	NoColor Color = ""
	Red     Color = "red"
	Green   Color = "green"
	Blue    Color = "blue"
	Yellow  Color = "yellow"
)

// Colors lists the cube colors in the order random refills draw from
var Colors = []Color{Red, Green, Blue, Yellow}

// ClusterState is the state of a cube derived from the size of its same-colored group
type ClusterState string

const (
	ClusterNone   ClusterState = "none"
	ClusterLinked ClusterState = "linked"
	ClusterRocket ClusterState = "rocket"
	ClusterBomb   ClusterState = "bomb"
)

const (
	// Validation constants
	MinBoardSize = 2
	MaxBoardSize = 20
	MaxMoveCount = 999
)

// Position represents x,y coordinates. Y grows upwards, row 0 is the bottom of the board.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add returns the position offset by d
func (p Position) Add(d Position) Position {
	return Position{X: p.X + d.X, Y: p.Y + d.Y}
}

// neighborOffsets is the scan order used for adjacency and partner lookups: +x, +y, -x, -y
var neighborOffsets = [4]Position{{X: 1}, {Y: 1}, {X: -1}, {Y: -1}}

// TileView is the serializable view of a tile
type TileView struct {
	ID             int          `json:"id"`
	Kind           Kind         `json:"kind"`
	Code           string       `json:"code"`
	Color          Color        `json:"color,omitempty"`
	Position       Position     `json:"position"`
	Health         int          `json:"health"`
	Cluster        ClusterState `json:"cluster,omitempty"`
	Interactable   bool         `json:"interactable"`
	Moving         bool         `json:"moving,omitempty"`
	Used           bool         `json:"used,omitempty"`
	CreationOffset int          `json:"creation_offset,omitempty"`
	ExplodeOffset  int          `json:"explode_offset,omitempty"`
	DropDelay      int          `json:"drop_delay,omitempty"`
}

// BoardState represents the complete observable state of a board
type BoardState struct {
	LevelNumber int          `json:"level_number"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	MoveCount   int          `json:"move_count"`
	Goals       map[Kind]int `json:"goals"`
	Tiles       []TileView   `json:"tiles"`
	Won         bool         `json:"won"`
	Failed      bool         `json:"failed"`

	// Rows renders the board top row first using level codes, "." for empty cells
	Rows []string `json:"rows,omitempty"`
}

// TurnRecord represents a single tap in the session history
type TurnRecord struct {
	TurnID     string       `json:"turn_id"`
	TurnNumber int          `json:"turn_number"`
	Position   Position     `json:"position"`
	Kind       Kind         `json:"kind,omitempty"`
	Matched    bool         `json:"matched"`
	Destroyed  int          `json:"destroyed"`
	Broken     map[Kind]int `json:"broken,omitempty"`
	MovesLeft  int          `json:"moves_left"`
	Timestamp  int64        `json:"timestamp"`
}
