package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	// ErrInvalidLevel is wrapped by every level validation failure
	ErrInvalidLevel = errors.New("level validation")
	// ErrLevelNotFound is returned by loaders for unknown level numbers
	ErrLevelNotFound = errors.New("level not found")
)

// CodeRandom places a cube of a random color
const CodeRandom = "rand"

var colorCodes = map[Color]string{
	Red:    "r",
	Green:  "g",
	Blue:   "b",
	Yellow: "y",
}

var kindCodes = map[Kind]string{
	KindBomb:             "t",
	KindVerticalRocket:   "rov",
	KindHorizontalRocket: "roh",
	KindBox:              "bo",
	KindStone:            "s",
	KindVase:             "v",
}

// LevelSpec is the static description of a level as stored in level files.
// Grid is indexed x + width*y with row 0 at the bottom.
type LevelSpec struct {
	LevelNumber int      `json:"level_number"`
	Width       int      `json:"grid_width"`
	Height      int      `json:"grid_height"`
	MoveCount   int      `json:"move_count"`
	Grid        []string `json:"grid"`
}

// LevelLoader resolves a level number to its description
type LevelLoader interface {
	LoadLevel(number int) (*LevelSpec, error)
}

// LevelFileName returns the file name a level is stored under
func LevelFileName(number int) string {
	return fmt.Sprintf("level_%02d.json", number)
}

// cellSpec is a parsed level code
type cellSpec struct {
	kind   Kind
	color  Color
	random bool
}

func parseCode(code string) (cellSpec, error) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == CodeRandom {
		return cellSpec{kind: KindCube, random: true}, nil
	}
	for color, c := range colorCodes {
		if c == code {
			return cellSpec{kind: KindCube, color: color}, nil
		}
	}
	for kind, c := range kindCodes {
		if c == code {
			return cellSpec{kind: kind}, nil
		}
	}
	return cellSpec{}, fmt.Errorf("%w: unknown cell code %q", ErrInvalidLevel, code)
}

// ValidateLevel validates a level description for correctness and playability
func ValidateLevel(level *LevelSpec) error {
	if level == nil {
		return fmt.Errorf("%w: level is nil", ErrInvalidLevel)
	}
	if level.LevelNumber < 1 {
		return fmt.Errorf("%w: level_number must be at least 1, got %d", ErrInvalidLevel, level.LevelNumber)
	}
	if level.Width < MinBoardSize || level.Width > MaxBoardSize {
		return fmt.Errorf("%w: grid_width must be between %d and %d, got %d",
			ErrInvalidLevel, MinBoardSize, MaxBoardSize, level.Width)
	}
	if level.Height < MinBoardSize || level.Height > MaxBoardSize {
		return fmt.Errorf("%w: grid_height must be between %d and %d, got %d",
			ErrInvalidLevel, MinBoardSize, MaxBoardSize, level.Height)
	}
	if level.MoveCount < 1 || level.MoveCount > MaxMoveCount {
		return fmt.Errorf("%w: move_count must be between 1 and %d, got %d", ErrInvalidLevel, MaxMoveCount, level.MoveCount)
	}
	if len(level.Grid) != level.Width*level.Height {
		return fmt.Errorf("%w: grid must have %d cells to match %dx%d, got %d",
			ErrInvalidLevel, level.Width*level.Height, level.Width, level.Height, len(level.Grid))
	}
	for i, code := range level.Grid {
		if _, err := parseCode(code); err != nil {
			return fmt.Errorf("%w at x=%d y=%d", err, i%level.Width, i/level.Width)
		}
	}
	return nil
}

// LevelGoals counts the obstacles of a level by kind
func LevelGoals(level *LevelSpec) map[Kind]int {
	goals := make(map[Kind]int)
	for _, code := range level.Grid {
		cell, err := parseCode(code)
		if err == nil && cell.kind.IsObstacle() {
			goals[cell.kind]++
		}
	}
	return goals
}

// LoadLevelFile loads and validates a level from a JSON file
func LoadLevelFile(path string) (*LevelSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var level LevelSpec
	if err := json.Unmarshal(data, &level); err != nil {
		return nil, fmt.Errorf("failed to parse level file '%s': %w", path, err)
	}

	if err := ValidateLevel(&level); err != nil {
		return nil, err
	}

	return &level, nil
}

// Clone returns a deep copy of the level
func (l *LevelSpec) Clone() *LevelSpec {
	c := *l
	c.Grid = append([]string(nil), l.Grid...)
	return &c
}
