package engine

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func createTestLevel() *LevelSpec {
	return &LevelSpec{
		LevelNumber: 1,
		Width:       3,
		Height:      2,
		MoveCount:   10,
		Grid:        []string{"r", "g", "bo", "rand", "s", "v"},
	}
}

func TestValidateLevel(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(l *LevelSpec)
		wantErr string
	}{
		{"valid", func(l *LevelSpec) {}, ""},
		{"zero level number", func(l *LevelSpec) { l.LevelNumber = 0 }, "level_number"},
		{"narrow grid", func(l *LevelSpec) { l.Width = 1 }, "grid_width"},
		{"tall grid", func(l *LevelSpec) { l.Height = MaxBoardSize + 1 }, "grid_height"},
		{"no moves", func(l *LevelSpec) { l.MoveCount = 0 }, "move_count"},
		{"cell count mismatch", func(l *LevelSpec) { l.Grid = l.Grid[:5] }, "grid must have 6 cells"},
		{"unknown code", func(l *LevelSpec) { l.Grid[4] = "x" }, `unknown cell code "x"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level := createTestLevel()
			tt.mutate(level)
			err := ValidateLevel(level)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidLevel) {
				t.Errorf("Expected ErrInvalidLevel, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %q", tt.wantErr, err.Error())
			}
		})
	}

	if err := ValidateLevel(nil); !errors.Is(err, ErrInvalidLevel) {
		t.Errorf("Expected ErrInvalidLevel for nil level, got %v", err)
	}
}

func TestUnknownCodeReportsPosition(t *testing.T) {
	level := createTestLevel()
	level.Grid[4] = "zz"
	err := ValidateLevel(level)
	if err == nil || !strings.Contains(err.Error(), "x=1 y=1") {
		t.Errorf("Expected error to name x=1 y=1, got %v", err)
	}
}

func TestLevelGoals(t *testing.T) {
	goals := LevelGoals(createTestLevel())
	want := map[Kind]int{KindBox: 1, KindStone: 1, KindVase: 1}
	if len(goals) != len(want) {
		t.Fatalf("Expected %d goal kinds, got %v", len(want), goals)
	}
	for k, n := range want {
		if goals[k] != n {
			t.Errorf("Expected %d %s, got %d", n, k, goals[k])
		}
	}
}

func TestLoadLevelFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid file", func(t *testing.T) {
		data, _ := json.Marshal(createTestLevel())
		path := filepath.Join(dir, LevelFileName(1))
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatal(err)
		}

		level, err := LoadLevelFile(path)
		if err != nil {
			t.Fatalf("Failed to load level: %v", err)
		}
		if level.Width != 3 || level.Height != 2 || level.MoveCount != 10 {
			t.Errorf("Unexpected level dimensions: %+v", level)
		}
	})

	t.Run("original field names", func(t *testing.T) {
		raw := `{"level_number": 2, "grid_width": 2, "grid_height": 2, "move_count": 5, "grid": ["r","r","t","s"]}`
		path := filepath.Join(dir, LevelFileName(2))
		if err := os.WriteFile(path, []byte(raw), 0644); err != nil {
			t.Fatal(err)
		}
		level, err := LoadLevelFile(path)
		if err != nil {
			t.Fatalf("Failed to load level: %v", err)
		}
		if level.LevelNumber != 2 || level.Grid[2] != "t" {
			t.Errorf("Unexpected level: %+v", level)
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		path := filepath.Join(dir, "broken.json")
		os.WriteFile(path, []byte("{not json"), 0644)
		if _, err := LoadLevelFile(path); err == nil {
			t.Error("Expected error for invalid JSON")
		}
	})

	t.Run("invalid level", func(t *testing.T) {
		level := createTestLevel()
		level.MoveCount = -1
		data, _ := json.Marshal(level)
		path := filepath.Join(dir, "invalid.json")
		os.WriteFile(path, data, 0644)
		if _, err := LoadLevelFile(path); !errors.Is(err, ErrInvalidLevel) {
			t.Errorf("Expected ErrInvalidLevel, got %v", err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		if _, err := LoadLevelFile(filepath.Join(dir, "nope.json")); err == nil {
			t.Error("Expected error for missing file")
		}
	})
}

func TestLevelFileName(t *testing.T) {
	if got := LevelFileName(3); got != "level_03.json" {
		t.Errorf("Expected level_03.json, got %s", got)
	}
	if got := LevelFileName(12); got != "level_12.json" {
		t.Errorf("Expected level_12.json, got %s", got)
	}
}
