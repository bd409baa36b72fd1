package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wricardo/cube-blast-game/game/engine"
)

func TestLoadTuning(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write tuning file: %v", err)
		}
		return path
	}

	tests := []struct {
		name    string
		path    string
		want    func(engine.Tuning) bool
		wantErr string
	}{
		{
			name: "empty path returns defaults",
			path: "",
			want: func(tu engine.Tuning) bool { return tu == engine.DefaultTuning() },
		},
		{
			name: "partial file keeps defaults",
			path: write("partial.yaml", "bomb_radius: 3\nbomb_combo_radius: 4\n"),
			want: func(tu engine.Tuning) bool {
				return tu.BombRadius == 3 && tu.BombComboRadius == 4 && tu.RocketThreshold == 3
			},
		},
		{
			name:    "invalid values",
			path:    write("invalid.yaml", "rocket_threshold: 6\nbomb_threshold: 5\n"),
			wantErr: "tuning validation",
		},
		{
			name:    "malformed yaml",
			path:    write("broken.yaml", "bomb_radius: [1\n"),
			wantErr: "failed to parse",
		},
		{
			name:    "missing file",
			path:    filepath.Join(dir, "missing.yaml"),
			wantErr: "failed to read",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tuning, err := LoadTuning(tt.path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadTuning failed: %v", err)
			}
			if !tt.want(tuning) {
				t.Errorf("Unexpected tuning %+v", tuning)
			}
		})
	}
}

func TestSaveTuning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	tuning := engine.DefaultTuning()
	tuning.RocketBlastRadius = 2

	if err := SaveTuning(path, tuning); err != nil {
		t.Fatalf("SaveTuning failed: %v", err)
	}
	loaded, err := LoadTuning(path)
	if err != nil {
		t.Fatalf("LoadTuning failed: %v", err)
	}
	if loaded != tuning {
		t.Errorf("Expected %+v, got %+v", tuning, loaded)
	}

	tuning.BombRadius = 0
	if err := SaveTuning(path, tuning); err == nil {
		t.Error("Expected error saving invalid tuning")
	}
}
