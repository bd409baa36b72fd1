package engine

import (
	"testing"
)

func TestKindPredicates(t *testing.T) {
	tests := []struct {
		kind     Kind
		obstacle bool
		special  bool
	}{
		{KindCube, false, false},
		{KindBox, true, false},
		{KindStone, true, false},
		{KindVase, true, false},
		{KindHorizontalRocket, false, true},
		{KindVerticalRocket, false, true},
		{KindBomb, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := tt.kind.IsObstacle(); got != tt.obstacle {
				t.Errorf("Expected IsObstacle %v, got %v", tt.obstacle, got)
			}
			if got := tt.kind.IsSpecialItem(); got != tt.special {
				t.Errorf("Expected IsSpecialItem %v, got %v", tt.special, got)
			}
		})
	}
}

func TestBreakRules(t *testing.T) {
	tests := []struct {
		name      string
		rule      BreakRule
		bySpecial bool
		want      bool
	}{
		{"always breakable by match", AlwaysBreakable, false, true},
		{"always breakable by special", AlwaysBreakable, true, true},
		{"freely breakable by match", FreelyBreakable, false, true},
		{"freely breakable by special", FreelyBreakable, true, true},
		{"special only by match", SpecialOnlyBreakable, false, false},
		{"special only by special", SpecialOnlyBreakable, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.CanBreak(tt.bySpecial); got != tt.want {
				t.Errorf("Expected CanBreak(%v) = %v, got %v", tt.bySpecial, tt.want, got)
			}
		})
	}
}

func TestObstacleTiles(t *testing.T) {
	tests := []struct {
		kind    Kind
		health  int
		rule    BreakRule
		canFall bool
	}{
		{KindBox, 1, FreelyBreakable, false},
		{KindVase, 2, FreelyBreakable, true},
		{KindStone, 1, SpecialOnlyBreakable, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			tile := NewObstacleTile(1, tt.kind)
			if tile == nil {
				t.Fatal("Expected obstacle tile, got nil")
			}
			if tile.Health != tt.health {
				t.Errorf("Expected health %d, got %d", tt.health, tile.Health)
			}
			if tile.Rule != tt.rule {
				t.Errorf("Expected rule %v, got %v", tt.rule, tile.Rule)
			}
			if tile.CanFall() != tt.canFall {
				t.Errorf("Expected CanFall %v, got %v", tt.canFall, tile.CanFall())
			}
			if tile.Interactable {
				t.Error("Expected obstacle not to be interactable")
			}
		})
	}

	if NewObstacleTile(1, KindCube) != nil {
		t.Error("Expected nil for a non-obstacle kind")
	}
}

func TestSpecialTiles(t *testing.T) {
	for _, kind := range []Kind{KindHorizontalRocket, KindVerticalRocket, KindBomb} {
		tile := NewSpecialTile(7, kind)
		if tile == nil {
			t.Fatalf("Expected special tile for %s", kind)
		}
		if !tile.IsSpecialItem() || !tile.CanFall() || !tile.Interactable {
			t.Errorf("Expected %s to be an interactable falling special item", kind)
		}
		if tile.Effect.String() != string(kind) {
			t.Errorf("Expected effect %s, got %s", kind, tile.Effect)
		}
	}
	if NewSpecialTile(1, KindStone) != nil {
		t.Error("Expected nil for a non-special kind")
	}
}

func TestTileHit(t *testing.T) {
	t.Run("vase takes two hits", func(t *testing.T) {
		vase := NewObstacleTile(1, KindVase)
		applied, destroyed := vase.Hit(false)
		if !applied || destroyed {
			t.Errorf("Expected first hit applied without destroying, got applied=%v destroyed=%v", applied, destroyed)
		}
		applied, destroyed = vase.Hit(true)
		if !applied || !destroyed {
			t.Errorf("Expected second hit to destroy, got applied=%v destroyed=%v", applied, destroyed)
		}
		if vase.Health != 0 {
			t.Errorf("Expected health 0, got %d", vase.Health)
		}
	})

	t.Run("stone ignores matches", func(t *testing.T) {
		stone := NewObstacleTile(1, KindStone)
		if applied, _ := stone.Hit(false); applied {
			t.Error("Expected match hit to be ignored")
		}
		if stone.Health != 1 {
			t.Errorf("Expected health 1, got %d", stone.Health)
		}
		if _, destroyed := stone.Hit(true); !destroyed {
			t.Error("Expected special hit to destroy the stone")
		}
	})

	t.Run("destroyed tile ignores further hits", func(t *testing.T) {
		cube := NewColorTile(1, Red)
		cube.Hit(false)
		if applied, _ := cube.Hit(true); applied {
			t.Error("Expected hit on destroyed tile to be ignored")
		}
	})
}

func TestTileCodes(t *testing.T) {
	tests := []struct {
		tile *Tile
		code string
	}{
		{NewColorTile(1, Red), "r"},
		{NewColorTile(1, Green), "g"},
		{NewColorTile(1, Blue), "b"},
		{NewColorTile(1, Yellow), "y"},
		{NewObstacleTile(1, KindBox), "bo"},
		{NewObstacleTile(1, KindStone), "s"},
		{NewObstacleTile(1, KindVase), "v"},
		{NewSpecialTile(1, KindBomb), "t"},
		{NewSpecialTile(1, KindVerticalRocket), "rov"},
		{NewSpecialTile(1, KindHorizontalRocket), "roh"},
	}

	for _, tt := range tests {
		if got := tt.tile.Code(); got != tt.code {
			t.Errorf("Expected code %q for %s, got %q", tt.code, tt.tile.Kind, got)
		}
		cell, err := parseCode(tt.code)
		if err != nil {
			t.Fatalf("Failed to parse code %q: %v", tt.code, err)
		}
		if cell.kind != tt.tile.Kind || cell.color != tt.tile.Color {
			t.Errorf("Expected code %q to parse back to %s/%s, got %s/%s",
				tt.code, tt.tile.Kind, tt.tile.Color, cell.kind, cell.color)
		}
	}
}

func TestClusterStateFor(t *testing.T) {
	tuning := DefaultTuning()
	tests := []struct {
		size int
		want ClusterState
	}{
		{1, ClusterNone},
		{2, ClusterLinked},
		{3, ClusterRocket},
		{4, ClusterRocket},
		{5, ClusterBomb},
		{12, ClusterBomb},
	}

	for _, tt := range tests {
		if got := tuning.clusterStateFor(tt.size); got != tt.want {
			t.Errorf("Expected size %d to be %s, got %s", tt.size, tt.want, got)
		}
	}
}

func TestTuningValidate(t *testing.T) {
	if err := DefaultTuning().Validate(); err != nil {
		t.Fatalf("Expected default tuning to be valid, got %v", err)
	}

	bad := DefaultTuning()
	bad.BombThreshold = bad.RocketThreshold
	if err := bad.Validate(); err == nil {
		t.Error("Expected error when bomb threshold does not exceed rocket threshold")
	}

	bad = DefaultTuning()
	bad.BombComboRadius = 1
	if err := bad.Validate(); err == nil {
		t.Error("Expected error when combo radius is smaller than bomb radius")
	}
}
