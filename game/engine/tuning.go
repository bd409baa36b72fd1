package engine

import "fmt"

// Tuning holds the gameplay variables shared by every board of a server.
// It is loaded once (see config.LoadTuning) and passed to NewBoard / NewEngine.
type Tuning struct {
	// RocketBlastRadius is the number of cells on each side of a rocket hit with no delay
	RocketBlastRadius int `yaml:"rocket_blast_radius" json:"rocket_blast_radius"`
	// RocketThreshold is the minimum cluster size that spawns a rocket
	RocketThreshold int `yaml:"rocket_threshold" json:"rocket_threshold"`
	// BombThreshold is the minimum cluster size that spawns a bomb
	BombThreshold int `yaml:"bomb_threshold" json:"bomb_threshold"`
	// BombRadius is the Chebyshev radius of a solo bomb
	BombRadius int `yaml:"bomb_radius" json:"bomb_radius"`
	// BombComboRadius is the Chebyshev radius of two combined bombs
	BombComboRadius int `yaml:"bomb_combo_radius" json:"bomb_combo_radius"`
	// BombRocketCore is the radius of the square whose rows and columns a bomb+rocket sweeps
	BombRocketCore int `yaml:"bomb_rocket_core" json:"bomb_rocket_core"`
}

// DefaultTuning returns the standard gameplay variables
func DefaultTuning() Tuning {
	return Tuning{
		RocketBlastRadius: 1,
		RocketThreshold:   3,
		BombThreshold:     5,
		BombRadius:        2,
		BombComboRadius:   3,
		BombRocketCore:    1,
	}
}

// Validate checks that the tuning values describe a playable game
func (t Tuning) Validate() error {
	if t.RocketBlastRadius < 0 {
		return fmt.Errorf("tuning validation: rocket_blast_radius must not be negative, got %d", t.RocketBlastRadius)
	}
	if t.RocketThreshold < 2 {
		return fmt.Errorf("tuning validation: rocket_threshold must be at least 2, got %d", t.RocketThreshold)
	}
	if t.BombThreshold <= t.RocketThreshold {
		return fmt.Errorf("tuning validation: bomb_threshold (%d) must be greater than rocket_threshold (%d)",
			t.BombThreshold, t.RocketThreshold)
	}
	if t.BombRadius < 1 || t.BombComboRadius < t.BombRadius {
		return fmt.Errorf("tuning validation: bomb radii must satisfy 1 <= bomb_radius (%d) <= bomb_combo_radius (%d)",
			t.BombRadius, t.BombComboRadius)
	}
	if t.BombRocketCore < 0 {
		return fmt.Errorf("tuning validation: bomb_rocket_core must not be negative, got %d", t.BombRocketCore)
	}
	return nil
}

// clusterStateFor maps a cluster size to its state. Bomb is checked before rocket.
func (t Tuning) clusterStateFor(size int) ClusterState {
	switch {
	case size >= t.BombThreshold:
		return ClusterBomb
	case size >= t.RocketThreshold:
		return ClusterRocket
	case size >= 2:
		return ClusterLinked
	default:
		return ClusterNone
	}
}
