// Package config loads and stores the files that parameterize the game.
//
// Levels are JSON files named level_NN.json in a levels directory. Manager
// caches parsed levels, lists them in level order, saves new ones and keeps a
// default level (the lowest numbered one, or a small built-in level when the
// directory is empty). Manager implements engine.LevelLoader so engines can
// switch levels through it.
//
// Gameplay tuning (rocket and bomb radii, cluster thresholds) is read from a
// YAML file with LoadTuning. Keys missing from the file keep their defaults.
//
// Usage:
//
//	levels, err := config.NewManager("levels")
//	if err != nil {
//		log.Fatal(err)
//	}
//	tuning, err := config.LoadTuning("tuning.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//	eng, err := engine.NewEngine(levels.GetDefault(),
//		engine.WithTuning(tuning), engine.WithLoader(levels))
package config
