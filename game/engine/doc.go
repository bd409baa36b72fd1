// Package engine provides the board simulation for the Cube Blast puzzle game.
//
// The engine package implements the game mechanics including:
//   - Tiles (colored cubes, obstacles, special items) and their break rules
//   - Same-color group discovery and cluster states
//   - Rocket and bomb effect areas and their combinations
//   - Serialized match resolution, gravity and refill
//   - Move counting, obstacle goals and level outcome
//   - Level description parsing and validation
//
// Core Types:
//
// Board owns the grid. MatchAt may be called concurrently; requests are applied
// one at a time in arrival order and drop-and-refill runs once the queue is empty.
// GameEngine wraps a Board with turn bookkeeping (moves, outcome, history) and is
// what sessions hold. LevelSpec is the JSON level description loaded by a LevelLoader.
// Everything observable for a presentation layer is queued as Event values and
// drained with DrainEvents.
//
// Usage:
//
//	level, err := engine.LoadLevelFile("levels/level_01.json")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	gameEngine, err := engine.NewEngine(level)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Tap a cube group
//	turn, err := gameEngine.Tap(ctx, engine.Position{X: 2, Y: 0})
//	events := gameEngine.DrainEvents()
//
// Game Rules:
//
// Tapping a group of two or more same-colored cubes destroys it and damages the
// obstacles touching it. Groups of three or four leave a rocket behind, five or
// more a bomb. Tapping a special item blasts its area, combined with an adjacent
// special item if there is one. Stones only break under special effects, vases
// take two hits. The level is won when every obstacle is destroyed and failed when
// the moves run out.
package engine
