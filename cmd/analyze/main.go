// Command analyze prints quick, human-readable heuristics about Cube Blast level
// files. It summarizes dimensions, moves and goals, the colors and special items
// on the opening board, the opening clusters big enough to spawn rockets or bombs,
// and the win rate of a greedy player over a number of seeded runs.
package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/cube-blast-game/game/config"
	"github.com/wricardo/cube-blast-game/game/engine"
)

// LevelReport is the analysis of a single level file
type LevelReport struct {
	File        string
	Level       *engine.LevelSpec
	Goals       map[engine.Kind]int
	Colors      map[engine.Color]int
	RandomCells int
	Specials    int
	// Clusters holds the sizes of the opening cube groups of two or more, largest first
	Clusters       []int
	RocketClusters int
	BombClusters   int
	Simulation     SimulationReport
}

// SimulationReport aggregates greedy playthroughs of a level
type SimulationReport struct {
	Runs         int
	Wins         int
	Stuck        int
	AvgTurns     float64
	AvgMovesLeft float64 // over won runs
}

// WinRate returns the share of won runs in percent
func (s SimulationReport) WinRate() float64 {
	if s.Runs == 0 {
		return 0
	}
	return float64(s.Wins) * 100 / float64(s.Runs)
}

func analyzeLevel(ctx context.Context, path string, tuning engine.Tuning, runs int, seed uint64) (*LevelReport, error) {
	level, err := engine.LoadLevelFile(path)
	if err != nil {
		return nil, err
	}

	report := &LevelReport{
		File:   filepath.Base(path),
		Level:  level,
		Goals:  engine.LevelGoals(level),
		Colors: make(map[engine.Color]int),
	}

	for _, code := range level.Grid {
		if strings.EqualFold(strings.TrimSpace(code), engine.CodeRandom) {
			report.RandomCells++
		}
	}

	eng, err := engine.NewEngine(level, engine.WithTuning(tuning), engine.WithRand(rand.New(rand.NewPCG(seed, 0))))
	if err != nil {
		return nil, err
	}
	state, err := eng.State(ctx)
	if err != nil {
		return nil, err
	}

	for _, t := range state.Tiles {
		switch {
		case t.Kind == engine.KindCube:
			report.Colors[t.Color]++
		case t.Kind.IsSpecialItem():
			report.Specials++
		}
	}

	report.Clusters = clusterSizes(state)
	for _, size := range report.Clusters {
		switch {
		case size >= tuning.BombThreshold:
			report.BombClusters++
		case size >= tuning.RocketThreshold:
			report.RocketClusters++
		}
	}

	report.Simulation, err = simulate(ctx, level, tuning, runs, seed)
	if err != nil {
		return nil, err
	}
	return report, nil
}

// clusterSizes flood-fills same-colored cube groups and returns the sizes of groups of two or more
func clusterSizes(state *engine.BoardState) []int {
	byPos := make(map[engine.Position]engine.TileView, len(state.Tiles))
	for _, t := range state.Tiles {
		byPos[t.Position] = t
	}

	offsets := []engine.Position{{X: 1}, {Y: 1}, {X: -1}, {Y: -1}}
	seen := make(map[engine.Position]bool)
	var sizes []int
	for _, t := range state.Tiles {
		if t.Kind != engine.KindCube || seen[t.Position] {
			continue
		}
		size := 0
		stack := []engine.Position{t.Position}
		seen[t.Position] = true
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			size++
			for _, d := range offsets {
				n := p.Add(d)
				other, ok := byPos[n]
				if !ok || seen[n] || other.Kind != engine.KindCube || other.Color != t.Color {
					continue
				}
				seen[n] = true
				stack = append(stack, n)
			}
		}
		if size >= 2 {
			sizes = append(sizes, size)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(sizes)))
	return sizes
}

// simulate plays the level runs times with engine.SuggestTap, one seed per run
func simulate(ctx context.Context, level *engine.LevelSpec, tuning engine.Tuning, runs int, seed uint64) (SimulationReport, error) {
	report := SimulationReport{Runs: runs}
	totalTurns, totalMovesLeft := 0, 0

	for i := 0; i < runs; i++ {
		eng, err := engine.NewEngine(level, engine.WithTuning(tuning), engine.WithRand(rand.New(rand.NewPCG(seed, uint64(i)+1))))
		if err != nil {
			return report, err
		}

		// A tap that matches nothing spends no move, so bound the loop
		for turns := 0; turns < level.MoveCount*2+10 && !eng.IsGameOver(); turns++ {
			state, err := eng.State(ctx)
			if err != nil {
				return report, err
			}
			pos, ok := engine.SuggestTap(state)
			if !ok {
				report.Stuck++
				break
			}
			if _, err := eng.Tap(ctx, pos); err != nil {
				return report, fmt.Errorf("run %d: %w", i+1, err)
			}
		}

		totalTurns += len(eng.History())
		if eng.IsVictory() {
			report.Wins++
			totalMovesLeft += eng.MoveCount()
		}
	}

	if runs > 0 {
		report.AvgTurns = float64(totalTurns) / float64(runs)
	}
	if report.Wins > 0 {
		report.AvgMovesLeft = float64(totalMovesLeft) / float64(report.Wins)
	}
	return report, nil
}

func printReport(w io.Writer, r *LevelReport) {
	fmt.Fprintf(w, "\n=== Analyzing %s ===\n", r.File)
	fmt.Fprintf(w, "Level: %d\n", r.Level.LevelNumber)
	fmt.Fprintf(w, "Grid Size: %d x %d\n", r.Level.Width, r.Level.Height)
	fmt.Fprintf(w, "Moves: %d\n", r.Level.MoveCount)
	fmt.Fprintf(w, "Goals: %s\n", formatGoals(r.Goals))
	fmt.Fprintf(w, "Colors: %s\n", formatColors(r.Colors))
	fmt.Fprintf(w, "Random cells: %d\n", r.RandomCells)
	fmt.Fprintf(w, "Special items: %d\n", r.Specials)
	fmt.Fprintf(w, "Opening clusters: %d (rocket-sized %d, bomb-sized %d)\n", len(r.Clusters), r.RocketClusters, r.BombClusters)

	if len(r.Clusters) == 0 && r.Specials == 0 {
		fmt.Fprintf(w, "⚠️  CRITICAL: the opening board has no move\n")
	}

	goalTotal := 0
	for _, n := range r.Goals {
		goalTotal += n
	}
	if goalTotal > r.Level.MoveCount*2 {
		fmt.Fprintf(w, "⚠️  WARNING: %d obstacles for %d moves, the level leans on special items\n", goalTotal, r.Level.MoveCount)
	}

	sim := r.Simulation
	if sim.Runs == 0 {
		return
	}
	fmt.Fprintf(w, "Greedy win rate: %.0f%% (%d/%d runs, %d stuck)\n", sim.WinRate(), sim.Wins, sim.Runs, sim.Stuck)
	fmt.Fprintf(w, "Average turns: %.1f\n", sim.AvgTurns)
	if sim.Wins > 0 {
		fmt.Fprintf(w, "Average moves left on wins: %.1f\n", sim.AvgMovesLeft)
	} else {
		fmt.Fprintf(w, "⚠️  WARNING: the greedy player never wins this level\n")
	}
}

func formatGoals(goals map[engine.Kind]int) string {
	if len(goals) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(goals))
	for k, n := range goals {
		parts = append(parts, fmt.Sprintf("%s x%d", k, n))
	}
	sort.Strings(parts)
	return strings.Join(parts, ", ")
}

func formatColors(colors map[engine.Color]int) string {
	if len(colors) == 0 {
		return "none"
	}
	parts := make([]string, 0, len(colors))
	for _, c := range engine.Colors {
		if n := colors[c]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", c, n))
		}
	}
	return strings.Join(parts, ", ")
}

func run(ctx context.Context, cmd *cli.Command) error {
	tuning, err := config.LoadTuning(cmd.String("tuning"))
	if err != nil {
		return err
	}

	files := cmd.Args().Slice()
	if len(files) == 0 {
		files, err = filepath.Glob(filepath.Join(cmd.String("dir"), "level_*.json"))
		if err != nil {
			return fmt.Errorf("error finding level files: %w", err)
		}
		sort.Strings(files)
	}
	if len(files) == 0 {
		return fmt.Errorf("no level files found in %s", cmd.String("dir"))
	}

	runs := int(cmd.Int("runs"))
	seed := uint64(cmd.Int("seed"))
	for _, file := range files {
		report, err := analyzeLevel(ctx, file, tuning, runs, seed)
		if err != nil {
			fmt.Fprintf(cmd.Root().Writer, "\n=== Analyzing %s ===\nError: %v\n", filepath.Base(file), err)
			continue
		}
		printReport(cmd.Root().Writer, report)
	}
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "analyze",
		Usage:     "print heuristics about Cube Blast level files",
		ArgsUsage: "[level files...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Value: "levels", Usage: "directory scanned for level_*.json when no files are given"},
			&cli.StringFlag{Name: "tuning", Aliases: []string{"t"}, Usage: "tuning YAML file (defaults apply when empty)"},
			&cli.IntFlag{Name: "runs", Aliases: []string{"n"}, Value: 20, Usage: "greedy playthroughs per level"},
			&cli.IntFlag{Name: "seed", Value: 1, Usage: "seed of the first playthrough"},
		},
		Action: run,
	}
}

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
