// Command validate checks Cube Blast level files. For every level_*.json file
// in the levels directory (or the files named on the command line) it checks:
//   - JSON structure, board size, move count and cell codes
//   - The file name matches the level number (level_NN.json)
//   - The opening board offers a move: a cluster of two or more cubes or a special item
//
// An optional tuning file is validated as well.
package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/wricardo/cube-blast-game/game/config"
	"github.com/wricardo/cube-blast-game/game/engine"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

var errSomeInvalid = errors.New("❌ Some levels have errors")

// openingSeed fixes the random refill of "rand" cells so reports are reproducible
const openingSeed = 42

// validateLevel loads and validates a single level file, then builds the
// opening board to check that the first move exists.
func validateLevel(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	level, err := engine.LoadLevelFile(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	if expected := engine.LevelFileName(level.LevelNumber); result.File != expected {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("File name %s does not match level_number %d (expected %s)", result.File, level.LevelNumber, expected))
	}

	eng, err := engine.NewEngine(level, engine.WithRand(rand.New(rand.NewPCG(openingSeed, openingSeed))))
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to build board: %v", err))
		return result
	}
	state, err := eng.State(context.Background())
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, fmt.Sprintf("Failed to read board: %v", err))
		return result
	}

	_, clusterSize, _ := engine.LargestCluster(state)
	specials := countSpecials(state)
	if clusterSize < 2 && specials == 0 && !hasRandomCells(level) {
		result.Valid = false
		result.Errors = append(result.Errors, "Opening board has no move: no cluster of 2+ cubes and no special item")
	}

	// Add informational data
	if result.Valid {
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Level: %d", level.LevelNumber))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Grid: %dx%d", level.Width, level.Height))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Moves: %d", level.MoveCount))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Goals: %s", formatGoals(engine.LevelGoals(level))))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Largest opening cluster: %d", clusterSize))
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Special items: %d", specials))
	}

	return result
}

// validateTuning checks a tuning YAML file
func validateTuning(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	tuning, err := config.LoadTuning(filePath)
	if err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	result.Errors = append(result.Errors,
		fmt.Sprintf("✓ Rocket threshold: %d", tuning.RocketThreshold),
		fmt.Sprintf("✓ Bomb threshold: %d", tuning.BombThreshold),
		fmt.Sprintf("✓ Bomb radius: %d (combo %d)", tuning.BombRadius, tuning.BombComboRadius),
	)
	return result
}

func countSpecials(state *engine.BoardState) int {
	n := 0
	for _, t := range state.Tiles {
		if t.Kind.IsSpecialItem() {
			n++
		}
	}
	return n
}

func hasRandomCells(level *engine.LevelSpec) bool {
	for _, code := range level.Grid {
		if strings.EqualFold(strings.TrimSpace(code), engine.CodeRandom) {
			return true
		}
	}
	return false
}

// formatGoals renders goals as "box x3, vase x1", sorted by kind
func formatGoals(goals map[engine.Kind]int) string {
	if len(goals) == 0 {
		return "none"
	}
	kinds := make([]string, 0, len(goals))
	for k := range goals {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = fmt.Sprintf("%s x%d", k, goals[engine.Kind(k)])
	}
	return strings.Join(parts, ", ")
}

// printResult prints a concise report for one file and reports whether it was valid
func printResult(result ValidationResult) bool {
	fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

	if result.Valid {
		fmt.Println("✅ VALID")
		for _, info := range result.Errors {
			fmt.Println("  " + info)
		}
		return true
	}

	fmt.Println("❌ INVALID")
	for _, err := range result.Errors {
		if !strings.HasPrefix(err, "✓") {
			fmt.Println("  ❌ " + err)
		}
	}
	return false
}

// levelFiles returns the files named on the command line, or every level file in dir
func levelFiles(dir string, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	files, err := filepath.Glob(filepath.Join(dir, "level_*.json"))
	if err != nil {
		return nil, fmt.Errorf("error finding level files: %w", err)
	}
	sort.Strings(files)
	return files, nil
}

func run(ctx context.Context, cmd *cli.Command) error {
	files, err := levelFiles(cmd.String("dir"), cmd.Args().Slice())
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no level files found in %s", cmd.String("dir"))
	}

	allValid := true
	for _, file := range files {
		if !printResult(validateLevel(file)) {
			allValid = false
		}
	}
	if tuningPath := cmd.String("tuning"); tuningPath != "" {
		if !printResult(validateTuning(tuningPath)) {
			allValid = false
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if !allValid {
		return errSomeInvalid
	}
	fmt.Println("✅ All levels are valid!")
	return nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "validate Cube Blast level files",
		ArgsUsage: "[level files...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "dir", Aliases: []string{"d"}, Value: "levels", Usage: "directory scanned for level_*.json when no files are given"},
			&cli.StringFlag{Name: "tuning", Aliases: []string{"t"}, Usage: "tuning YAML file to validate as well"},
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
