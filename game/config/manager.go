package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/cube-blast-game/game/engine"
	"github.com/wricardo/cube-blast-game/game/service"
)

// ErrLevelMismatch is returned when a level file holds a different level number than its name
var ErrLevelMismatch = errors.New("level number does not match file name")

// Manager handles level loading and caching
type Manager struct {
	levelsDir    string
	defaultLevel *engine.LevelSpec
	levels       map[int]*engine.LevelSpec
	mu           sync.RWMutex
}

// NewManager creates a new level manager for a directory of level files
func NewManager(levelsDir string) (*Manager, error) {
	// Ensure levels directory exists
	if _, err := os.Stat(levelsDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("levels directory does not exist: %s", levelsDir)
	}

	m := &Manager{
		levelsDir: levelsDir,
		levels:    make(map[int]*engine.LevelSpec),
	}

	if err := m.loadDefaultLevel(); err != nil {
		return nil, fmt.Errorf("failed to load default level: %w", err)
	}

	return m, nil
}

// LoadLevel loads a level by number. The returned level is a copy the caller may modify.
func (m *Manager) LoadLevel(number int) (*engine.LevelSpec, error) {
	m.mu.RLock()
	// Check cache first
	if level, exists := m.levels[number]; exists {
		m.mu.RUnlock()
		return level.Clone(), nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if level, exists := m.levels[number]; exists {
		return level.Clone(), nil
	}

	path := filepath.Join(m.levelsDir, engine.LevelFileName(number))
	level, err := engine.LoadLevelFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("level %d: %w", number, engine.ErrLevelNotFound)
		}
		return nil, err
	}
	if level.LevelNumber != number {
		return nil, fmt.Errorf("%w: %s holds level %d", ErrLevelMismatch, engine.LevelFileName(number), level.LevelNumber)
	}

	m.levels[number] = level
	return level.Clone(), nil
}

// ListLevels returns information about all valid level files, ordered by level number
func (m *Manager) ListLevels() ([]*service.LevelInfo, error) {
	entries, err := os.ReadDir(m.levelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read levels directory: %w", err)
	}

	levels := []*service.LevelInfo{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		number, ok := levelNumber(entry.Name())
		if !ok {
			continue
		}

		level, err := m.LoadLevel(number)
		if err != nil {
			// Skip invalid levels
			continue
		}

		levels = append(levels, &service.LevelInfo{
			Filename:    entry.Name(),
			LevelNumber: level.LevelNumber,
			Width:       level.Width,
			Height:      level.Height,
			MoveCount:   level.MoveCount,
			Goals:       engine.LevelGoals(level),
		})
	}

	sort.Slice(levels, func(i, j int) bool {
		return levels[i].LevelNumber < levels[j].LevelNumber
	})
	return levels, nil
}

// GetDefault returns a copy of the default level
func (m *Manager) GetDefault() *engine.LevelSpec {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.defaultLevel == nil {
		return nil
	}
	return m.defaultLevel.Clone()
}

// SetDefault sets the default level by number
func (m *Manager) SetDefault(number int) error {
	level, err := m.LoadLevel(number)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultLevel = level
	return nil
}

// RefreshCache drops all cached levels and reloads the default from disk
func (m *Manager) RefreshCache() error {
	m.mu.Lock()
	m.levels = make(map[int]*engine.LevelSpec)
	m.mu.Unlock()

	return m.loadDefaultLevel()
}

// loadDefaultLevel picks the lowest numbered valid level, or a minimal built-in level
func (m *Manager) loadDefaultLevel() error {
	levels, err := m.ListLevels()
	if err != nil {
		return err
	}

	var level *engine.LevelSpec
	if len(levels) > 0 {
		level, err = m.LoadLevel(levels[0].LevelNumber)
		if err != nil {
			return err
		}
	} else {
		level = createMinimalLevel()
	}

	m.mu.Lock()
	m.defaultLevel = level
	m.mu.Unlock()
	return nil
}

// SaveLevel validates a level and writes it to disk under its level number
func (m *Manager) SaveLevel(level *engine.LevelSpec) error {
	if err := engine.ValidateLevel(level); err != nil {
		return err
	}

	data, err := json.MarshalIndent(level, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal level: %w", err)
	}

	path := filepath.Join(m.levelsDir, engine.LevelFileName(level.LevelNumber))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write level file: %w", err)
	}

	// Update cache
	m.mu.Lock()
	m.levels[level.LevelNumber] = level.Clone()
	m.mu.Unlock()

	return nil
}

// levelNumber extracts the level number from a file name such as level_03.json
func levelNumber(filename string) (int, bool) {
	if !strings.HasPrefix(filename, "level_") || !strings.HasSuffix(filename, ".json") {
		return 0, false
	}
	var n int
	if _, err := fmt.Sscanf(filename, "level_%d.json", &n); err != nil || n < 1 {
		return 0, false
	}
	return n, engine.LevelFileName(n) == filename
}

// createMinimalLevel creates a minimal valid level: random cubes around a single box
func createMinimalLevel() *engine.LevelSpec {
	const size = 5
	grid := make([]string, size*size)
	for i := range grid {
		grid[i] = engine.CodeRandom
	}
	grid[size/2+size*(size/2)] = "bo"
	return &engine.LevelSpec{
		LevelNumber: 1,
		Width:       size,
		Height:      size,
		MoveCount:   20,
		Grid:        grid,
	}
}
