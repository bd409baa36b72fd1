package main

import (
	"context"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/wricardo/cube-blast-game/transport/mcp"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName == "" {
		t.Error("AppName should not be empty")
	}

	expectedVersion := "1.0.0"
	if Version != expectedVersion {
		t.Errorf("Expected version %s, got %s", expectedVersion, Version)
	}

	expectedAppName := "Cube Blast Game Server"
	if AppName != expectedAppName {
		t.Errorf("Expected app name %s, got %s", expectedAppName, AppName)
	}
}

// withDirs points the storage flags at fresh temp directories for one test
func withDirs(t *testing.T) (string, string) {
	t.Helper()
	levels := t.TempDir()
	sessions := filepath.Join(t.TempDir(), "sessions")

	origLevels, origSessions, origTuning := *levelsDir, *sessionsDir, *tuningFile
	origRedis, origNats := *redisAddr, *natsURL
	*levelsDir, *sessionsDir, *tuningFile = levels, sessions, ""
	*redisAddr, *natsURL = "", ""
	t.Cleanup(func() {
		*levelsDir, *sessionsDir, *tuningFile = origLevels, origSessions, origTuning
		*redisAddr, *natsURL = origRedis, origNats
	})
	return levels, sessions
}

func TestInitializeServices(t *testing.T) {
	_, sessions := withDirs(t)

	app, err := initializeServices(context.Background(), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer app.Close()

	if app.game == nil {
		t.Fatal("Expected game service to be initialized")
	}
	if app.sessions == nil {
		t.Fatal("Expected session manager to be initialized")
	}
	if app.persistence == nil {
		t.Fatal("Expected file persistence to be initialized")
	}

	info, err := app.game.CreateSession(context.Background(), 0)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	if _, err := os.Stat(filepath.Join(sessions, strings.ToLower(info.ID)+".json")); err != nil {
		t.Errorf("Expected session file to be written: %v", err)
	}
}

func TestInitializeServices_InvalidLevelsDir(t *testing.T) {
	withDirs(t)
	*levelsDir = "/non/existent/path"

	_, err := initializeServices(context.Background(), zap.NewNop())
	if err == nil {
		t.Error("Expected error for non-existent levels directory")
	}
}

func TestInitializeServices_InvalidTuningFile(t *testing.T) {
	withDirs(t)
	*tuningFile = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := initializeServices(context.Background(), zap.NewNop())
	if err == nil {
		t.Error("Expected error for missing tuning file")
	}
}

func TestInitializeServices_CustomTuning(t *testing.T) {
	withDirs(t)
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("rocket_threshold: 4\n"), 0644); err != nil {
		t.Fatalf("Failed to write tuning file: %v", err)
	}
	*tuningFile = path

	app, err := initializeServices(context.Background(), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	app.Close()
}

func TestInitializeServices_UnreachableRedis(t *testing.T) {
	withDirs(t)
	*redisAddr = "127.0.0.1:1"

	_, err := initializeServices(context.Background(), zap.NewNop())
	if err == nil {
		t.Error("Expected error for unreachable redis")
	}
}

func TestPruneOrphanedSessions(t *testing.T) {
	_, sessions := withDirs(t)

	app, err := initializeServices(context.Background(), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer app.Close()

	ctx := context.Background()
	kept, err := app.game.CreateSession(ctx, 0)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}
	gone, err := app.game.CreateSession(ctx, 0)
	if err != nil {
		t.Fatalf("Failed to create session: %v", err)
	}

	if err := os.Remove(filepath.Join(sessions, strings.ToLower(gone.ID)+".json")); err != nil {
		t.Fatalf("Failed to remove session file: %v", err)
	}

	pruned := pruneOrphanedSessions(ctx, app.sessions, app.persistence, zap.NewNop())
	if pruned != 1 {
		t.Errorf("Expected 1 pruned session, got %d", pruned)
	}
	if app.sessions.Count() != 1 {
		t.Errorf("Expected 1 session in memory, got %d", app.sessions.Count())
	}
	if _, err := app.game.GetSession(ctx, kept.ID); err != nil {
		t.Errorf("Expected kept session to be available, got %v", err)
	}
}

func TestSessionCleanupRoutineStops(t *testing.T) {
	withDirs(t)
	app, err := initializeServices(context.Background(), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to initialize services: %v", err)
	}
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sessionCleanupRoutine(ctx, app.sessions, time.Hour, 10*time.Millisecond, zap.NewNop())
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Expected cleanup routine to stop after cancel")
	}
}

func TestMCPHandler(t *testing.T) {
	handler := mcpHandler(mcp.NewClient("http://127.0.0.1:1"))

	t.Run("rejects GET", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest("GET", "/mcp", nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("Expected status %d, got %d", http.StatusMethodNotAllowed, w.Code)
		}
	})

	t.Run("answers ping", func(t *testing.T) {
		body := strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"ping"}`)
		w := httptest.NewRecorder()
		handler(w, httptest.NewRequest("POST", "/mcp", body))

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
		}
		if ct := w.Header().Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected JSON content type, got %s", ct)
		}
		if !strings.Contains(w.Body.String(), `"jsonrpc":"2.0"`) {
			t.Errorf("Expected JSON-RPC response, got %s", w.Body.String())
		}
	})
}

func TestNgrokShouldRun(t *testing.T) {
	orig := *ngrokEnabled
	defer func() { *ngrokEnabled = orig }()

	tests := []struct {
		name string
		flag bool
		env  string
		want bool
	}{
		{"disabled", false, "", false},
		{"flag", true, "", true},
		{"env true", false, "true", true},
		{"env 1", false, "1", true},
		{"env other", false, "yes", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			*ngrokEnabled = tt.flag
			t.Setenv("NGROK_ENABLED", tt.env)
			if got := ngrokShouldRun(); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestNgrokAuthToken(t *testing.T) {
	orig := *ngrokAuth
	defer func() { *ngrokAuth = orig }()

	*ngrokAuth = ""
	t.Setenv("NGROK_AUTHTOKEN", "")
	t.Setenv("NGROK_AUTH_TOKEN", "alt")
	if got := ngrokAuthToken(); got != "alt" {
		t.Errorf("Expected alt, got %s", got)
	}

	t.Setenv("NGROK_AUTHTOKEN", "primary")
	if got := ngrokAuthToken(); got != "primary" {
		t.Errorf("Expected primary, got %s", got)
	}

	*ngrokAuth = "flag"
	if got := ngrokAuthToken(); got != "flag" {
		t.Errorf("Expected flag, got %s", got)
	}
}

func TestGetEnvDefault(t *testing.T) {
	t.Setenv("CUBE_BLAST_TEST_VAR", "")
	if got := getEnvDefault("CUBE_BLAST_TEST_VAR", "fallback"); got != "fallback" {
		t.Errorf("Expected fallback, got %s", got)
	}
	t.Setenv("CUBE_BLAST_TEST_VAR", "set")
	if got := getEnvDefault("CUBE_BLAST_TEST_VAR", "fallback"); got != "set" {
		t.Errorf("Expected set, got %s", got)
	}
}

func TestNewLogger(t *testing.T) {
	for _, debug := range []bool{true, false} {
		logger, err := newLogger(debug)
		if err != nil {
			t.Fatalf("Failed to create logger (debug=%v): %v", debug, err)
		}
		if logger == nil {
			t.Fatal("Expected logger")
		}
	}
}

func TestFlagDefaults(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"port", "8080"},
		{"host", "localhost"},
		{"debug", "false"},
		{"version", "false"},
		{"ngrok", "false"},
		{"session-max-age", "24h0m0s"},
		{"redis-ttl", "168h0m0s"},
		{"nats-prefix", "cubeblast"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := flag.Lookup(tt.name)
			if f == nil {
				t.Fatalf("Expected flag %s to be registered", tt.name)
			}
			if f.DefValue != tt.expected {
				t.Errorf("Expected default %s, got %s", tt.expected, f.DefValue)
			}
		})
	}
}
