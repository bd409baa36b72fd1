// Command cube-blast-game starts the Cube Blast game server.
//
// It supports two modes:
//  1. "server" (default) – runs the HTTP server exposing REST API, WebSocket, and an /mcp HTTP endpoint
//  2. "stdio-mcp" – runs an MCP stdio server and spins up an internal HTTP API if none is available
//
// Flags control host/port, level and session storage, gameplay tuning, debug
// logging, optional Redis session storage, NATS turn publishing and ngrok
// tunneling for easy external access during development.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"

	"github.com/wricardo/cube-blast-game/api"
	"github.com/wricardo/cube-blast-game/game/config"
	"github.com/wricardo/cube-blast-game/game/engine"
	"github.com/wricardo/cube-blast-game/game/service"
	"github.com/wricardo/cube-blast-game/game/session"
	"github.com/wricardo/cube-blast-game/transport/mcp"
	natstransport "github.com/wricardo/cube-blast-game/transport/nats"
	"github.com/wricardo/cube-blast-game/transport/websocket"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "Cube Blast Game Server"
)

// Configuration flags control how the server starts and which services are enabled.
var (
	port          = flag.Int("port", 8080, "HTTP server port")
	host          = flag.String("host", "localhost", "HTTP server host")
	levelsDir     = flag.String("levels-dir", getEnvDefault("LEVELS_DIR", "levels"), "Directory containing level files")
	sessionsDir   = flag.String("sessions-dir", getEnvDefault("SESSIONS_DIR", "sessions"), "Directory for persisted sessions (file storage)")
	tuningFile    = flag.String("tuning", getEnvDefault("TUNING_FILE", ""), "YAML file overriding gameplay tuning (optional)")
	sessionMaxAge = flag.Duration("session-max-age", 24*time.Hour, "Evict sessions idle for longer than this from memory")
	redisAddr     = flag.String("redis-addr", getEnvDefault("REDIS_ADDR", ""), "Store sessions in Redis at this address instead of files (optional)")
	redisTTL      = flag.Duration("redis-ttl", 7*24*time.Hour, "Expiry of sessions stored in Redis (0 keeps them forever)")
	natsURL       = flag.String("nats-url", getEnvDefault("NATS_URL", ""), "Publish every turn to this NATS server (optional)")
	natsPrefix    = flag.String("nats-prefix", natstransport.DefaultSubjectPrefix, "Subject prefix for published turns")
	debug         = flag.Bool("debug", false, "Enable debug logging")
	version       = flag.Bool("version", false, "Show version information")
	ngrokEnabled  = flag.Bool("ngrok", false, "Enable ngrok tunnel")
	ngrokAuth     = flag.String("ngrok-auth", "", "Ngrok auth token (or use NGROK_AUTHTOKEN env var)")
	ngrokDomain   = flag.String("ngrok-domain", "", "Custom ngrok domain (optional)")
)

// getEnvDefault returns the environment value for key, or def when unset.
func getEnvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS] [MODE]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "%s v%s\n\n", AppName, Version)
		fmt.Fprintf(os.Stderr, "Available modes:\n")
		fmt.Fprintf(os.Stderr, "  server, http     Run HTTP server with API, WebSocket, and MCP endpoint (default)\n")
		fmt.Fprintf(os.Stderr, "  stdio-mcp        Run MCP stdio server with internal HTTP server\n")
		fmt.Fprintf(os.Stderr, "  mcp-stdio        Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "  mcp              Alias for stdio-mcp\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                              # Run HTTP server on default port 8080\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -port 9090 -tuning tuning.yaml # Custom port and gameplay tuning\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -redis-addr localhost:6379     # Keep sessions in Redis\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s stdio-mcp                    # Run MCP stdio server\n", os.Args[0])
	}
}

// main parses flags, initializes services, and starts the selected mode.
func main() {
	// Load .env file if it exists
	envErr := godotenv.Load()

	flag.Parse()

	if *version {
		fmt.Printf("%s v%s\n", AppName, Version)
		os.Exit(0)
	}

	logger, err := newLogger(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	switch {
	case envErr == nil:
		logger.Info("loaded environment variables from .env file")
	case !os.IsNotExist(envErr):
		logger.Warn("error loading .env file", zap.Error(envErr))
	}

	mode := "server"
	if args := flag.Args(); len(args) > 0 {
		mode = args[0]
	}

	logger.Info("starting", zap.String("app", AppName), zap.String("version", Version), zap.String("mode", mode))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := initializeServices(ctx, logger)
	if err != nil {
		logger.Fatal("failed to initialize services", zap.Error(err))
	}
	defer app.Close()

	switch mode {
	case "stdio-mcp", "mcp-stdio", "mcp":
		err = runStdioMCPWithInternalServer(ctx, app, logger)
	case "server", "http":
		err = runHTTPServer(ctx, app, logger)
	default:
		err = fmt.Errorf("unknown mode: %s. Use 'server' (default) or 'stdio-mcp'", mode)
	}
	if err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		app.Close()
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// newLogger builds a development logger in debug mode and a production (JSON) logger otherwise.
// Both write to stderr so stdout stays free for the MCP stdio transport.
func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// application bundles the wired services and the resources they hold.
type application struct {
	game        service.GameService
	sessions    *session.Manager
	persistence session.SessionPersistence
	closers     []func()
}

// Close releases external connections. It is safe to call more than once.
func (a *application) Close() {
	for _, closeFn := range a.closers {
		closeFn()
	}
	a.closers = nil
}

// initializeServices wires the level repository, tuning, session storage, optional
// NATS publishing and the game service.
func initializeServices(ctx context.Context, logger *zap.Logger) (*application, error) {
	app := &application{}

	levels, err := config.NewManager(*levelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create level manager: %w", err)
	}

	tuning, err := config.LoadTuning(*tuningFile)
	if err != nil {
		return nil, err
	}

	persistence, err := newPersistence(ctx, app, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	app.persistence = persistence

	app.sessions = session.NewManagerWithPersistence(persistence,
		session.WithLogger(logger.Named("session")),
		session.WithEngineOptions(engine.WithLoader(levels), engine.WithTuning(tuning)),
	)

	if err := app.sessions.LoadPersistedSessions(ctx); err != nil {
		logger.Warn("failed to load persisted sessions", zap.Error(err))
	}

	opts := []service.Option{service.WithLogger(logger.Named("game"))}
	if *natsURL != "" {
		conn, err := natstransport.Connect(*natsURL, logger.Named("nats"))
		if err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, func() { conn.Drain() })
		opts = append(opts, service.WithPublisher(natstransport.NewPublisher(conn, *natsPrefix, logger.Named("nats"))))
		logger.Info("publishing turns to nats", zap.String("url", *natsURL), zap.String("prefix", *natsPrefix))
	}

	app.game = service.NewGameService(app.sessions, levels, opts...)
	return app, nil
}

// newPersistence returns Redis storage when -redis-addr is set and file storage otherwise
func newPersistence(ctx context.Context, app *application, logger *zap.Logger) (session.SessionPersistence, error) {
	if *redisAddr == "" {
		persistence, err := session.NewFilePersistence(*sessionsDir)
		if err != nil {
			return nil, fmt.Errorf("failed to create session persistence: %w", err)
		}
		logger.Info("storing sessions on disk", zap.String("dir", *sessionsDir))
		return persistence, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", *redisAddr, err)
	}
	app.closers = append(app.closers, func() { rdb.Close() })

	logger.Info("storing sessions in redis", zap.String("addr", *redisAddr), zap.Duration("ttl", *redisTTL))
	return session.NewRedisPersistence(rdb, session.DefaultRedisPrefix, *redisTTL), nil
}

// runHTTPServer starts the HTTP server with REST API, WebSocket hub, and an /mcp proxy endpoint.
// If ngrok is enabled (via flag or environment), it also provisions a public tunnel.
// It returns once ctx is cancelled and every component has stopped.
func runHTTPServer(ctx context.Context, app *application, logger *zap.Logger) error {
	hub := websocket.NewHub(logger.Named("ws"))
	apiServer := api.NewServer(app.game, hub, api.WithLogger(logger.Named("api")))

	addr := fmt.Sprintf("%s:%d", *host, *port)
	mcpClient := mcp.NewClient(fmt.Sprintf("http://%s", addr))

	mainRouter := http.NewServeMux()
	mainRouter.Handle("/", apiServer)
	mainRouter.HandleFunc("/mcp", mcpHandler(mcpClient))

	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mainRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return hub.Run(gctx) })

	g.Go(func() error {
		logger.Info("http server listening",
			zap.String("addr", addr),
			zap.String("api", fmt.Sprintf("http://%s/api", addr)),
			zap.String("websocket", fmt.Sprintf("ws://%s/ws?session=<session_id>", addr)),
			zap.String("mcp", fmt.Sprintf("http://%s/mcp", addr)))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		sessionCleanupRoutine(gctx, app.sessions, *sessionMaxAge, time.Hour, logger)
		return nil
	})

	g.Go(func() error {
		persistenceSyncRoutine(gctx, app.sessions, app.persistence, 5*time.Second, logger)
		return nil
	})

	if ngrokShouldRun() {
		g.Go(func() error {
			runNgrok(gctx, mainRouter, logger)
			return nil
		})
	}

	err := g.Wait()
	if saveErr := app.sessions.SaveAllSessions(context.Background()); saveErr != nil {
		logger.Warn("failed to save sessions on shutdown", zap.Error(saveErr))
	}
	return err
}

// mcpHandler forwards JSON-RPC messages posted to /mcp to the MCP server
func mcpHandler(client *mcp.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "POST" {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request", http.StatusBadRequest)
			return
		}
		defer r.Body.Close()

		response := client.GetMCPServer().HandleMessage(r.Context(), body)

		responseData, err := json.Marshal(response)
		if err != nil {
			http.Error(w, "Failed to marshal response", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(responseData)
	}
}

// ngrokShouldRun reports whether ngrok is enabled by flag or NGROK_ENABLED
func ngrokShouldRun() bool {
	if *ngrokEnabled {
		return true
	}
	env := os.Getenv("NGROK_ENABLED")
	return env == "true" || env == "1"
}

// ngrokAuthToken returns the token from the flag, NGROK_AUTHTOKEN or NGROK_AUTH_TOKEN
func ngrokAuthToken() string {
	if *ngrokAuth != "" {
		return *ngrokAuth
	}
	if token := os.Getenv("NGROK_AUTHTOKEN"); token != "" {
		return token
	}
	return os.Getenv("NGROK_AUTH_TOKEN")
}

// runNgrok serves handler through an ngrok tunnel until ctx is cancelled.
// Tunnel failures are logged and never stop the local server.
func runNgrok(ctx context.Context, handler http.Handler, logger *zap.Logger) {
	authToken := ngrokAuthToken()
	if authToken == "" {
		logger.Warn("ngrok enabled but no auth token provided (use -ngrok-auth, NGROK_AUTHTOKEN, or NGROK_AUTH_TOKEN)")
		return
	}

	domain := *ngrokDomain
	if domain == "" {
		domain = os.Getenv("NGROK_DOMAIN")
	}

	var tunnel ngrokConfig.Tunnel
	if domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	logger.Info("starting ngrok tunnel", zap.String("domain", domain))
	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(authToken))
	if err != nil {
		logger.Error("failed to start ngrok tunnel", zap.Error(err))
		return
	}

	go func() {
		<-ctx.Done()
		if err := tun.Close(); err != nil {
			logger.Warn("failed to close ngrok tunnel", zap.Error(err))
		}
	}()

	ngrokURL := tun.URL()
	logger.Info("ngrok tunnel established",
		zap.String("url", ngrokURL),
		zap.String("api", ngrokURL+"/api"),
		zap.String("mcp", ngrokURL+"/mcp"))

	if err := http.Serve(tun, handler); err != nil && ctx.Err() == nil {
		logger.Error("ngrok server error", zap.Error(err))
	}
	logger.Info("ngrok tunnel closed")
}

// sessionCleanupRoutine periodically evicts sessions that have not been accessed
// within maxAge. Evicted sessions stay in persistence and reload on next access.
func sessionCleanupRoutine(ctx context.Context, manager *session.Manager, maxAge, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := manager.CleanupExpiredSessions(maxAge)
			logger.Debug("session cleanup pass", zap.Int("evicted", removed), zap.Int("in_memory", manager.Count()))
		}
	}
}

// persistenceSyncRoutine drops sessions from memory once their persisted copy
// is gone (file deleted, Redis key expired).
func persistenceSyncRoutine(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, interval time.Duration, logger *zap.Logger) {
	if persistence == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruneOrphanedSessions(ctx, manager, persistence, logger)
		}
	}
}

func pruneOrphanedSessions(ctx context.Context, manager *session.Manager, persistence session.SessionPersistence, logger *zap.Logger) int {
	pruned := 0
	for _, sess := range manager.List() {
		if persistence.Exists(ctx, sess.ID) {
			continue
		}
		if err := manager.DeleteFromMemory(sess.ID); err == nil {
			pruned++
			logger.Debug("pruned session from memory, persisted copy is gone", zap.String("session_id", sess.ID))
		}
	}
	if pruned > 0 {
		logger.Info("persistence sync pruned orphaned sessions", zap.Int("count", pruned))
	}
	return pruned
}

// runStdioMCPWithInternalServer runs an MCP stdio server.
// It tries to reuse an API already listening on -host/-port; if unavailable, it
// starts a minimal internal HTTP API bound to a random loopback port and targets that.
func runStdioMCPWithInternalServer(ctx context.Context, app *application, logger *zap.Logger) error {
	externalURL := fmt.Sprintf("http://%s:%d", *host, *port)
	baseURL := externalURL

	testClient := &http.Client{Timeout: 2 * time.Second}
	resp, err := testClient.Get(externalURL + "/health")
	if err == nil && resp.StatusCode < 500 {
		resp.Body.Close()
		logger.Info("external API server found, using it for MCP", zap.String("url", externalURL))
	} else {
		listener, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to get available port: %w", err)
		}
		baseURL = fmt.Sprintf("http://%s", listener.Addr().String())
		logger.Info("no external API server found, starting internal HTTP server", zap.String("url", baseURL))

		hub := websocket.NewHub(logger.Named("ws"))
		go hub.Run(ctx)

		httpServer := &http.Server{Handler: api.NewServer(app.game, hub, api.WithLogger(logger.Named("api")))}
		go func() {
			if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("internal HTTP server error", zap.Error(err))
			}
		}()
		defer httpServer.Close()
	}

	mcpClient := mcp.NewClient(baseURL)
	logger.Info("MCP stdio server ready", zap.String("api", baseURL))

	if err := server.ServeStdio(mcpClient.GetMCPServer()); err != nil {
		return fmt.Errorf("MCP stdio server error: %w", err)
	}
	return app.sessions.SaveAllSessions(context.Background())
}
