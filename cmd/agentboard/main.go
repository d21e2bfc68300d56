// ABOUTME: Entry point for the agentboard work tracking server
// ABOUTME: Serves MCP tools and the web dashboard from a single HTTP listener

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/agentboard/agentboard/internal/config"
	"github.com/agentboard/agentboard/internal/events"
	"github.com/agentboard/agentboard/internal/mcp"
	"github.com/agentboard/agentboard/internal/service"
	"github.com/agentboard/agentboard/internal/store"
	"github.com/agentboard/agentboard/internal/web"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
                            _    _                              _
  __ _   __ _   ___  _ __  | |_ | |__    ___    __ _  _ __   __| |
 / _' | / _' | / _ \| '_ \ | __|| '_ \  / _ \  / _' || '__| / _' |
| (_| || (_| ||  __/| | | || |_ | |_) || (_) || (_| || |   | (_| |
 \__,_| \__, | \___||_| |_| \__||_.__/  \___/  \__,_||_|    \__,_|
        |___/
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: agentboard <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve    Start the agentboard server")
		fmt.Println("  init     Write a starter config file")
		fmt.Println("  status   Summarize tracked projects")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "status":
		err = runStatus(ctx)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	// Print banner
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	// Version info
	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	configPath, err := config.DefaultPath()
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}

	cfg, err := config.Resolve()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	// Startup info
	green := color.New(color.FgGreen)

	green.Print("    ▶ ")
	fmt.Printf("Config:    ")
	if _, statErr := os.Stat(configPath); statErr == nil {
		fmt.Println(configPath)
	} else {
		fmt.Print(configPath)
		gray.Print(" (not found, using defaults)")
		fmt.Println()
	}
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Path)
	if cfg.Dashboard.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Dashboard: ")
		cyan.Printf("http://%s/\n", cfg.Server.HTTPAddr)
	}
	fmt.Println()

	logger.Info("starting agentboard",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"db_path", cfg.Database.Path,
	)

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	eventLog := events.New(cfg.Events.Capacity)
	svc := service.New(st, eventLog, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", handleHealth)

	mcpServer, err := mcp.NewServer(mcp.Config{
		Service: svc,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}
	mcpServer.RegisterRoutes(mux)

	if cfg.Dashboard.Enabled {
		dash := web.New(svc, logger)
		dash.RegisterRoutes(mux)
	}

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		logger.Info("context canceled, initiating shutdown")
	case serverErr = <-errCh:
		logger.Error("server error", "error", serverErr)
	}

	// Shutdown with a fresh context since the original is already canceled.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	shutdownErr := httpServer.Shutdown(shutdownCtx)

	if serverErr != nil {
		return serverErr
	}
	if shutdownErr != nil {
		return fmt.Errorf("HTTP shutdown: %w", shutdownErr)
	}
	return nil
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = &colorHandler{
			level: level,
		}
	}

	return slog.New(handler)
}

// colorHandler provides colorized log output with thread-safe writes.
type colorHandler struct {
	mu     sync.Mutex
	level  slog.Level
	attrs  []slog.Attr
	groups []string
}

func (h *colorHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *colorHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	var buf strings.Builder

	// Format timestamp
	buf.WriteString(color.HiBlackString(r.Time.Format("15:04:05") + " "))

	// Colorize level
	switch r.Level {
	case slog.LevelDebug:
		buf.WriteString(color.MagentaString("DBG "))
	case slog.LevelInfo:
		buf.WriteString(color.CyanString("INF "))
	case slog.LevelWarn:
		buf.WriteString(color.YellowString("WRN "))
	case slog.LevelError:
		buf.WriteString(color.New(color.FgRed, color.Bold).Sprint("ERR "))
	default:
		buf.WriteString("??? ")
	}

	// Print message
	buf.WriteString(r.Message)

	// Print handler-level attrs first (from WithAttrs)
	for _, a := range h.attrs {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
	}

	// Print record attrs
	r.Attrs(func(a slog.Attr) bool {
		buf.WriteString(color.HiBlackString(" " + a.Key + "="))
		buf.WriteString(a.Value.String())
		return true
	})

	buf.WriteString("\n")
	fmt.Print(buf.String())
	return nil
}

func (h *colorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs), len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	newAttrs = append(newAttrs, attrs...)
	return &colorHandler{
		level:  h.level,
		attrs:  newAttrs,
		groups: h.groups,
	}
}

func (h *colorHandler) WithGroup(name string) slog.Handler {
	newGroups := make([]string, len(h.groups), len(h.groups)+1)
	copy(newGroups, h.groups)
	newGroups = append(newGroups, name)
	return &colorHandler{
		level:  h.level,
		attrs:  h.attrs,
		groups: newGroups,
	}
}

func runInit() error {
	configPath, err := config.DefaultPath()
	if err != nil {
		return fmt.Errorf("resolving config path: %w", err)
	}

	if err := config.WriteStarter(configPath); err != nil {
		return err
	}

	green := color.New(color.FgGreen)
	green.Printf("  ✓ Created config: %s\n", configPath)

	fmt.Println()
	fmt.Println("To start the server:")
	fmt.Println("  agentboard serve")

	return nil
}

func runStatus(ctx context.Context) error {
	cfg, err := config.Resolve()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Keep the store's open/close logs out of the table output.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	st, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	projects, err := st.ListProjects(ctx, 500, 0)
	if err != nil {
		return fmt.Errorf("listing projects: %w", err)
	}

	if len(projects) == 0 {
		fmt.Println("No projects yet.")
		return nil
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Project", "PRDs", "Stories", "Tasks", "Done", "Complete"})
	for _, p := range projects {
		counts, err := st.ProjectCounts(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("counting project %s: %w", p.ID, err)
		}
		byStatus, err := st.ProjectTaskStatusCounts(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("task counts for project %s: %w", p.ID, err)
		}
		done := byStatus[store.TaskStatusDone]
		completion := "-"
		if counts.Tasks > 0 {
			completion = fmt.Sprintf("%.0f%%", float64(done)/float64(counts.Tasks)*100)
		}
		tw.AppendRow(table.Row{p.Name, counts.PRDs, counts.Stories, counts.Tasks, done, completion})
	}
	tw.Render()

	return nil
}
