// Command townsim runs the mini town: residents walking between their
// houses, the office, and the street while the game clock turns.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/talgya/mini-town/internal/agents"
	"github.com/talgya/mini-town/internal/api"
	"github.com/talgya/mini-town/internal/clock"
	"github.com/talgya/mini-town/internal/config"
	"github.com/talgya/mini-town/internal/decision"
	"github.com/talgya/mini-town/internal/engine"
	"github.com/talgya/mini-town/internal/llm"
	"github.com/talgya/mini-town/internal/persistence"
	"github.com/talgya/mini-town/internal/render"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (built-in town when empty)")
	tui := flag.Bool("tui", false, "show the town in the terminal")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logFile, err := setupLogging(cfg, *tui)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	if err := run(cfg, *tui); err != nil {
		slog.Error("townsim failed", "error", err)
		os.Exit(1)
	}
}

// setupLogging installs the default logger. The terminal viewer owns
// stdout, so in TUI mode logs go to the configured file.
func setupLogging(cfg config.Config, tui bool) (io.Closer, error) {
	var out io.Writer = os.Stdout
	var closer io.Closer
	if tui {
		path := cfg.LogFile
		if path == "" {
			path = "townsim.log"
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out, closer = f, f
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)
	return closer, nil
}

func run(cfg config.Config, tui bool) error {
	slog.Info("Mini Town starting",
		"size", fmt.Sprintf("%dx%d", cfg.World.Width, cfg.World.Height),
		"residents", len(cfg.Residents),
		"decision_source", cfg.Decision.Source,
	)

	// ── Clock ─────────────────────────────────────────────────────────
	gt, err := clock.NewGameTime(cfg.Clock.Start, cfg.Clock.Speed)
	if err != nil {
		return err
	}

	// ── Event journal ─────────────────────────────────────────────────
	var db *persistence.DB
	var journal engine.Journal
	if cfg.DB.Path != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.DB.Path), 0o755); err != nil {
			return fmt.Errorf("create data dir: %w", err)
		}
		db, err = persistence.Open(cfg.DB.Path)
		if err != nil {
			return err
		}
		defer db.Close()
		journal = db
		if last, err := db.GetMeta("last_clock"); err == nil {
			slog.Info("previous run found", "path", cfg.DB.Path, "last_clock", last)
		} else if !errors.Is(err, persistence.ErrNoMeta) {
			slog.Warn("reading run summary failed", "error", err)
		}
	}

	// ── Town ──────────────────────────────────────────────────────────
	src, err := newSource(cfg)
	if err != nil {
		return err
	}
	sim, err := engine.NewSimulation(engine.Setup{
		Gen:       cfg.GenConfig(),
		Areas:     areaSpecs(cfg),
		Residents: residentSpecs(cfg),
		Tuning: agents.Tuning{
			Speed:         cfg.Movement.Speed,
			FrameCount:    cfg.Movement.FrameCount,
			FrameDuration: float64(cfg.Movement.FrameMs) / 1000,
			WorkDuration:  cfg.Movement.WorkSeconds,
		},
		Manager: engine.ManagerConfig{
			MaxAttempts: cfg.Decision.MaxAttempts,
			RetryDelay:  cfg.Decision.RetryDelay,
			Timeout:     cfg.Decision.Timeout,
			IdleRest:    engine.DefaultManagerConfig().IdleRest,
		},
		Source:  src,
		Clock:   gt,
		Journal: journal,
	})
	if err != nil {
		return err
	}

	eng := engine.NewEngine(cfg.Tick.RateHz)
	eng.SetSpeed(cfg.Tick.Speed)
	sim.Attach(eng)

	// ── HTTP API ──────────────────────────────────────────────────────
	var apiServer *api.Server
	if cfg.API.Port > 0 {
		if cfg.API.AdminKey == "" {
			slog.Warn("TOWNSIM_ADMIN_KEY not set, operator POST endpoints are disabled")
		}
		apiServer = &api.Server{
			Sim:      sim,
			Eng:      eng,
			DB:       db,
			Port:     cfg.API.Port,
			AdminKey: cfg.API.AdminKey,
		}
		apiServer.Start()
	}

	// ── Run ───────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		eng.Run(ctx)
	}()

	if tui {
		if err := runViewer(ctx, sim, eng); err != nil {
			slog.Error("terminal viewer failed", "error", err)
		}
		stop()
	} else {
		if apiServer != nil {
			fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.API.Port)
		}
		fmt.Println("Town is running... (Ctrl+C to stop)")
		<-ctx.Done()
	}
	<-engineDone

	// ── Shutdown ──────────────────────────────────────────────────────
	if apiServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := apiServer.Shutdown(shutdownCtx); err != nil {
			slog.Warn("API shutdown", "error", err)
		}
		cancel()
	}
	sim.Close()
	if db != nil {
		if err := db.SaveRunSummary(sim); err != nil {
			slog.Error("saving run summary failed", "error", err)
		}
	}
	slog.Info("town stopped", "tick", sim.CurrentTick(), "clock", sim.Clock.String())
	return nil
}

func runViewer(ctx context.Context, sim *engine.Simulation, eng *engine.Engine) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("open terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("init terminal: %w", err)
	}

	resume := eng.Speed()
	viewer := &render.Viewer{
		Screen: screen,
		Source: sim,
		OnPause: func() {
			if s := eng.Speed(); s > 0 {
				resume = s
				eng.SetSpeed(0)
				return
			}
			eng.SetSpeed(resume)
		},
	}
	return viewer.Run(ctx)
}

// newSource picks the decision source named in the config.
func newSource(cfg config.Config) (decision.Source, error) {
	switch cfg.Decision.Source {
	case config.SourceHTTP:
		slog.Info("decisions from remote service", "endpoint", cfg.Decision.Endpoint)
		return decision.NewHTTPSource(cfg.Decision.Endpoint, cfg.Decision.Timeout), nil
	case config.SourceLLM:
		client := llm.NewClient(cfg.Decision.APIKey, llm.Options{
			Model:   cfg.Decision.Model,
			Timeout: cfg.Decision.Timeout,
		})
		if client == nil {
			return nil, errors.New("llm decision source needs ANTHROPIC_API_KEY")
		}
		slog.Info("decisions from Haiku", "model", cfg.Decision.Model)
		return decision.NewLLMSource(client, areaIDs(cfg)), nil
	default:
		return decision.NewScheduleSource(cfg.Decision.Seed, wanderAreas(cfg), cfg.World.Width, cfg.World.Height), nil
	}
}

func areaSpecs(cfg config.Config) []engine.AreaSpec {
	specs := make([]engine.AreaSpec, 0, len(cfg.Areas))
	for _, a := range cfg.Areas {
		cells, err := a.Cells()
		if err != nil {
			slog.Warn("skipping area", "area", a.ID, "error", err)
			continue
		}
		specs = append(specs, engine.AreaSpec{ID: a.ID, Name: a.Name, Color: a.Color, Tiles: cells})
	}
	return specs
}

func residentSpecs(cfg config.Config) []engine.ResidentSpec {
	specs := make([]engine.ResidentSpec, len(cfg.Residents))
	for i, r := range cfg.Residents {
		specs[i] = engine.ResidentSpec{ID: r.ID, Name: r.Name, Work: r.Work, Speed: r.Speed}
	}
	return specs
}

func areaIDs(cfg config.Config) []string {
	ids := make([]string, len(cfg.Areas))
	for i, a := range cfg.Areas {
		ids[i] = a.ID
	}
	return ids
}

// wanderAreas are the areas residents visit in free time: everything that
// is not somebody's house.
func wanderAreas(cfg config.Config) []string {
	var ids []string
	for _, a := range cfg.Areas {
		if !strings.HasPrefix(a.ID, agents.HomeAreaFor("")) {
			ids = append(ids, a.ID)
		}
	}
	return ids
}
