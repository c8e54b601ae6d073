// Command townmind is the decision service for townsim. Idle residents
// POST their state to /api/v1/decide and get back their next command,
// chosen by Claude Haiku or by the built-in daily schedule.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/talgya/mini-town/internal/config"
	"github.com/talgya/mini-town/internal/decision"
	"github.com/talgya/mini-town/internal/llm"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	configPath := flag.String("config", "", "townsim YAML config, for area names and map size")
	flag.Parse()

	// Configuration from environment.
	port := envIntOrDefault("TOWNMIND_PORT", 8090)
	sourceName := envOrDefault("TOWNMIND_SOURCE", "")
	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")

	cfg := config.Default()
	if *configPath != "" {
		// Only the town layout is needed here; the decision section may name
		// this very service.
		loaded, err := config.Load(*configPath)
		if err != nil {
			slog.Error("config", "error", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if sourceName == "" {
		sourceName = config.SourceSchedule
		if anthropicKey != "" {
			sourceName = config.SourceLLM
		}
	}

	src, err := buildSource(sourceName, anthropicKey, cfg)
	if err != nil {
		slog.Error("decision source", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/decide", decision.Handler(src))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("townmind starting", "addr", srv.Addr, "source", sourceName, "areas", len(cfg.Areas))

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info("received signal, shutting down", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		slog.Warn("shutdown", "error", err)
	}
	fmt.Println("Townmind stopped.")
}

func buildSource(name, apiKey string, cfg config.Config) (decision.Source, error) {
	ids := make([]string, 0, len(cfg.Areas))
	var wander []string
	for _, a := range cfg.Areas {
		ids = append(ids, a.ID)
		if !strings.HasPrefix(a.ID, "house_") {
			wander = append(wander, a.ID)
		}
	}

	switch name {
	case config.SourceLLM:
		client := llm.NewClient(apiKey, llm.Options{
			Model:     envOrDefault("TOWNMIND_MODEL", cfg.Decision.Model),
			Timeout:   cfg.Decision.Timeout,
			MaxPerMin: envIntOrDefault("TOWNMIND_MAX_PER_MIN", 0),
		})
		if client == nil {
			return nil, errors.New("ANTHROPIC_API_KEY is required for the llm source")
		}
		return decision.NewLLMSource(client, ids), nil
	case config.SourceSchedule:
		return decision.NewScheduleSource(cfg.Decision.Seed, wander, cfg.World.Width, cfg.World.Height), nil
	default:
		return nil, fmt.Errorf("unknown source %q (want %s or %s)", name, config.SourceSchedule, config.SourceLLM)
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOrDefault(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultVal
}
