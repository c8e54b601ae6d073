// Package config loads the townsim configuration: a YAML file decoded over
// built-in defaults, then environment overrides for secrets and endpoints.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/mini-town/internal/areas"
	"github.com/talgya/mini-town/internal/world"
)

// Decision source kinds.
const (
	SourceSchedule = "schedule"
	SourceHTTP     = "http"
	SourceLLM      = "llm"
)

// Config is the full townsim configuration.
type Config struct {
	World     WorldConfig      `yaml:"world"`
	Tick      TickConfig       `yaml:"tick"`
	Clock     ClockConfig      `yaml:"clock"`
	Movement  MovementConfig   `yaml:"movement"`
	Decision  DecisionConfig   `yaml:"decision"`
	API       APIConfig        `yaml:"api"`
	DB        DBConfig         `yaml:"db"`
	LogFile   string           `yaml:"log_file"`
	Areas     []AreaConfig     `yaml:"areas"`
	Residents []ResidentConfig `yaml:"residents"`
}

type WorldConfig struct {
	Width     int   `yaml:"width"`
	Height    int   `yaml:"height"`
	Seed      int64 `yaml:"seed"`
	WallCount int   `yaml:"wall_count"`
}

type TickConfig struct {
	RateHz int     `yaml:"rate_hz"`
	Speed  float64 `yaml:"speed"` // Simulation speed multiplier; 0 pauses
}

type ClockConfig struct {
	Start time.Time `yaml:"start"`
	Speed float64   `yaml:"speed"` // Game seconds per real second
}

type MovementConfig struct {
	Speed       float64 `yaml:"speed"` // Cells per second
	FrameCount  int     `yaml:"frame_count"`
	FrameMs     int     `yaml:"frame_ms"`
	WorkSeconds float64 `yaml:"work_seconds"`
}

type DecisionConfig struct {
	Source      string        `yaml:"source"`
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	APIKey      string        `yaml:"-"`
	MaxAttempts int           `yaml:"max_attempts"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	Timeout     time.Duration `yaml:"timeout"`
	Seed        int64         `yaml:"seed"` // Schedule source randomness
}

type APIConfig struct {
	Port     int    `yaml:"port"`
	AdminKey string `yaml:"-"`
}

type DBConfig struct {
	Path string `yaml:"path"` // Empty disables the event journal
}

// AreaConfig declares a named area either as a rectangle [x, y, w, h] or
// as an explicit tile list of [x, y] pairs.
type AreaConfig struct {
	ID    string  `yaml:"id"`
	Name  string  `yaml:"name"`
	Color string  `yaml:"color"`
	Rect  []int   `yaml:"rect,omitempty"`
	Tiles [][]int `yaml:"tiles,omitempty"`
}

// ResidentConfig declares a resident. The home is always house_<id>.
type ResidentConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Work string `yaml:"work"`
	// Speed overrides movement.speed for this resident when positive.
	Speed float64 `yaml:"speed,omitempty"`
}

// Default returns the built-in two-resident town.
func Default() Config {
	return Config{
		World: WorldConfig{Width: 25, Height: 19, Seed: 42, WallCount: 20},
		Tick:  TickConfig{RateHz: 60, Speed: 1},
		Clock: ClockConfig{
			Start: time.Date(2024, time.January, 1, 7, 0, 0, 0, time.UTC),
			Speed: 60,
		},
		Movement: MovementConfig{Speed: 2, FrameCount: 4, FrameMs: 150, WorkSeconds: 10},
		Decision: DecisionConfig{
			Source:      SourceSchedule,
			Endpoint:    "http://localhost:8090/api/v1/decide",
			Model:       "claude-haiku-4-5-20251001",
			MaxAttempts: 3,
			RetryDelay:  time.Second,
			Timeout:     10 * time.Second,
			Seed:        7,
		},
		API: APIConfig{Port: 8080},
		DB:  DBConfig{Path: "data/townsim.db"},
		Areas: []AreaConfig{
			{ID: "house_william", Name: "William's House", Color: "#E07A5F", Rect: []int{2, 2, 4, 3}},
			{ID: "house_olivia", Name: "Olivia's House", Color: "#3D405B", Rect: []int{19, 2, 4, 3}},
			{ID: "street", Name: "Main Street", Color: "#6B705C", Rect: []int{1, 8, 23, 2}},
			{ID: "office", Name: "Office", Color: "#81B29A", Rect: []int{10, 12, 5, 4}},
		},
		Residents: []ResidentConfig{
			{ID: "william", Name: "William", Work: "office"},
			{ID: "olivia", Name: "Olivia", Work: "office"},
		},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
// Environment overrides are applied last, then the result is validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", displayPath(path), err)
	}
	return cfg, nil
}

func displayPath(path string) string {
	if path == "" {
		return "default config"
	}
	return path
}

func (c *Config) applyEnv() {
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.Decision.APIKey = v
	}
	if v := os.Getenv("TOWNSIM_ADMIN_KEY"); v != "" {
		c.API.AdminKey = v
	}
	if v := os.Getenv("TOWNSIM_DECISION_URL"); v != "" {
		c.Decision.Endpoint = v
	}
	if v := os.Getenv("TOWNSIM_DB"); v != "" {
		c.DB.Path = v
	}
}

// Validate reports every problem found, joined.
func (c Config) Validate() error {
	var errs []error
	if c.World.Width <= 0 || c.World.Height <= 0 {
		errs = append(errs, fmt.Errorf("world size %dx%d must be positive", c.World.Width, c.World.Height))
	}
	if c.World.WallCount < 0 {
		errs = append(errs, fmt.Errorf("wall_count %d is negative", c.World.WallCount))
	}
	if c.Tick.RateHz <= 0 {
		errs = append(errs, fmt.Errorf("tick rate_hz %d must be positive", c.Tick.RateHz))
	}
	if c.Tick.Speed < 0 || c.Clock.Speed < 0 {
		errs = append(errs, errors.New("speeds cannot be negative"))
	}
	if c.Movement.Speed <= 0 || c.Movement.FrameCount <= 0 || c.Movement.FrameMs <= 0 || c.Movement.WorkSeconds <= 0 {
		errs = append(errs, errors.New("movement values must be positive"))
	}

	switch c.Decision.Source {
	case SourceSchedule:
	case SourceHTTP:
		if c.Decision.Endpoint == "" {
			errs = append(errs, errors.New("decision source http needs an endpoint"))
		}
	case SourceLLM:
		if c.Decision.APIKey == "" {
			errs = append(errs, errors.New("decision source llm needs ANTHROPIC_API_KEY"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown decision source %q", c.Decision.Source))
	}
	if c.Decision.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("decision max_attempts %d must be positive", c.Decision.MaxAttempts))
	}
	if c.Decision.RetryDelay < 0 || c.Decision.Timeout < 0 {
		errs = append(errs, errors.New("decision durations cannot be negative"))
	}

	seen := make(map[string]bool)
	for _, a := range c.Areas {
		if seen[a.ID] {
			errs = append(errs, fmt.Errorf("duplicate area %q", a.ID))
		}
		seen[a.ID] = true
		if _, err := a.Cells(); err != nil {
			errs = append(errs, err)
		}
	}
	ids := make(map[string]bool)
	for _, r := range c.Residents {
		if r.ID == "" {
			errs = append(errs, errors.New("resident with empty id"))
		}
		if ids[r.ID] {
			errs = append(errs, fmt.Errorf("duplicate resident %q", r.ID))
		}
		if r.Speed < 0 {
			errs = append(errs, fmt.Errorf("resident %q: speed must not be negative", r.ID))
		}
		ids[r.ID] = true
	}
	return errors.Join(errs...)
}

// Cells expands the area declaration into its tile list.
func (a AreaConfig) Cells() ([]world.Cell, error) {
	switch {
	case len(a.Rect) > 0 && len(a.Tiles) > 0:
		return nil, fmt.Errorf("area %q: set rect or tiles, not both", a.ID)
	case len(a.Rect) > 0:
		if len(a.Rect) != 4 || a.Rect[2] <= 0 || a.Rect[3] <= 0 {
			return nil, fmt.Errorf("area %q: rect must be [x, y, w, h] with positive size", a.ID)
		}
		return areas.Rect(a.Rect[0], a.Rect[1], a.Rect[2], a.Rect[3]), nil
	}
	cells := make([]world.Cell, 0, len(a.Tiles))
	for _, t := range a.Tiles {
		if len(t) != 2 {
			return nil, fmt.Errorf("area %q: tile %v is not an [x, y] pair", a.ID, t)
		}
		cells = append(cells, world.Cell{X: t[0], Y: t[1]})
	}
	return cells, nil
}

// GenConfig returns the world generation parameters.
func (c Config) GenConfig() world.GenConfig {
	return world.GenConfig{
		Width:     c.World.Width,
		Height:    c.World.Height,
		Seed:      c.World.Seed,
		WallCount: c.World.WallCount,
	}
}
