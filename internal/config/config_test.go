package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talgya/mini-town/internal/world"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "townsim.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	t.Setenv("TOWNSIM_DB", "")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default().World, cfg.World)
	assert.Len(t, cfg.Residents, 2)
	assert.Equal(t, SourceSchedule, cfg.Decision.Source)
	assert.Equal(t, 3, cfg.Decision.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Decision.RetryDelay)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
world:
  width: 12
  height: 10
  seed: 9
  wall_count: 4
decision:
  source: http
  retry_delay: 250ms
areas:
  - id: house_ada
    name: Ada's House
    rect: [1, 1, 2, 2]
  - id: corner
    name: Corner
    tiles: [[5, 5], [6, 5], [5, 6]]
residents:
  - id: ada
    name: Ada
    work: corner
    speed: 3.5
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, WorldConfig{Width: 12, Height: 10, Seed: 9, WallCount: 4}, cfg.World)
	assert.Equal(t, SourceHTTP, cfg.Decision.Source)
	assert.Equal(t, 250*time.Millisecond, cfg.Decision.RetryDelay)
	assert.Equal(t, 3, cfg.Decision.MaxAttempts, "unset fields keep defaults")
	require.Len(t, cfg.Areas, 2)
	require.Len(t, cfg.Residents, 1)
	assert.Equal(t, 3.5, cfg.Residents[0].Speed)

	cells, err := cfg.Areas[1].Cells()
	require.NoError(t, err)
	assert.Equal(t, []world.Cell{{X: 5, Y: 5}, {X: 6, Y: 5}, {X: 5, Y: 6}}, cells)

	cells, err = cfg.Areas[0].Cells()
	require.NoError(t, err)
	assert.Len(t, cells, 4)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("TOWNSIM_ADMIN_KEY", "secret")
	t.Setenv("TOWNSIM_DECISION_URL", "http://mind:9000/decide")
	t.Setenv("TOWNSIM_DB", "/tmp/town.db")
	t.Setenv("ANTHROPIC_API_KEY", "sk-test")

	cfg, err := Load(writeConfig(t, "decision:\n  source: llm\n"))
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.API.AdminKey)
	assert.Equal(t, "http://mind:9000/decide", cfg.Decision.Endpoint)
	assert.Equal(t, "/tmp/town.db", cfg.DB.Path)
	assert.Equal(t, "sk-test", cfg.Decision.APIKey)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "world: [not, a, map]"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	for _, tc := range []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero width", func(c *Config) { c.World.Width = 0 }},
		{"negative walls", func(c *Config) { c.World.WallCount = -1 }},
		{"zero tick rate", func(c *Config) { c.Tick.RateHz = 0 }},
		{"negative clock speed", func(c *Config) { c.Clock.Speed = -1 }},
		{"zero movement speed", func(c *Config) { c.Movement.Speed = 0 }},
		{"unknown source", func(c *Config) { c.Decision.Source = "oracle" }},
		{"llm without key", func(c *Config) { c.Decision.Source = SourceLLM }},
		{"http without endpoint", func(c *Config) { c.Decision.Source = SourceHTTP; c.Decision.Endpoint = "" }},
		{"zero attempts", func(c *Config) { c.Decision.MaxAttempts = 0 }},
		{"duplicate area", func(c *Config) { c.Areas = append(c.Areas, c.Areas[0]) }},
		{"bad rect", func(c *Config) { c.Areas[0].Rect = []int{1, 1, 0, 2} }},
		{"rect and tiles", func(c *Config) { c.Areas[0].Tiles = [][]int{{1, 1}} }},
		{"bad tile", func(c *Config) { c.Areas[0] = AreaConfig{ID: "x", Tiles: [][]int{{1}}} }},
		{"duplicate resident", func(c *Config) { c.Residents = append(c.Residents, c.Residents[0]) }},
		{"empty resident id", func(c *Config) { c.Residents[0].ID = "" }},
		{"negative resident speed", func(c *Config) { c.Residents[0].Speed = -1 }},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	assert.NoError(t, Default().Validate())
}
