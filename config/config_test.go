package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/simcube/cube"
	"github.com/rustyeddy/simcube/scenario"
	"github.com/rustyeddy/simcube/simmarket"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, "EUR", cfg.Simulation.BaseCurrency)
	assert.Equal(t, 10, cfg.Run.Samples)
	assert.Len(t, cfg.Portfolio, 3)
	assert.NoError(t, cfg.Validate())

	g, err := cfg.Grid()
	require.NoError(t, err)
	assert.Len(t, g.Dates, 10)
	p, err := cfg.Precision()
	require.NoError(t, err)
	assert.Equal(t, cube.Double, p)
	m, err := cfg.ObservationMode()
	require.NoError(t, err)
	assert.Equal(t, simmarket.Disable, m)
	sep, err := cfg.Separator()
	require.NoError(t, err)
	assert.Equal(t, ',', sep)
	assert.Equal(t, 1, cfg.Workers())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "missing asof",
			mutate:  func(c *Config) { c.Market.AsOf = "" },
			wantErr: true,
			errMsg:  "market.asof is required",
		},
		{
			name:    "bad asof",
			mutate:  func(c *Config) { c.Market.AsOf = "05/02/2016" },
			wantErr: true,
			errMsg:  "market.asof",
		},
		{
			name:    "missing grid",
			mutate:  func(c *Config) { c.Run.Grid = "" },
			wantErr: true,
			errMsg:  "run.grid is required",
		},
		{
			name:    "bad grid",
			mutate:  func(c *Config) { c.Run.Grid = "10,1Q" },
			wantErr: true,
			errMsg:  "run.grid",
		},
		{
			name:    "zero samples",
			mutate:  func(c *Config) { c.Run.Samples = 0 },
			wantErr: true,
			errMsg:  "run.samples must be positive",
		},
		{
			name:    "depth three",
			mutate:  func(c *Config) { c.Run.Depth = 3 },
			wantErr: true,
			errMsg:  "run.depth must be 1 or 2",
		},
		{
			name:    "unknown precision",
			mutate:  func(c *Config) { c.Run.Precision = "half" },
			wantErr: true,
			errMsg:  "run.precision",
		},
		{
			name:    "unknown observation mode",
			mutate:  func(c *Config) { c.Run.ObservationMode = "Sometimes" },
			wantErr: true,
			errMsg:  "run.observation_mode",
		},
		{
			name:    "negative workers",
			mutate:  func(c *Config) { c.Run.Workers = -1 },
			wantErr: true,
			errMsg:  "run.workers must not be negative",
		},
		{
			name:    "bad simulation",
			mutate:  func(c *Config) { c.Simulation.BaseCurrency = "" },
			wantErr: true,
			errMsg:  "simulation: base_currency is required",
		},
		{
			name:    "empty portfolio",
			mutate:  func(c *Config) { c.Portfolio = nil },
			wantErr: true,
			errMsg:  "portfolio needs at least one trade",
		},
		{
			name:    "long separator",
			mutate:  func(c *Config) { c.Scenarios.Separator = ";;" },
			wantErr: true,
			errMsg:  "scenarios.separator must be a single character",
		},
		{
			name:    "missing cube file",
			mutate:  func(c *Config) { c.Output.Cube = "" },
			wantErr: true,
			errMsg:  "output.cube is required",
		},
		{
			name:    "sqlite journal without path",
			mutate:  func(c *Config) { c.Output.Journal.Type = "sqlite" },
			wantErr: true,
			errMsg:  "output.journal.db_path required for SQLite type",
		},
		{
			name:    "csv journal without dir",
			mutate:  func(c *Config) { c.Output.Journal.Type = "csv" },
			wantErr: true,
			errMsg:  "output.journal.dir required for CSV type",
		},
		{
			name:    "unknown journal",
			mutate:  func(c *Config) { c.Output.Journal.Type = "postgres" },
			wantErr: true,
			errMsg:  "output.journal.type must be 'csv' or 'sqlite'",
		},
		{
			name: "unknown sensitivity key type",
			mutate: func(c *Config) {
				c.Sensitivity.Shifts["Curve"] = scenario.Shift{Size: 0.01}
			},
			wantErr: true,
			errMsg:  "sensitivity shifts",
		},
		{
			name:    "cross gamma without shift",
			mutate:  func(c *Config) { c.Sensitivity.CrossGamma = [][]string{{"FXSpot", "EquitySpot"}} },
			wantErr: true,
			errMsg:  "EquitySpot has no shift",
		},
		{
			name:    "stress without label",
			mutate:  func(c *Config) { c.Stress[0].Label = "" },
			wantErr: true,
			errMsg:  "stress test label is required",
		},
		{
			name:    "no sensitivity or stress",
			mutate:  func(c *Config) { c.Sensitivity = scenario.SensitivityConfig{}; c.Stress = nil },
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name string
		ext  string
	}{
		{"json format", ".json"},
		{"yaml format", ".yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Scenarios.Separator = ";"
			cfg.Output.Journal = JournalConfig{Type: "sqlite", DBPath: "runs.db"}
			path := filepath.Join(tmpDir, "test"+tt.ext)

			// Save
			err := cfg.SaveToFile(path)
			require.NoError(t, err)

			// Verify file exists
			_, err = os.Stat(path)
			require.NoError(t, err)

			// Load
			loaded, err := LoadFromFile(path)
			require.NoError(t, err)

			// Compare
			assert.Equal(t, cfg.Run, loaded.Run)
			assert.Equal(t, cfg.Market.AsOf, loaded.Market.AsOf)
			assert.Equal(t, cfg.Market.FX, loaded.Market.FX)
			assert.Equal(t, cfg.Simulation.Indices.Names, loaded.Simulation.Indices.Names)
			assert.Equal(t, cfg.Portfolio, loaded.Portfolio)
			assert.Equal(t, cfg.Output, loaded.Output)
			assert.Equal(t, cfg.Sensitivity, loaded.Sensitivity)
			assert.Equal(t, cfg.Stress, loaded.Stress)
			sep, err := loaded.Separator()
			require.NoError(t, err)
			assert.Equal(t, ';', sep)
		})
	}
}

func TestLoadInvalidFile(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("run:\n  samples: 3\n"), 0644))
	_, err = LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestApplyEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SIMCUBE_WORKERS=6\n"), 0644))

	t.Setenv("SIMCUBE_SAMPLES", "25")
	t.Setenv("SIMCUBE_GRID", "3M,6M,1Y")
	t.Setenv("SIMCUBE_CONTINUE_ON_ERROR", "true")
	t.Setenv("SIMCUBE_CUBE_FILE", "/tmp/other.bin")
	t.Setenv("SIMCUBE_OBSERVATION_MODE", "Sometimes")
	// registered for restore, then cleared so the .env file can set it
	t.Setenv("SIMCUBE_WORKERS", "")
	require.NoError(t, os.Unsetenv("SIMCUBE_WORKERS"))

	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(filepath.Join(dir, "missing.env"), envFile))

	assert.Equal(t, 25, cfg.Run.Samples)
	assert.Equal(t, "3M,6M,1Y", cfg.Run.Grid)
	assert.True(t, cfg.Run.ContinueOnError)
	assert.Equal(t, "/tmp/other.bin", cfg.Output.Cube)
	assert.Equal(t, 6, cfg.Workers(), "read from the .env file")
	assert.Error(t, cfg.Validate(), "observation mode from the environment is still validated")

	t.Setenv("SIMCUBE_SAMPLES", "many")
	cfg = Default()
	require.NoError(t, cfg.ApplyEnv(filepath.Join(dir, "missing.env")))
	assert.Equal(t, 10, cfg.Run.Samples, "unparseable values keep the default")
}

func TestApplyEnvRejectsMalformedFile(t *testing.T) {
	bad := filepath.Join(t.TempDir(), "bad.env")
	require.NoError(t, os.WriteFile(bad, []byte("SIMCUBE-WORKERS=6\n"), 0644))

	cfg := Default()
	err := cfg.ApplyEnv(bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.env")
	assert.Equal(t, 1, cfg.Workers())
}

func TestExampleConfig(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join("..", "examples", "configs", "full.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "full", cfg.Run.Name)
	assert.Len(t, cfg.Portfolio, 4)
	assert.True(t, cfg.Simulation.SwaptionVols.Simulate)
	assert.Equal(t, 4, cfg.Workers())
	p, err := cfg.Precision()
	require.NoError(t, err)
	assert.Equal(t, cube.Single, p)
	m, err := cfg.ObservationMode()
	require.NoError(t, err)
	assert.Equal(t, simmarket.Defer, m)

	assert.Equal(t, scenario.Shift{Type: scenario.Relative, Size: 0.01}, cfg.Sensitivity.Shifts["FXSpot"])
	require.Len(t, cfg.Stress, 2)
	assert.Equal(t, "steepener", cfg.Stress[1].Label)
	assert.Equal(t, []float64{-0.001, 0, 0.001}, cfg.Stress[1].Shifts[0].Sizes)
}
