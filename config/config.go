package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/simcube/cube"
	"github.com/rustyeddy/simcube/dates"
	"github.com/rustyeddy/simcube/marketdata"
	"github.com/rustyeddy/simcube/portfolio"
	"github.com/rustyeddy/simcube/scenario"
	"github.com/rustyeddy/simcube/simmarket"
)

// Config represents a complete valuation run
type Config struct {
	Run        RunConfig               `json:"run" yaml:"run"`
	Market     marketdata.StaticConfig `json:"market" yaml:"market"`
	Simulation simmarket.Parameters    `json:"simulation" yaml:"simulation"`
	Portfolio  []portfolio.TradeConfig `json:"portfolio" yaml:"portfolio"`
	Scenarios  ScenarioConfig          `json:"scenarios" yaml:"scenarios"`
	Output     OutputConfig            `json:"output" yaml:"output"`

	Sensitivity scenario.SensitivityConfig `json:"sensitivity,omitempty" yaml:"sensitivity,omitempty"`
	Stress      []scenario.StressTest      `json:"stress,omitempty" yaml:"stress,omitempty"`
}

// RunConfig contains the shape of the cube and how the engine runs
type RunConfig struct {
	Name            string `json:"name,omitempty" yaml:"name,omitempty"`
	Grid            string `json:"grid" yaml:"grid"` // "10,1Y" or "3M,6M,1Y"
	Samples         int    `json:"samples" yaml:"samples"`
	Depth           int    `json:"depth" yaml:"depth"`
	Precision       string `json:"precision,omitempty" yaml:"precision,omitempty"`
	ObservationMode string `json:"observation_mode,omitempty" yaml:"observation_mode,omitempty"`
	ContinueOnError bool   `json:"continue_on_error" yaml:"continue_on_error"`
	Workers         int    `json:"workers,omitempty" yaml:"workers,omitempty"`
	Configuration   string `json:"configuration,omitempty" yaml:"configuration,omitempty"`
}

// ScenarioConfig selects where scenarios come from and whether they are
// dumped. With no input the market replays today's values.
type ScenarioConfig struct {
	Input     string `json:"input,omitempty" yaml:"input,omitempty"`
	Dump      string `json:"dump,omitempty" yaml:"dump,omitempty"`
	Header    bool   `json:"header" yaml:"header"`
	Numeraire bool   `json:"numeraire" yaml:"numeraire"`
	Separator string `json:"separator,omitempty" yaml:"separator,omitempty"`
}

// OutputConfig names the files a run writes
type OutputConfig struct {
	Cube        string        `json:"cube" yaml:"cube"`
	Aggregation string        `json:"aggregation,omitempty" yaml:"aggregation,omitempty"`
	Metrics     string        `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Journal     JournalConfig `json:"journal" yaml:"journal"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type   string `json:"type,omitempty" yaml:"type,omitempty"` // "csv", "sqlite" or empty
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// LoadFromFile loads configuration from a file, YAML first, then JSON
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Market.AsOf == "" {
		return fmt.Errorf("market.asof is required")
	}
	if _, err := c.AsOf(); err != nil {
		return fmt.Errorf("market.asof: %w", err)
	}
	if c.Run.Grid == "" {
		return fmt.Errorf("run.grid is required")
	}
	if _, err := c.Grid(); err != nil {
		return fmt.Errorf("run.grid: %w", err)
	}
	if c.Run.Samples <= 0 {
		return fmt.Errorf("run.samples must be positive")
	}
	if c.Run.Depth != 1 && c.Run.Depth != 2 {
		return fmt.Errorf("run.depth must be 1 or 2")
	}
	if _, err := c.Precision(); err != nil {
		return fmt.Errorf("run.precision: %w", err)
	}
	if _, err := c.ObservationMode(); err != nil {
		return fmt.Errorf("run.observation_mode: %w", err)
	}
	if c.Run.Workers < 0 {
		return fmt.Errorf("run.workers must not be negative")
	}
	if err := c.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	if len(c.Portfolio) == 0 {
		return fmt.Errorf("portfolio needs at least one trade")
	}
	if _, err := c.Separator(); err != nil {
		return err
	}
	if err := c.Sensitivity.Validate(); err != nil {
		return err
	}
	if err := scenario.ValidateStressTests(c.Stress); err != nil {
		return err
	}
	if c.Output.Cube == "" {
		return fmt.Errorf("output.cube is required")
	}
	switch c.Output.Journal.Type {
	case "":
	case "csv":
		if c.Output.Journal.Dir == "" {
			return fmt.Errorf("output.journal.dir required for CSV type")
		}
	case "sqlite":
		if c.Output.Journal.DBPath == "" {
			return fmt.Errorf("output.journal.db_path required for SQLite type")
		}
	default:
		return fmt.Errorf("output.journal.type must be 'csv' or 'sqlite'")
	}
	return nil
}

func (c *Config) AsOf() (time.Time, error) { return dates.ParseDate(c.Market.AsOf) }

func (c *Config) Grid() (*dates.Grid, error) {
	asof, err := c.AsOf()
	if err != nil {
		return nil, err
	}
	return dates.ParseGrid(asof, c.Run.Grid)
}

// Precision defaults to double.
func (c *Config) Precision() (cube.Precision, error) {
	if c.Run.Precision == "" {
		return cube.Double, nil
	}
	return cube.ParsePrecision(c.Run.Precision)
}

func (c *Config) ObservationMode() (simmarket.ObservationMode, error) {
	return simmarket.ParseObservationMode(c.Run.ObservationMode)
}

// Separator defaults to a comma.
func (c *Config) Separator() (rune, error) {
	switch len([]rune(c.Scenarios.Separator)) {
	case 0:
		return ',', nil
	case 1:
		return []rune(c.Scenarios.Separator)[0], nil
	}
	return 0, fmt.Errorf("scenarios.separator must be a single character")
}

// Workers defaults to one.
func (c *Config) Workers() int {
	if c.Run.Workers <= 0 {
		return 1
	}
	return c.Run.Workers
}

// ApplyEnv loads .env files, when present, and lets SIMCUBE_* variables
// override run settings. With no files it looks for ./.env. Missing files
// are skipped, malformed ones are an error.
func (c *Config) ApplyEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load env file %s: %w", f, err)
		}
	}

	c.Run.Grid = getEnv("SIMCUBE_GRID", c.Run.Grid)
	c.Run.Samples = getEnvAsInt("SIMCUBE_SAMPLES", c.Run.Samples)
	c.Run.Workers = getEnvAsInt("SIMCUBE_WORKERS", c.Run.Workers)
	c.Run.ObservationMode = getEnv("SIMCUBE_OBSERVATION_MODE", c.Run.ObservationMode)
	c.Run.ContinueOnError = getEnvAsBool("SIMCUBE_CONTINUE_ON_ERROR", c.Run.ContinueOnError)
	c.Output.Cube = getEnv("SIMCUBE_CUBE_FILE", c.Output.Cube)
	c.Output.Metrics = getEnv("SIMCUBE_METRICS_FILE", c.Output.Metrics)
	c.Output.Journal.DBPath = getEnv("SIMCUBE_JOURNAL_DB", c.Output.Journal.DBPath)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// Default returns a small two currency run that works out of the box
func Default() *Config {
	return &Config{
		Run: RunConfig{
			Name:            "default",
			Grid:            "10,1Y",
			Samples:         10,
			Depth:           2,
			Precision:       "double",
			ObservationMode: "Disable",
			Workers:         1,
			Configuration:   "default",
		},
		Market: marketdata.StaticConfig{
			AsOf: "2016-02-05",
			Discount: map[string]marketdata.CurveConfig{
				"EUR": {Tenors: []string{"1Y", "5Y", "10Y", "20Y"}, Rates: []float64{0.001, 0.004, 0.008, 0.012}},
				"USD": {Tenors: []string{"1Y", "5Y", "10Y", "20Y"}, Rates: []float64{0.006, 0.013, 0.018, 0.022}},
			},
			Indices: map[string]marketdata.IndexConfig{
				"EUR-EURIBOR-6M": {Curve: marketdata.CurveConfig{Tenors: []string{"1Y", "10Y"}, Rates: []float64{0.0015, 0.009}}},
			},
			FX: map[string]float64{"USDEUR": 0.895},
			Fixings: map[string]map[string]float64{
				"EUR-EURIBOR-6M": {"2016-02-05": 0.0005},
			},
		},
		Simulation: simmarket.Parameters{
			BaseCurrency:   "EUR",
			Currencies:     []string{"EUR", "USD"},
			DiscountCurves: simmarket.CurveParams{Tenors: []string{"1Y", "2Y", "5Y", "10Y", "20Y"}},
			Indices:        simmarket.CurveParams{Names: []string{"EUR-EURIBOR-6M"}, Tenors: []string{"6M", "1Y", "5Y", "10Y"}},
			Aggregation: simmarket.AggregationParams{
				Indices:    []string{"EUR-EURIBOR-6M"},
				Currencies: []string{"USD"},
			},
		},
		Portfolio: []portfolio.TradeConfig{
			{ID: "ZB_EUR_10Y", Type: "ZeroBond", Currency: "EUR", Notional: 1e6, Maturity: "10Y"},
			{ID: "FXFWD_USDEUR_2Y", Type: "FxForward", BoughtCurrency: "USD", BoughtAmount: 1e6, SoldCurrency: "EUR", SoldAmount: 0.9e6, Maturity: "2Y"},
			{ID: "FLT_EUR_6M_3Y", Type: "FloatingCoupon", Index: "EUR-EURIBOR-6M", Notional: 1e6, Spread: 0.001, FixingDate: "30M", Maturity: "3Y"},
		},
		Scenarios: ScenarioConfig{Header: true},
		Output: OutputConfig{
			Cube:        "./cube.bin",
			Aggregation: "./aggregation.bin",
		},
		Sensitivity: scenario.SensitivityConfig{
			Shifts: map[string]scenario.Shift{
				"DiscountCurve": {Type: scenario.Absolute, Size: 0.0001},
				"IndexCurve":    {Type: scenario.Absolute, Size: 0.0001},
				"FXSpot":        {Type: scenario.Relative, Size: 0.01},
			},
			CrossGamma: [][]string{{"DiscountCurve", "FXSpot"}},
		},
		Stress: []scenario.StressTest{
			{Label: "parallel_up", Shifts: []scenario.StressShift{
				{Factor: "DiscountCurve", Type: scenario.Absolute, Size: 0.01},
				{Factor: "IndexCurve", Type: scenario.Absolute, Size: 0.01},
			}},
			{Label: "fx_down", Shifts: []scenario.StressShift{{Factor: "FXSpot", Type: scenario.Relative, Size: -0.1}}},
		},
	}
}
