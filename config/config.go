// Package config holds the settings of a timeline rendering run.
//
// Values are layered: defaults, then a YAML or TOML file, then THREADVIZ_*
// environment variables (optionally loaded from a dotenv file), then command
// line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/shirou/gopsutil/cpu"
	"gopkg.in/yaml.v3"

	"github.com/sarchlab/threadviz/render"
	"github.com/sarchlab/threadviz/timeline"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "THREADVIZ_"

// Config is the configuration of a rendering run.
type Config struct {
	AcceleratorLog string `yaml:"accelerator_log" toml:"accelerator_log" validate:"required_without=SQLite"`
	WorkerLog      string `yaml:"worker_log" toml:"worker_log" validate:"required_without=SQLite"`
	SQLite         string `yaml:"sqlite" toml:"sqlite"`
	Output         string `yaml:"output" toml:"output" validate:"required"`
	Record         string `yaml:"record" toml:"record"`

	TrimCount     int  `yaml:"trim_count" toml:"trim_count" validate:"gte=0"`
	LaneCount     int  `yaml:"lane_count" toml:"lane_count" validate:"gt=0"`
	FirstWorkerID int  `yaml:"first_worker_id" toml:"first_worker_id" validate:"gte=0"`
	ExtendedMode  bool `yaml:"extended_mode" toml:"extended_mode"`

	Width            int    `yaml:"width" toml:"width" validate:"gt=0"`
	Height           int    `yaml:"height" toml:"height" validate:"gt=0"`
	Title            string `yaml:"title" toml:"title"`
	AcceleratorLabel string `yaml:"accelerator_label" toml:"accelerator_label"`
	TransferLabel    string `yaml:"transfer_label" toml:"transfer_label"`

	// Styles overrides the look of phases, keyed by phase name.
	Styles map[string]StyleConfig `yaml:"styles" toml:"styles" validate:"dive"`

	LogLevel string `yaml:"log_level" toml:"log_level" validate:"oneof=trace debug info warn error"`
}

// StyleConfig overrides parts of a phase style. Empty fields keep the
// default.
type StyleConfig struct {
	Edge  string   `yaml:"edge" toml:"edge"`
	Fill  string   `yaml:"fill" toml:"fill"`
	Alpha *float64 `yaml:"alpha" toml:"alpha" validate:"omitempty,gte=0,lte=1"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Output:           "thread_timeline.png",
		LaneCount:        DefaultLaneCount(),
		FirstWorkerID:    1,
		Width:            1200,
		Height:           800,
		Title:            "Thread Execution Timeline",
		AcceleratorLabel: "GPU",
		TransferLabel:    "Worker 0",
		LogLevel:         "info",
	}
}

// DefaultLaneCount is one worker lane per logical CPU, leaving one CPU for
// the accelerator thread. It is never below 1.
func DefaultLaneCount() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 2 {
		return 1
	}

	return n - 1
}

// Load reads a YAML (.yaml, .yml) or TOML (.toml) file on top of the
// defaults. Unknown keys are errors.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)

		err = dec.Decode(cfg)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	case ".toml":
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()

		err = dec.Decode(cfg)
	default:
		return nil, fmt.Errorf("config file %s: unknown format", path)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// ApplyEnv loads envFile, if given, into the process environment and then
// applies the THREADVIZ_* overrides to cfg. Variables already set in the
// environment win over the file.
func ApplyEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		err := godotenv.Load(envFile)
		if err != nil {
			return fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	if v, ok := lookup("TRIM_COUNT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError("TRIM_COUNT", v, err)
		}

		cfg.TrimCount = n
	}

	if v, ok := lookup("LANE_COUNT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return envError("LANE_COUNT", v, err)
		}

		cfg.LaneCount = n
	}

	if v, ok := lookup("EXTENDED_MODE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return envError("EXTENDED_MODE", v, err)
		}

		cfg.ExtendedMode = b
	}

	if v, ok := lookup("OUTPUT"); ok {
		cfg.Output = v
	}

	if v, ok := lookup("LOG_LEVEL"); ok {
		cfg.LogLevel = strings.ToLower(v)
	}

	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok {
		return "", false
	}

	v = strings.TrimSpace(v)

	return v, v != ""
}

func envError(name, value string, err error) error {
	return fmt.Errorf("invalid %s%s=%q: %w", EnvPrefix, name, value, err)
}

// Validate checks the value ranges of the configuration.
func (c *Config) Validate() error {
	err := validator.New().Struct(c)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	_, err = c.RenderStyles()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	return nil
}

// RenderStyles returns the default phase styles with the configured
// overrides applied.
func (c *Config) RenderStyles() (map[timeline.Phase]render.Style, error) {
	styles := render.DefaultStyles()

	for name, override := range c.Styles {
		phase := timeline.Phase(name)

		style, ok := styles[phase]
		if !ok {
			return nil, fmt.Errorf("unknown phase %q", name)
		}

		if override.Edge != "" {
			col, err := render.ParseColor(override.Edge)
			if err != nil {
				return nil, fmt.Errorf("phase %s edge: %w", name, err)
			}

			style.Edge = col
		}

		if override.Fill != "" {
			col, err := render.ParseColor(override.Fill)
			if err != nil {
				return nil, fmt.Errorf("phase %s fill: %w", name, err)
			}

			style.Fill = col
		}

		if override.Alpha != nil {
			style.Alpha = *override.Alpha
		}

		styles[phase] = style
	}

	return styles, nil
}
