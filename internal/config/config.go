// Package config loads YAML configuration for playback defaults and the
// serve surface. Every field has a working default: an absent file or an
// empty document yields the same engine behavior as no configuration at
// all.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rhesis-ai/traceplay/internal/playback"
)

// Duration wraps time.Duration with YAML support for human-readable
// values ("10s", "250ms").
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var raw string
	if err := node.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// PlaybackConfig holds clock and driver defaults.
type PlaybackConfig struct {
	// ReferenceDuration is the wall-clock time one full playback takes at
	// 1x speed.
	ReferenceDuration Duration `yaml:"reference_duration"`

	// Speeds is the ordered speed cycle. Values must be positive.
	Speeds []float64 `yaml:"speeds"`

	// TickInterval is the animation tick period.
	TickInterval Duration `yaml:"tick_interval"`
}

// ServerConfig holds the serve surface settings.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr"`

	// TraceDir is the directory of trace files loaded at startup.
	TraceDir string `yaml:"trace_dir"`

	// PingInterval is the websocket keepalive ping period.
	PingInterval Duration `yaml:"ping_interval"`

	// WriteTimeout bounds each websocket write.
	WriteTimeout Duration `yaml:"write_timeout"`
}

// Config is the root configuration document.
type Config struct {
	Playback PlaybackConfig `yaml:"playback"`
	Server   ServerConfig   `yaml:"server"`
}

// Default returns the configuration used when no file is supplied.
func Default() *Config {
	return &Config{
		Playback: PlaybackConfig{
			ReferenceDuration: Duration(playback.DefaultReferenceDuration),
			Speeds:            append([]float64(nil), playback.DefaultSpeeds...),
			TickInterval:      Duration(playback.DefaultTickInterval),
		},
		Server: ServerConfig{
			Addr:         ":8080",
			TraceDir:     "traces",
			PingInterval: Duration(30 * time.Second),
			WriteTimeout: Duration(10 * time.Second),
		},
	}
}

// Load reads a YAML config file and overlays it on the defaults. Fields
// the file omits keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot run with.
func (c *Config) Validate() error {
	if c.Playback.ReferenceDuration <= 0 {
		return fmt.Errorf("playback.reference_duration must be positive, got %s", c.Playback.ReferenceDuration.Std())
	}
	if c.Playback.TickInterval <= 0 {
		return fmt.Errorf("playback.tick_interval must be positive, got %s", c.Playback.TickInterval.Std())
	}
	if len(c.Playback.Speeds) == 0 {
		return fmt.Errorf("playback.speeds must not be empty")
	}
	for _, s := range c.Playback.Speeds {
		if s <= 0 {
			return fmt.Errorf("playback.speeds must be positive, got %v", s)
		}
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr must not be empty")
	}
	if c.Server.PingInterval <= 0 {
		return fmt.Errorf("server.ping_interval must be positive, got %s", c.Server.PingInterval.Std())
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive, got %s", c.Server.WriteTimeout.Std())
	}
	return nil
}

// ClockOptions translates the playback section into clock options.
func (c *Config) ClockOptions() []playback.ClockOption {
	return []playback.ClockOption{
		playback.WithReferenceDuration(c.Playback.ReferenceDuration.Std()),
		playback.WithSpeeds(c.Playback.Speeds),
	}
}
