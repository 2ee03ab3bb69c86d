// Package config loads the gateway's optional yaml configuration. The two
// segment addresses are deliberately not part of the file: they are required
// command-line arguments, and their absence is a fatal usage error before
// any relay starts.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so yaml values can be written as Go duration
// strings ("50ms", "5s") or bare nanosecond integers.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	// An unquoted integer scalar also decodes into a string, so the bare
	// nanosecond form must be picked off by tag first.
	if value.Tag == "!!int" {
		var n int64
		if err := value.Decode(&n); err != nil {
			return fmt.Errorf("invalid duration value: %w", err)
		}
		*d = Duration(n)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Relay     RelayConfig     `yaml:"relay"`
	Status    StatusConfig    `yaml:"status"`
}

type SchedulerConfig struct {
	Tick Duration `yaml:"tick"`
}

type RelayConfig struct {
	BufferSize int `yaml:"buffer_size"`
}

type StatusConfig struct {
	Enabled           bool     `yaml:"enabled"`
	Host              string   `yaml:"host"`
	Port              int      `yaml:"port"`
	SnapshotInterval  Duration `yaml:"snapshot_interval"`
	BroadcastThrottle Duration `yaml:"broadcast_throttle"`
}

func defaultConfig() *Config {
	return &Config{
		Scheduler: SchedulerConfig{
			Tick: Duration(50 * time.Millisecond),
		},
		Relay: RelayConfig{
			BufferSize: 4096,
		},
		Status: StatusConfig{
			Enabled:           true,
			Host:              "127.0.0.1",
			Port:              8555,
			SnapshotInterval:  Duration(5 * time.Second),
			BroadcastThrottle: Duration(250 * time.Millisecond),
		},
	}
}

// Load reads the config file at path on top of the defaults. A missing file
// is not an error; the defaults describe the reference behavior.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	if cfg.Scheduler.Tick <= 0 {
		return nil, fmt.Errorf("scheduler.tick must be positive, got %s", cfg.Scheduler.Tick.Std())
	}
	if cfg.Relay.BufferSize <= 0 {
		return nil, fmt.Errorf("relay.buffer_size must be positive, got %d", cfg.Relay.BufferSize)
	}

	return cfg, nil
}
