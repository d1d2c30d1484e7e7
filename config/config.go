// Package config loads the device TOML file that drives aifd.
package config

import (
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	aif "github.com/goliatone/go-aif"
)

const (
	StoreDir      = "dir"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
	StoreEmbedded = "embedded"

	PolicyAbort    = "abort"
	PolicyContinue = "continue"
)

type Config struct {
	Name       string
	Workflow   string
	Store      StoreConfig
	Bus        BusConfig
	Controller ControllerConfig
	LogLevel   string
	// MetricsAddr is empty when the metrics endpoint is disabled.
	MetricsAddr string
}

type StoreConfig struct {
	Kind    string
	Path    string
	Retries int
	Backoff time.Duration
}

type BusConfig struct {
	MessageSize int
	Capacity    int
	PollTimeout time.Duration
}

type ControllerConfig struct {
	FailurePolicy  string
	StrictTopology bool
	StatusCron     string
}

func Default() Config {
	return Config{
		Name:     "demo",
		Workflow: "CAE-REV",
		Store: StoreConfig{
			Kind:    StoreDir,
			Path:    "./configs",
			Backoff: 200 * time.Millisecond,
		},
		Bus: BusConfig{
			MessageSize: 256,
			Capacity:    20,
			PollTimeout: time.Second,
		},
		Controller: ControllerConfig{
			FailurePolicy:  PolicyAbort,
			StrictTopology: true,
			StatusCron:     "@every 5s",
		},
		LogLevel: "info",
	}
}

type fileConfig struct {
	AIF struct {
		Name     string `toml:"name"`
		Workflow string `toml:"workflow"`
	} `toml:"aif"`
	Store struct {
		Kind    string `toml:"kind"`
		Path    string `toml:"path"`
		Retries int    `toml:"retries"`
		Backoff string `toml:"backoff"`
	} `toml:"store"`
	Bus struct {
		MessageSize int    `toml:"message_size"`
		Capacity    int    `toml:"capacity"`
		PollTimeout string `toml:"poll_timeout"`
	} `toml:"bus"`
	Controller struct {
		FailurePolicy  string `toml:"failure_policy"`
		StrictTopology bool   `toml:"strict_topology"`
		StatusCron     string `toml:"status_cron"`
	} `toml:"controller"`
	Log struct {
		Level string `toml:"level"`
	} `toml:"log"`
	Metrics struct {
		Addr string `toml:"addr"`
	} `toml:"metrics"`
}

// Load reads path, overlays it on Default and validates the result.
func Load(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, invalid("load config", "path", path, err)
	}
	return build(raw, meta)
}

// Parse is Load for an in-memory document.
func Parse(data string) (Config, error) {
	var raw fileConfig
	meta, err := toml.Decode(data, &raw)
	if err != nil {
		return Config{}, invalid("parse config", "", "", err)
	}
	return build(raw, meta)
}

func build(raw fileConfig, meta toml.MetaData) (Config, error) {
	cfg := Default()

	if meta.IsDefined("aif", "name") {
		cfg.Name = strings.TrimSpace(raw.AIF.Name)
	}
	if meta.IsDefined("aif", "workflow") {
		cfg.Workflow = strings.TrimSpace(raw.AIF.Workflow)
	}

	if meta.IsDefined("store", "kind") {
		cfg.Store.Kind = strings.ToLower(strings.TrimSpace(raw.Store.Kind))
	}
	if meta.IsDefined("store", "path") {
		cfg.Store.Path = strings.TrimSpace(raw.Store.Path)
	}
	if meta.IsDefined("store", "retries") {
		cfg.Store.Retries = raw.Store.Retries
	}
	if meta.IsDefined("store", "backoff") {
		d, err := parseDuration("store.backoff", raw.Store.Backoff)
		if err != nil {
			return Config{}, err
		}
		cfg.Store.Backoff = d
	}

	if meta.IsDefined("bus", "message_size") {
		cfg.Bus.MessageSize = raw.Bus.MessageSize
	}
	if meta.IsDefined("bus", "capacity") {
		cfg.Bus.Capacity = raw.Bus.Capacity
	}
	if meta.IsDefined("bus", "poll_timeout") {
		d, err := parseDuration("bus.poll_timeout", raw.Bus.PollTimeout)
		if err != nil {
			return Config{}, err
		}
		cfg.Bus.PollTimeout = d
	}

	if meta.IsDefined("controller", "failure_policy") {
		cfg.Controller.FailurePolicy = strings.ToLower(strings.TrimSpace(raw.Controller.FailurePolicy))
	}
	if meta.IsDefined("controller", "strict_topology") {
		cfg.Controller.StrictTopology = raw.Controller.StrictTopology
	}
	if meta.IsDefined("controller", "status_cron") {
		cfg.Controller.StatusCron = strings.TrimSpace(raw.Controller.StatusCron)
	}

	if meta.IsDefined("log", "level") {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(raw.Log.Level))
	}
	if meta.IsDefined("metrics", "addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.Metrics.Addr)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, invalid("unknown config key", "key", undecoded[0].String(), nil)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Workflow == "" {
		return invalid("workflow is required", "key", "aif.workflow", nil)
	}
	switch c.Store.Kind {
	case StoreDir, StoreSQLite:
		if c.Store.Path == "" {
			return invalid("store path is required", "key", "store.path", nil)
		}
	case StoreMemory, StoreEmbedded:
	default:
		return invalid("unsupported store kind "+c.Store.Kind, "key", "store.kind", nil)
	}
	if c.Store.Retries < 0 {
		return invalid("store retries must not be negative", "key", "store.retries", nil)
	}
	if c.Store.Backoff < 0 {
		return invalid("store backoff must not be negative", "key", "store.backoff", nil)
	}
	if c.Bus.MessageSize < 0 {
		return invalid("message size must not be negative", "key", "bus.message_size", nil)
	}
	if c.Bus.Capacity <= 0 {
		return invalid("bus capacity must be positive", "key", "bus.capacity", nil)
	}
	if c.Bus.PollTimeout <= 0 {
		return invalid("poll timeout must be positive", "key", "bus.poll_timeout", nil)
	}
	switch c.Controller.FailurePolicy {
	case PolicyAbort, PolicyContinue:
	default:
		return invalid("unsupported failure policy "+c.Controller.FailurePolicy, "key", "controller.failure_policy", nil)
	}
	switch c.LogLevel {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return invalid("unsupported log level "+c.LogLevel, "key", "log.level", nil)
	}
	return nil
}

func parseDuration(key, value string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return 0, invalid("parse "+key, "key", key, err)
	}
	return d, nil
}

func invalid(msg, metaKey, metaValue string, source error) error {
	var meta map[string]any
	if metaKey != "" {
		meta = map[string]any{metaKey: metaValue}
	}
	return aif.CloneError(aif.ErrInvalidConfig, msg, source, meta)
}
