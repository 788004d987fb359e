package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/pixil98/go-errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hersh/towerrelay/internal/messaging"
	"github.com/hersh/towerrelay/internal/room"
)

const (
	defaultPort             = "3000"
	defaultBus              = BusLocal
	defaultNatsHost         = "127.0.0.1"
	defaultNatsPort         = -1
	defaultNatsStartTimeout = 10 * time.Second
	defaultLogLevel         = "info"
	defaultLogFormat        = "json"
)

const (
	BusLocal = "local"
	BusNats  = "nats"
)

type Config struct {
	Port  string
	Rooms RoomsConfig
	Bus   BusConfig
	Log   LogConfig
}

type RoomsConfig struct {
	Capacity   int
	StartCoins int
}

type BusConfig struct {
	Kind         string
	Host         string
	Port         int
	StartTimeout time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

// LoadConfig reads the relay configuration from the environment. Every
// malformed value is reported, not just the first.
func LoadConfig(lookup func(string) (string, bool)) (*Config, error) {
	el := errors.NewErrorList()

	env := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}
	envInt := func(key string, def int) int {
		v, ok := lookup(key)
		if !ok || v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			el.Add(fmt.Errorf("parsing %s: %w", key, err))
			return def
		}
		return n
	}
	envDuration := func(key string, def time.Duration) time.Duration {
		v, ok := lookup(key)
		if !ok || v == "" {
			return def
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			el.Add(fmt.Errorf("parsing %s: %w", key, err))
			return def
		}
		return d
	}

	cfg := &Config{
		Port: env("PORT", defaultPort),
		Rooms: RoomsConfig{
			Capacity:   envInt("RELAY_ROOM_CAPACITY", room.DefaultCapacity),
			StartCoins: envInt("RELAY_START_COINS", room.DefaultStartCoins),
		},
		Bus: BusConfig{
			Kind:         env("RELAY_BUS", defaultBus),
			Host:         env("RELAY_NATS_HOST", defaultNatsHost),
			Port:         envInt("RELAY_NATS_PORT", defaultNatsPort),
			StartTimeout: envDuration("RELAY_NATS_START_TIMEOUT", defaultNatsStartTimeout),
		},
		Log: LogConfig{
			Level:  env("RELAY_LOG_LEVEL", defaultLogLevel),
			Format: env("RELAY_LOG_FORMAT", defaultLogFormat),
		},
	}

	if err := el.Err(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	el := errors.NewErrorList()

	if n, err := strconv.Atoi(c.Port); err != nil || n < 1 || n > 65535 {
		el.Add(fmt.Errorf("PORT must be a port number, got %q", c.Port))
	}
	el.Add(c.Rooms.validate())
	el.Add(c.Bus.validate())
	el.Add(c.Log.validate())

	return el.Err()
}

// Addr is the HTTP listen address.
func (c *Config) Addr() string {
	return ":" + c.Port
}

func (c *RoomsConfig) validate() error {
	el := errors.NewErrorList()

	if c.Capacity < 1 {
		el.Add(fmt.Errorf("RELAY_ROOM_CAPACITY must be at least 1"))
	}
	if c.StartCoins < 0 {
		el.Add(fmt.Errorf("RELAY_START_COINS must not be negative"))
	}

	return el.Err()
}

func (c *RoomsConfig) directoryOpts() []room.DirectoryOpt {
	return []room.DirectoryOpt{
		room.WithCapacity(c.Capacity),
		room.WithStartCoins(c.StartCoins),
	}
}

func (c *BusConfig) validate() error {
	el := errors.NewErrorList()

	switch c.Kind {
	case BusLocal, BusNats:
	default:
		el.Add(fmt.Errorf("RELAY_BUS must be %q or %q, got %q", BusLocal, BusNats, c.Kind))
	}
	if c.Port < -1 || c.Port > 65535 {
		el.Add(fmt.Errorf("RELAY_NATS_PORT out of range: %d", c.Port))
	}
	if c.StartTimeout <= 0 {
		el.Add(fmt.Errorf("RELAY_NATS_START_TIMEOUT must be positive"))
	}

	return el.Err()
}

func (c *BusConfig) buildNatsServer(logger *zap.Logger) (*messaging.NatsServer, error) {
	return messaging.NewNatsServer(
		messaging.WithHost(c.Host),
		messaging.WithPort(c.Port),
		messaging.WithStartTimeout(c.StartTimeout),
		messaging.WithLogger(logger),
	)
}

func (c *LogConfig) validate() error {
	el := errors.NewErrorList()

	if _, err := zapcore.ParseLevel(c.Level); err != nil {
		el.Add(fmt.Errorf("parsing RELAY_LOG_LEVEL: %w", err))
	}
	if c.Format != "json" && c.Format != "console" {
		el.Add(fmt.Errorf("RELAY_LOG_FORMAT must be json or console, got %q", c.Format))
	}

	return el.Err()
}

func (c *LogConfig) buildLogger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if c.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}
