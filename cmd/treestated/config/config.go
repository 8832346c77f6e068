package config

import (
	"errors"
	"io/ioutil"
	"time"

	"github.com/kezhuw/toml"
	"github.com/kezhuw/treestate/protocol"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Listens            []string `toml:"listens"`
	DataDir            string   `toml:"data-dir"`
	DataReadonly       bool     `toml:"data-readonly"`
	ShutdownTimeout    Duration `toml:"shutdown-timeout"`
	ConcurrentRequests int      `toml:"concurrent-requests"`
	MaxPayloadSize     int64    `toml:"max-payload-size"`
	LogLevel           string   `toml:"log-level"`
	DispatchFilter     string   `toml:"dispatch-filter"`
	JournalSize        int      `toml:"journal-size"`
	SlowDispatch       Duration `toml:"slow-dispatch"`
	Verify             bool     `toml:"verify"`
}

const (
	DefaultConcurrentRequests = 128
	DefaultJournalSize        = 256
	DefaultMaxPayloadSize     = protocol.DefaultMaxPayloadSize
	DefaultShutdownTimeout    = Duration(5 * time.Second)
	DefaultSlowDispatch       = Duration(100 * time.Millisecond)
)

type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	t, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(t)
	return nil
}

func (d *Duration) MarshalText() ([]byte, error) {
	s := time.Duration(*d).String()
	return []byte(s), nil
}

func Load(cfg *Config, filename string) error {
	text, err := ioutil.ReadFile(filename)
	if err != nil {
		return err
	}
	return toml.Unmarshal(text, cfg)
}

// Complete fills unset fields with defaults and validates the rest.
func (cfg *Config) Complete() error {
	if len(cfg.Listens) == 0 {
		return errors.New("no local addresses to listen on")
	}
	if cfg.DataReadonly && cfg.DataDir == "" {
		return errors.New("readonly data requires a data directory")
	}
	if cfg.ConcurrentRequests <= 0 {
		cfg.ConcurrentRequests = DefaultConcurrentRequests
	}
	if cfg.MaxPayloadSize <= 0 {
		cfg.MaxPayloadSize = DefaultMaxPayloadSize
	}
	if cfg.JournalSize <= 0 {
		cfg.JournalSize = DefaultJournalSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.SlowDispatch <= 0 {
		cfg.SlowDispatch = DefaultSlowDispatch
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = logrus.InfoLevel.String()
	}
	_, err := logrus.ParseLevel(cfg.LogLevel)
	return err
}

func (cfg *Config) Logger() *logrus.Logger {
	logger := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.Level = level
	}
	return logger
}
