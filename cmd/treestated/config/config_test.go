package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "treestated.toml")
	text := `
listens = ["tcp://127.0.0.1:7000", "unix:///tmp/treestated.sock"]
data-dir = "/var/lib/treestated"
data-readonly = true
shutdown-timeout = "3s"
log-level = "debug"
dispatch-filter = 'action.type == "NOISE"'
journal-size = 16
max-payload-size = 1048576
verify = true
`
	require.NoError(t, ioutil.WriteFile(filename, []byte(text), 0644))

	var cfg Config
	require.NoError(t, Load(&cfg, filename))
	require.Equal(t, []string{"tcp://127.0.0.1:7000", "unix:///tmp/treestated.sock"}, cfg.Listens)
	require.Equal(t, "/var/lib/treestated", cfg.DataDir)
	require.True(t, cfg.DataReadonly)
	require.Equal(t, Duration(3*time.Second), cfg.ShutdownTimeout)
	require.Equal(t, `action.type == "NOISE"`, cfg.DispatchFilter)
	require.Equal(t, 16, cfg.JournalSize)
	require.Equal(t, int64(1<<20), cfg.MaxPayloadSize)
	require.True(t, cfg.Verify)

	require.NoError(t, cfg.Complete())
	require.Equal(t, DefaultConcurrentRequests, cfg.ConcurrentRequests)
	require.Equal(t, 16, cfg.JournalSize)
	require.Equal(t, logrus.DebugLevel, cfg.Logger().Level)
}

func TestLoadMissing(t *testing.T) {
	var cfg Config
	require.Error(t, Load(&cfg, filepath.Join(t.TempDir(), "missing.toml")))
}

func TestComplete(t *testing.T) {
	var cfg Config
	require.EqualError(t, cfg.Complete(), "no local addresses to listen on")

	cfg = Config{Listens: []string{"tcp://:7000"}, DataReadonly: true}
	require.Error(t, cfg.Complete())

	cfg = Config{Listens: []string{"tcp://:7000"}, LogLevel: "chatty"}
	require.Error(t, cfg.Complete())

	cfg = Config{Listens: []string{"tcp://:7000"}}
	require.NoError(t, cfg.Complete())
	require.Equal(t, DefaultShutdownTimeout, cfg.ShutdownTimeout)
	require.Equal(t, DefaultSlowDispatch, cfg.SlowDispatch)
	require.Equal(t, DefaultJournalSize, cfg.JournalSize)
	require.Equal(t, int64(DefaultMaxPayloadSize), cfg.MaxPayloadSize)
	require.Equal(t, "info", cfg.LogLevel)
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	require.Equal(t, Duration(90*time.Second), d)
	text, err := d.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "1m30s", string(text))
	require.Error(t, d.UnmarshalText([]byte("soon")))
}
