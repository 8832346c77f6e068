package dispatch

import (
	"bytes"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestFilter(t *testing.T) {
	filter, err := Filter(`action.type == "SECRET" || (action.type == "INC" && action.payload == "skip")`)
	require.NoError(t, err)
	r := newRuntime(t, map[string]Reducer{"n": counter, "log": recorder}, &Options{Processors: []Processor{filter}})
	mustDispatch(t, r, Action{Type: "SECRET"})
	mustDispatch(t, r, Action{Type: "INC", Payload: "skip"})
	mustDispatch(t, r, Action{Type: "INC", Payload: "count"})
	require.Equal(t, []string{"INC"}, slice(r, "log"))
	require.Equal(t, int64(1), slice(r, "n"))

	_, err = Filter(`action.`)
	require.Error(t, err)
}

func TestJournal(t *testing.T) {
	journal := NewJournal(3)
	r := newRuntime(t, map[string]Reducer{"n": counter}, &Options{Processors: []Processor{journal.Processor}})
	mustDispatch(t, r, Action{Type: "INC"})
	ticket, err := r.Dispatch(Action{Type: "FAIL", Error: true})
	require.NoError(t, err)
	wait(t, ticket)
	mustDispatch(t, r, Action{Type: "INC"})

	entries := journal.Entries()
	require.Len(t, entries, 3)
	require.Equal(t, "INC", entries[0].Type)
	require.Equal(t, "FAIL", entries[1].Type)
	require.True(t, entries[1].Error)
	require.Error(t, entries[1].Err)
	require.Equal(t, "INC", entries[2].Type)
	require.NoError(t, entries[2].Err)
	require.True(t, entries[0].ID.Compare(entries[1].ID) < 0)
	require.True(t, entries[1].ID.Compare(entries[2].ID) < 0)
}

func TestLoggingProcessors(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.Out = &buf
	logger.Level = logrus.DebugLevel
	r := newRuntime(t, map[string]Reducer{"n": counter}, &Options{
		Logger:     logger,
		Processors: []Processor{Logger(logger), Perfmon(logger, time.Hour)},
	})
	mustDispatch(t, r, Action{Type: "INC"})
	ticket, err := r.Dispatch(Action{Type: "FAIL"})
	require.NoError(t, err)
	wait(t, ticket)

	out := buf.String()
	require.Contains(t, out, "runtime["+r.ID()+"] action INC error=false")
	require.Contains(t, out, "action INC took")
	require.Contains(t, out, "action FAIL failed")
}
