package main

import (
	"testing"

	"github.com/kezhuw/treestate/cmd/treestate/client"
	"github.com/stretchr/testify/require"
)

func TestExecute(t *testing.T) {
	var s State
	require.Equal(t, "> ", s.Prompt())

	result, usage, err := s.Execute("  help  ")
	require.NoError(t, err)
	require.Empty(t, result)
	require.Contains(t, usage, "select PATH EXPR")
	require.Contains(t, usage, "disconnect")

	_, usage, _ = s.Execute("HELP get")
	require.Contains(t, usage, "get PATH")

	_, usage, _ = s.Execute("help nonsense")
	require.Equal(t, notFoundUsage, usage)

	_, usage, _ = s.Execute("version")
	require.Equal(t, version, usage)

	_, usage, _ = s.Execute("nonsense")
	require.Equal(t, notFoundUsage, usage)

	_, _, err = s.Execute("get a")
	require.Equal(t, ErrNoClient, err)

	_, usage, err = s.Execute("connect")
	require.Equal(t, client.ErrInvalidArguments, err)
	require.Contains(t, usage, "connect ADDRESS")

	_, _, err = s.Execute("disconnect")
	require.Equal(t, ErrNoClient, err)

	_, _, err = s.Execute("quit")
	require.Equal(t, errQuit, err)

	result, usage, err = s.Execute("   ")
	require.NoError(t, err)
	require.Empty(t, result)
	require.Empty(t, usage)
}
