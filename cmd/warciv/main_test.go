package main

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSnapshotArg(t *testing.T) {
	path, err := snapshotArg([]string{"warciv", "export", "world.snap"})
	require.NoError(t, err)
	require.Equal(t, "world.snap", path)

	// A bare subcommand must not fall through to the daemon.
	_, err = snapshotArg([]string{"warciv", "export"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "usage: warciv export <file>")

	_, err = snapshotArg([]string{"/usr/local/bin/warciv", "import", ""})
	require.Error(t, err)
	require.Contains(t, err.Error(), "usage: warciv import <file>")
}

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	require.Equal(t, slog.LevelWarn, parseLogLevel("warn"))
	require.Equal(t, slog.LevelError, parseLogLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLogLevel("info"))
	require.Equal(t, slog.LevelInfo, parseLogLevel("chatty"))
}
