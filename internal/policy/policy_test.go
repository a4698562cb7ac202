package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shorthop/shorthop/internal/config"
	"github.com/shorthop/shorthop/internal/events"
)

func TestGetValidPathNoConflict(t *testing.T) {
	dir := t.TempDir()
	bus := events.NewBus()

	res, ok := GetValidPath(bus, nil, "a.txt", dir, false, config.Ask)
	require.True(t, ok)
	require.Equal(t, filepath.Join(dir, "a.txt"), res.Path)
	require.False(t, res.NeedCreate)
}

func TestGetValidPathOverwriteIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0o644))
	bus := events.NewBus()

	for i := 0; i < 3; i++ {
		res, ok := GetValidPath(bus, nil, "a.txt", dir, false, config.Overwrite)
		require.True(t, ok)
		require.Equal(t, existing, res.Path)
		require.False(t, res.NeedCreate)
	}
}

func TestGetValidPathSkip(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	bus := events.NewBus()

	res, ok := GetValidPath(bus, nil, "a.txt", dir, false, config.Skip)
	require.False(t, ok)
	require.Equal(t, Skipped, res)
}

func TestGetValidPathRenamePicksSmallestUnusedIndex(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0_a.txt"), []byte("x"), 0o644))
	bus := events.NewBus()

	res, ok := GetValidPath(bus, nil, "a.txt", dir, false, config.Rename)
	require.True(t, ok)
	require.Equal(t, filepath.Join(dir, "1_a.txt"), res.Path)
	require.True(t, res.NeedCreate)
}

func TestGetValidPathAskOverwriteViaPrompt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	bus := events.NewBus()

	done := make(chan struct {
		res Resolution
		ok  bool
	}, 1)
	go func() {
		res, ok := GetValidPath(bus, nil, "a.txt", dir, false, config.Ask)
		done <- struct {
			res Resolution
			ok  bool
		}{res, ok}
	}()

	ev := <-bus.Events()
	require.Equal(t, events.KindPrompt, ev.Kind)
	bus.Reply("o")

	result := <-done
	require.True(t, result.ok)
	require.Equal(t, filepath.Join(dir, "a.txt"), result.res.Path)
}

func TestGetValidPathAskUnknownInputReprompts(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("x"), 0o644))
	bus := events.NewBus()

	done := make(chan bool, 1)
	go func() {
		_, ok := GetValidPath(bus, nil, "a.txt", dir, false, config.Ask)
		done <- ok
	}()

	ev := <-bus.Events()
	require.Equal(t, events.KindPrompt, ev.Kind)
	bus.Reply("garbage")

	ev = <-bus.Events()
	require.Equal(t, events.KindPrompt, ev.Kind, "unknown input should re-prompt instead of advancing")
	bus.Reply("s")

	require.False(t, <-done)
}
