package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/icemaze/internal/config"
	"github.com/copyleftdev/icemaze/internal/logging"
)

func setup(t *testing.T, layout string) string {
	t.Helper()
	cfg = &config.Config{}
	cfg.Optimization.WorkerCount = 2
	cfg.Optimization.CacheSize = 128
	logger = logging.New(logging.ErrorLevel, io.Discard)

	path := filepath.Join(t.TempDir(), "map.txt")
	require.NoError(t, os.WriteFile(path, []byte(layout), 0o644))
	return path
}

func TestRunSolve(t *testing.T) {
	path := setup(t, "-   +\n ### \n     \n")

	var out bytes.Buffer
	require.NoError(t, runSolve(&out, path))

	want := "-   +\n ### \n     \n\n*****\n ### \n     \n\nRoute length: 5\n"
	assert.Equal(t, want, out.String())
}

func TestRunSolveUnsolvable(t *testing.T) {
	path := setup(t, "-#+")

	var out bytes.Buffer
	err := runSolve(&out, path)
	assert.ErrorIs(t, err, errNoSolution)
	assert.Equal(t, "-#+\n\n", out.String())
}

func TestRunSolveMissingFile(t *testing.T) {
	setup(t, "-+")
	err := runSolve(io.Discard, filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, errNoSolution)
}

func TestRunEvolve(t *testing.T) {
	path := setup(t, "-   +\n ### \n     ")

	var out bytes.Buffer
	err := runEvolve(context.Background(), &out, path, 1, evolveOptions{
		population: 16,
		elite:      4,
		mutation:   0.5,
		epochs:     3,
		perEpoch:   5,
		seed:       11,
	})
	require.NoError(t, err)

	text := out.String()
	assert.True(t, strings.HasPrefix(text, "-   +\n ### \n     \n\n"), text)
	assert.Contains(t, text, "Epoch 1: ")
	assert.Contains(t, text, "Epoch 3: 9\n")
	assert.NotContains(t, text, "Epoch 4")
	assert.Contains(t, text, "Best fitness 9 after 15 generations")
}

func TestRunEvolveUnsolvable(t *testing.T) {
	path := setup(t, "- +")

	var out bytes.Buffer
	err := runEvolve(context.Background(), &out, path, 1, evolveOptions{
		population: 4,
		elite:      1,
		mutation:   0.5,
		epochs:     1,
		perEpoch:   2,
		seed:       1,
	})
	assert.ErrorIs(t, err, errNoSolution)
	assert.Contains(t, out.String(), "Epoch 1: 0\n")
	assert.Contains(t, out.String(), "-#+\n")
}

func TestRunEvolveInvalid(t *testing.T) {
	path := setup(t, "- +")

	err := runEvolve(context.Background(), io.Discard, path, 5, evolveOptions{
		population: 4, elite: 1, mutation: 0.5, epochs: 1, perEpoch: 1,
	})
	require.Error(t, err)

	err = runEvolve(context.Background(), io.Discard, path, 1, evolveOptions{
		population: 4, elite: 1, mutation: 0.5, epochs: 1, perEpoch: 0,
	})
	require.Error(t, err)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"solve", "evolve", "mcp"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}
