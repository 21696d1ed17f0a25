package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/copyleftdev/icemaze/internal/errors"
	"github.com/copyleftdev/icemaze/internal/maze"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGet(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	run := Run{
		ID:          "01HRUN",
		Status:      "completed",
		Layout:      "-   +\n ### \n     ",
		WallCount:   2,
		Walls:       []maze.Point{{X: 1, Y: 0}, {X: 4, Y: 1}},
		BestFitness: 9,
		Path:        maze.Route{{X: 0, Y: 0}, {X: 0, Y: 1}},
		Generations: 30,
		Evaluations: 412,
	}
	require.NoError(t, s.Save(ctx, run))

	got, err := s.Get(ctx, "01HRUN")
	require.NoError(t, err)
	assert.Equal(t, run.Walls, got.Walls)
	assert.Equal(t, run.Path, got.Path)
	assert.Equal(t, 9, got.BestFitness)
	assert.Equal(t, "completed", got.Status)
	assert.Equal(t, run.Layout, got.Layout)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestSaveUpserts(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.Save(ctx, Run{ID: "a", Status: "running", Layout: "-+", CreatedAt: created}))
	require.NoError(t, s.Save(ctx, Run{ID: "a", Status: "failed", Layout: "-+", Error: "boom"}))

	got, err := s.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "failed", got.Status)
	assert.Equal(t, "boom", got.Error)
	assert.Equal(t, created, got.CreatedAt)
	assert.Empty(t, got.Walls)

	runs, err := s.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestGetMissing(t *testing.T) {
	s := openTest(t)

	_, err := s.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListNewestFirst(t *testing.T) {
	s := openTest(t)
	ctx := context.Background()

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second", "third"} {
		require.NoError(t, s.Save(ctx, Run{
			ID:        id,
			Status:    "completed",
			Layout:    "-+",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := s.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "third", runs[0].ID)
	assert.Equal(t, "second", runs[1].ID)

	all, err := s.List(ctx, -1)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestListEmpty(t *testing.T) {
	runs, err := openTest(t).List(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestOpenFile(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "runs.db")

	s, err := Open(dsn)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), Run{ID: "persisted", Status: "completed", Layout: "-+"}))
	require.NoError(t, s.Close())

	s, err = Open(dsn)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(context.Background(), "persisted")
	require.NoError(t, err)
	assert.Equal(t, "completed", got.Status)
}
