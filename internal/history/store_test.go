// SPDX-License-Identifier: MIT

package history

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "runs.db"), DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_RecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Record(ctx, Run{
			RunID:        fmt.Sprintf("run-%d", i),
			StartedAt:    base.Add(time.Duration(i) * time.Minute),
			Duration:     time.Duration(i+1) * time.Millisecond,
			Status:       "clean",
			Declarations: 10 + i,
		}))
	}
	require.NoError(t, s.Record(ctx, Run{
		RunID:        "run-3",
		StartedAt:    base.Add(10 * time.Minute),
		Duration:     2 * time.Millisecond,
		Status:       "conflict",
		Declarations: 4,
		Conflicts:    1,
		Report:       "Duplicate port 8080 found in:\n  - a.nix\n  - b.nix\n",
	}))

	runs, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, "run-3", runs[0].RunID)
	assert.Equal(t, "conflict", runs[0].Status)
	assert.Equal(t, 1, runs[0].Conflicts)
	assert.Equal(t, base.Add(10*time.Minute), runs[0].StartedAt)
	assert.Equal(t, 2*time.Millisecond, runs[0].Duration)
	assert.Contains(t, runs[0].Report, "Duplicate port 8080")
	assert.Equal(t, "run-2", runs[1].RunID)

	all, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestStore_DuplicateRunID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	run := Run{RunID: "same", StartedAt: time.Now(), Status: "clean"}
	require.NoError(t, s.Record(ctx, run))
	assert.Error(t, s.Record(ctx, run))
}

func TestStore_ReopenKeepsRuns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	ctx := context.Background()

	s, err := Open(ctx, path, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, Run{RunID: "persisted", StartedAt: time.Now(), Status: "error", Error: "boom"}))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path, DefaultConfig())
	require.NoError(t, err)
	defer s.Close()

	runs, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "boom", runs[0].Error)
}

func TestStore_Closed(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Ping(context.Background()), ErrClosed)

	err := s.Record(context.Background(), Run{RunID: "x"})
	assert.True(t, errors.Is(err, ErrClosed))
	_, err = s.Recent(context.Background(), 1)
	assert.True(t, errors.Is(err, ErrClosed))
}
