package flowchart

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/flowchart/pkg/flowchart/checkpoint"
)

func TestResumeFromCheckpoint(t *testing.T) {
	stores := map[string]func(t *testing.T) checkpoint.Store{
		"memory": func(t *testing.T) checkpoint.Store {
			return checkpoint.NewMemoryStore()
		},
		"sqlite": func(t *testing.T) checkpoint.Store {
			s, err := checkpoint.NewSQLiteStore(filepath.Join(t.TempDir(), "checkpoints.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return s
		},
	}
	serializers := []string{"msgpack", "json", "json+zstd", "msgpack+gzip"}

	for storeName, newStore := range stores {
		for _, serName := range serializers {
			t.Run(storeName+"/"+serName, func(t *testing.T) {
				ctx := context.Background()
				store := newStore(t)
				ser, err := checkpoint.ParseSerializer(serName)
				require.NoError(t, err)
				g := mustBuild(t, countdown(2).Breakpoint("o"))

				first := NewExecutor(g, quiet,
					WithRunID("run-1"),
					WithCheckpointing(store),
					WithCheckpointSerializer(ser))
				require.NoError(t, first.Run(ctx))
				require.Equal(t, StatusPaused, first.Status())

				cp, err := store.Latest(ctx, "run-1")
				require.NoError(t, err)
				assert.Equal(t, "o", cp.NodeID)
				assert.Equal(t, first.Steps(), cp.Steps)
				assert.Equal(t, ser.Name(), cp.Encoding)

				// Each hop continues in a fresh executor, as a new process would.
				var hops int
				exec := first
				for exec.Status() == StatusPaused {
					exec, err = ResumeFromCheckpoint(ctx, g, store, "run-1", quiet)
					require.NoError(t, err)
					assert.Equal(t, StatusPaused, exec.Status())
					assert.Equal(t, "o", exec.Current())
					require.NoError(t, exec.Resume(ctx))
					hops++
				}

				assert.Equal(t, StatusDone, exec.Status())
				assert.Equal(t, 3, hops)
				assert.Equal(t, []any{int64(2), int64(1), int64(0)}, exec.Context().Output())
				assert.Equal(t, int64(-1), exec.Context().Get("i"))
				v, _ := exec.Context().Variable("i")
				assert.Equal(t, VarInt, v.DeclaredType)

				infos, err := store.List(ctx, "run-1")
				require.NoError(t, err)
				assert.Len(t, infos, 3)
			})
		}
	}
}

func TestResumeFromCheckpoint_MatchesUninterruptedRun(t *testing.T) {
	ctx := context.Background()
	g := mustBuild(t, addFive().Breakpoint("a"))
	store := checkpoint.NewMemoryStore()

	want, err := RunAll(ctx, g, quiet)
	require.NoError(t, err)

	exec := NewExecutor(g, quiet, WithRunID("r"), WithCheckpointing(store))
	require.NoError(t, exec.Run(ctx))
	resumed, err := ResumeFromCheckpoint(ctx, g, store, "r", quiet)
	require.NoError(t, err)
	require.NoError(t, resumed.Resume(ctx))

	assert.Equal(t, want.Snapshot(), resumed.Context().Snapshot())
	assert.Equal(t, 5, resumed.Steps())
	assert.Equal(t, "r", resumed.RunID())
}

func TestResumeFromCheckpoint_Errors(t *testing.T) {
	ctx := context.Background()
	g := mustBuild(t, addFive().Breakpoint("o"))

	paused := func(t *testing.T) checkpoint.Store {
		store := checkpoint.NewMemoryStore()
		exec := NewExecutor(g, quiet, WithRunID("r"), WithCheckpointing(store))
		require.NoError(t, exec.Run(ctx))
		return store
	}

	t.Run("no checkpoint", func(t *testing.T) {
		_, err := ResumeFromCheckpoint(ctx, g, checkpoint.NewMemoryStore(), "r", quiet)
		assert.ErrorIs(t, err, ErrNoCheckpoint)
	})

	t.Run("empty run id", func(t *testing.T) {
		_, err := ResumeFromCheckpoint(ctx, g, checkpoint.NewMemoryStore(), "", quiet)
		assert.ErrorIs(t, err, ErrRunIDRequired)
	})

	t.Run("node missing from graph", func(t *testing.T) {
		other := mustBuild(t, countdown(1))
		store := checkpoint.NewMemoryStore()
		require.NoError(t, store.Save(ctx, checkpoint.New("r", "gone", 3, nil, "msgpack")))

		_, err := ResumeFromCheckpoint(ctx, other, store, "r", quiet)
		assert.ErrorIs(t, err, ErrInvalidResumeNode)
	})

	t.Run("version mismatch", func(t *testing.T) {
		store := paused(t)
		cp, err := store.Latest(ctx, "r")
		require.NoError(t, err)
		cp.Version = checkpoint.Version + 1
		require.NoError(t, store.Save(ctx, cp))

		_, err = ResumeFromCheckpoint(ctx, g, store, "r", quiet)
		assert.ErrorIs(t, err, ErrCheckpointVersionMismatch)
	})

	t.Run("corrupt state", func(t *testing.T) {
		store := checkpoint.NewMemoryStore()
		require.NoError(t, store.Save(ctx, checkpoint.New("r", "o", 3, []byte("not msgpack"), "msgpack+zstd")))

		_, err := ResumeFromCheckpoint(ctx, g, store, "r", quiet)
		var cpErr *CheckpointError
		require.ErrorAs(t, err, &cpErr)
		assert.Equal(t, "restore", cpErr.Op)
		assert.Equal(t, "o", cpErr.NodeID)
	})

	t.Run("unknown encoding", func(t *testing.T) {
		store := checkpoint.NewMemoryStore()
		require.NoError(t, store.Save(ctx, checkpoint.New("r", "o", 3, nil, "xml")))

		_, err := ResumeFromCheckpoint(ctx, g, store, "r", quiet)
		assert.ErrorIs(t, err, checkpoint.ErrUnknownEncoding)
	})

	t.Run("closed store", func(t *testing.T) {
		store := paused(t)
		require.NoError(t, store.Close())

		_, err := ResumeFromCheckpoint(ctx, g, store, "r", quiet)
		var cpErr *CheckpointError
		require.ErrorAs(t, err, &cpErr)
		assert.Equal(t, "load", cpErr.Op)
		assert.ErrorIs(t, err, checkpoint.ErrStoreClosed)
	})
}

func TestPause_CheckpointSaveFailureFailsRun(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	require.NoError(t, store.Close())
	g := mustBuild(t, addFive().Breakpoint("o"))

	exec := NewExecutor(g, quiet, WithCheckpointing(store))
	err := exec.Run(context.Background())

	var cpErr *CheckpointError
	require.ErrorAs(t, err, &cpErr)
	assert.Equal(t, "save", cpErr.Op)
	assert.Equal(t, "o", cpErr.NodeID)
	assert.Equal(t, StatusFailed, exec.Status())
	assert.Equal(t, err, exec.Err())
}

func TestPause_StepSavesCheckpoint(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	g := mustBuild(t, addFive())

	exec := NewExecutor(g, quiet, WithRunID("stepper"), WithCheckpointing(store))
	require.NoError(t, exec.Step(context.Background()))
	require.NoError(t, exec.Step(context.Background()))

	infos, err := store.List(context.Background(), "stepper")
	require.NoError(t, err)
	require.Len(t, infos, 2)
	assert.Equal(t, "d", infos[0].NodeID)
	assert.Equal(t, "a", infos[1].NodeID)
	assert.Equal(t, 2, infos[1].Steps)
}
