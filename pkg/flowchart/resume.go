package flowchart

import (
	"context"
	"errors"
	"fmt"

	"github.com/randalmurphal/flowchart/pkg/flowchart/checkpoint"
)

// ResumeFromCheckpoint rebuilds a PAUSED executor from the latest checkpoint
// of runID. Calling Resume on it continues the run from the node it paused
// on, with the restored variables, output and step count.
//
// The graph must be the one the run was started with (or one that still
// contains the paused node). Options apply as for NewExecutor; the run id is
// taken from the checkpoint and further pauses are saved to the same store.
//
// Example:
//
//	exec, err := flowchart.ResumeFromCheckpoint(ctx, g, store, "run-123")
//	if err != nil {
//	    return err
//	}
//	err = exec.Resume(ctx)
func ResumeFromCheckpoint(ctx context.Context, g *Graph, store checkpoint.Store, runID string, opts ...RunOption) (*Executor, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if runID == "" {
		return nil, ErrRunIDRequired
	}

	cfg := defaultRunConfig()
	cfg.checkpointStore = store
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.runID = runID

	cp, err := store.Latest(ctx, runID)
	if errors.Is(err, checkpoint.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNoCheckpoint, runID)
	}
	if err != nil {
		return nil, &CheckpointError{Op: "load", Err: err}
	}

	if cp.Version != checkpoint.Version {
		return nil, fmt.Errorf("%w: got %d, expected %d",
			ErrCheckpointVersionMismatch, cp.Version, checkpoint.Version)
	}
	if !g.HasNode(cp.NodeID) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResumeNode, cp.NodeID)
	}

	var snap Snapshot
	if err := cp.Decode(&snap); err != nil {
		return nil, &CheckpointError{NodeID: cp.NodeID, Op: "restore", Err: err}
	}

	exec := newExecutor(g, cfg, Restore(snap), cp.NodeID, cp.Steps)
	exec.status = StatusPaused
	return exec, nil
}
