package checkpoint

import (
	"fmt"
	"time"
)

// Version is the current checkpoint format version.
// Increment when making breaking changes to checkpoint structure.
const Version = 1

// Checkpoint is a paused run persisted at a breakpoint.
// It holds everything needed to rebuild the executor: the node the run is
// paused on, the step count so far, and the encoded execution context.
type Checkpoint struct {
	// Metadata
	Version   int       `json:"version" msgpack:"version"`
	RunID     string    `json:"run_id" msgpack:"run_id"`
	Sequence  int       `json:"sequence" msgpack:"sequence"`
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`

	// Cursor
	NodeID string `json:"node_id" msgpack:"node_id"`
	Steps  int    `json:"steps" msgpack:"steps"`

	// State is the execution context snapshot, encoded by the serializer
	// named in Encoding.
	State    []byte `json:"state" msgpack:"state"`
	Encoding string `json:"encoding" msgpack:"encoding"`
}

// New creates a checkpoint for a run paused before nodeID.
// Sequence is assigned by the Store on Save.
func New(runID, nodeID string, steps int, state []byte, encoding string) *Checkpoint {
	return &Checkpoint{
		Version:   Version,
		RunID:     runID,
		NodeID:    nodeID,
		Steps:     steps,
		Timestamp: time.Now().UTC(),
		State:     state,
		Encoding:  encoding,
	}
}

// Clone returns a deep copy of the checkpoint.
func (c *Checkpoint) Clone() *Checkpoint {
	cp := *c
	cp.State = append([]byte(nil), c.State...)
	return &cp
}

// Decode deserializes State into v using the serializer recorded in Encoding.
func (c *Checkpoint) Decode(v any) error {
	if c.Version != Version {
		return fmt.Errorf("%w: got %d, expected %d", ErrVersionMismatch, c.Version, Version)
	}
	s, err := ParseSerializer(c.Encoding)
	if err != nil {
		return err
	}
	return s.Deserialize(c.State, v)
}
