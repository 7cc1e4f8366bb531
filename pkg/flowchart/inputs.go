package flowchart

import (
	"context"
	"fmt"
	"sync"
)

// InputSource supplies values to INPUT nodes. Implementations return an
// error wrapping ErrInputUnavailable when they have no value.
type InputSource interface {
	Input(ctx context.Context, variable, prompt string) (any, error)
}

// InputFunc adapts a function to InputSource.
type InputFunc func(ctx context.Context, variable, prompt string) (any, error)

// Input implements InputSource.
func (f InputFunc) Input(ctx context.Context, variable, prompt string) (any, error) {
	return f(ctx, variable, prompt)
}

// MapInputs answers every INPUT of a variable with the same value.
type MapInputs map[string]any

// Input implements InputSource.
func (m MapInputs) Input(_ context.Context, variable, _ string) (any, error) {
	v, ok := m[variable]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInputUnavailable, variable)
	}
	return v, nil
}

// QueueInputs answers successive INPUTs of a variable with successive
// values, for programs that read inside a loop. It is safe for concurrent use.
type QueueInputs struct {
	mu     sync.Mutex
	queues map[string][]any
}

// NewQueueInputs creates a QueueInputs from per-variable value lists.
func NewQueueInputs(values map[string][]any) *QueueInputs {
	q := &QueueInputs{queues: make(map[string][]any, len(values))}
	for k, vs := range values {
		q.queues[k] = append([]any(nil), vs...)
	}
	return q
}

// Input implements InputSource.
func (q *QueueInputs) Input(_ context.Context, variable, _ string) (any, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	vs := q.queues[variable]
	if len(vs) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrInputUnavailable, variable)
	}
	q.queues[variable] = vs[1:]
	return vs[0], nil
}
