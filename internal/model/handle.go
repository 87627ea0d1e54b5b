package model

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// State is the lifecycle position of a Handle.
type State int32

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Loader produces a Model. It is called at most once per Handle.
type Loader func(ctx context.Context) (Model, error)

// Handle is the process-wide, load-once model accessor.
//
// The first Get starts the load; concurrent callers wait on the same load.
// Ready and Failed are terminal: a failed load is never retried.
type Handle struct {
	loader Loader

	once  sync.Once
	done  chan struct{}
	state atomic.Int32
	loads atomic.Int64

	model Model
	err   error
}

// NewHandle returns an unloaded Handle backed by loader.
func NewHandle(loader Loader) *Handle {
	return &Handle{
		loader: loader,
		done:   make(chan struct{}),
	}
}

// Get returns the loaded model, loading it on first use. Waiting respects
// ctx; the load itself is detached from the caller's cancellation.
func (h *Handle) Get(ctx context.Context) (Model, error) {
	h.once.Do(func() {
		h.state.Store(int32(StateLoading))
		go h.load(context.WithoutCancel(ctx))
	})

	select {
	case <-h.done:
		return h.model, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Handle) load(ctx context.Context) {
	defer close(h.done)
	h.loads.Add(1)

	m, err := h.loader(ctx)
	if err == nil && m == nil {
		err = errors.New("loader returned no model")
	}
	if err != nil {
		h.err = wrapLoadErr(err)
		h.state.Store(int32(StateFailed))
		return
	}

	h.model = m
	h.state.Store(int32(StateReady))
}

// State reports the current lifecycle state.
func (h *Handle) State() State {
	return State(h.state.Load())
}

// Loads reports how many times the loader has been invoked (0 or 1).
func (h *Handle) Loads() int64 {
	return h.loads.Load()
}

// Close releases the model if it was loaded. It does not wait for an
// in-flight load.
func (h *Handle) Close() error {
	if h.State() != StateReady {
		return nil
	}
	return h.model.Close()
}

func wrapLoadErr(err error) error {
	if errors.Is(err, ErrModelLoad) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrModelLoad, err)
}
