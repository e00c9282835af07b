package store

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
)

// ErrSuperseded is returned by a fetch whose response was discarded because a newer fetch
// of the same slot started before it completed.
var ErrSuperseded = &core.APIError{Kind: core.KindCanceled, Err: errors.New("store: request superseded")}

// fence orders the requests of one state slot (eg. the list of a store).
// Starting a request cancels the previous one; only the latest request may write the slot.
// Callers hold the lock of the state the fence guards.
type fence struct {
	seq    uint64
	cancel context.CancelFunc
}

func (f *fence) begin(ctx context.Context) (context.Context, uint64) {
	if f.cancel != nil {
		f.cancel()
	}
	ctx, f.cancel = context.WithCancel(ctx)
	f.seq++
	return ctx, f.seq
}

// done reports whether seq is still the latest request, releasing its context if so.
func (f *fence) done(seq uint64) bool {
	if seq != f.seq {
		return false
	}
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	return true
}

func (f *fence) stop() {
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.seq++
}

type subscribers[S any] struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(S)
}

func (s *subscribers[S]) add(fn func(S)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fns == nil {
		s.fns = make(map[int]func(S))
	}
	id := s.next
	s.next++
	s.fns[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.fns, id)
	}
}

func (s *subscribers[S]) notify(state S) {
	s.mu.Lock()
	fns := make([]func(S), 0, len(s.fns))
	for _, fn := range s.fns {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(state)
	}
}
