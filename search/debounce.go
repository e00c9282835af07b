// Package search runs debounced lookups as the user types.
package search

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const (
	DefaultDelay     = 300 * time.Millisecond
	DefaultMinLength = 2
)

type (
	// Result is delivered for the latest query only. A query shorter than the minimum length
	// yields an empty Result without any request.
	Result[T any] struct {
		Query string
		Items []T
		Err   error
	}

	Option func(*options)

	options struct {
		delay     time.Duration
		minLength int
	}

	// Debouncer waits for the input to settle before searching, and cancels the search of a
	// query as soon as a newer one arrives.
	Debouncer[T any] struct {
		search   func(ctx context.Context, query string) ([]T, error)
		onResult func(Result[T])
		opts     options

		mu     sync.Mutex
		seq    uint64
		timer  *time.Timer
		cancel context.CancelFunc
		closed bool
	}
)

func WithDelay(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.delay = d
		}
	}
}

func WithMinLength(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.minLength = n
		}
	}
}

func New[T any](search func(ctx context.Context, query string) ([]T, error), onResult func(Result[T]), opts ...Option) *Debouncer[T] {
	o := options{delay: DefaultDelay, minLength: DefaultMinLength}
	for _, opt := range opts {
		opt(&o)
	}
	return &Debouncer[T]{search: search, onResult: onResult, opts: o}
}

// Input handles a new value of the search box.
func (d *Debouncer[T]) Input(query string) {
	query = strings.TrimSpace(query)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.stopLocked()
	d.seq++
	seq := d.seq

	if utf8.RuneCountInString(query) < d.opts.minLength {
		d.mu.Unlock()
		d.onResult(Result[T]{Query: query})
		return
	}
	d.timer = time.AfterFunc(d.opts.delay, func() { d.run(seq, query) })
	d.mu.Unlock()
}

// Close stops the pending timer and cancels the in-flight search. No result is delivered afterwards.
func (d *Debouncer[T]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.stopLocked()
	d.seq++
}

func (d *Debouncer[T]) run(seq uint64, query string) {
	d.mu.Lock()
	if d.closed || seq != d.seq {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.timer = nil
	d.mu.Unlock()

	items, err := d.search(ctx, query)
	cancel()

	d.mu.Lock()
	if d.closed || seq != d.seq {
		d.mu.Unlock()
		return
	}
	d.cancel = nil
	d.mu.Unlock()

	d.onResult(Result[T]{Query: query, Items: items, Err: err})
}

func (d *Debouncer[T]) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}
