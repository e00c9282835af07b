package search

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu      sync.Mutex
	queries []string
	results []Result[string]
}

func (r *recorder) search(ctx context.Context, q string) ([]string, error) {
	r.mu.Lock()
	r.queries = append(r.queries, q)
	r.mu.Unlock()
	return []string{q + "!"}, nil
}

func (r *recorder) onResult(res Result[string]) {
	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
}

func (r *recorder) snapshot() ([]string, []Result[string]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.queries...), append([]Result[string](nil), r.results...)
}

func TestDebouncer_OnlyLatestQuery(t *testing.T) {
	rec := &recorder{}
	d := New(rec.search, rec.onResult, WithDelay(20*time.Millisecond))
	defer d.Close()

	for _, q := range []string{"أح", "أحم", "أحمد"} {
		d.Input(q)
	}
	require.Eventually(t, func() bool {
		_, results := rec.snapshot()
		return len(results) == 1
	}, time.Second, 5*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	queries, results := rec.snapshot()
	assert.Equal(t, []string{"أحمد"}, queries)
	assert.Equal(t, []Result[string]{{Query: "أحمد", Items: []string{"أحمد!"}}}, results)
}

func TestDebouncer_ShortQuery(t *testing.T) {
	rec := &recorder{}
	d := New(rec.search, rec.onResult, WithDelay(time.Millisecond), WithMinLength(3))
	defer d.Close()

	d.Input("  أح ")
	queries, results := rec.snapshot()
	assert.Empty(t, queries)
	assert.Equal(t, []Result[string]{{Query: "أح"}}, results)
}

func TestDebouncer_CancelsStaleSearch(t *testing.T) {
	var (
		started  = make(chan string, 2)
		canceled = make(chan string, 1)
		results  = make(chan Result[string], 2)
	)
	search := func(ctx context.Context, q string) ([]string, error) {
		started <- q
		if q == "slow" {
			<-ctx.Done()
			canceled <- q
			return nil, ctx.Err()
		}
		return []string{q}, nil
	}
	d := New(search, func(r Result[string]) { results <- r }, WithDelay(time.Millisecond))
	defer d.Close()

	d.Input("slow")
	require.Equal(t, "slow", <-started)
	d.Input("fast")
	assert.Equal(t, "slow", <-canceled)
	assert.Equal(t, "fast", <-started)

	res := <-results
	assert.Equal(t, "fast", res.Query)
	assert.NoError(t, res.Err)
	select {
	case r := <-results:
		t.Fatalf("unexpected result for %q", r.Query)
	case <-time.After(30 * time.Millisecond):
	}
}

func TestDebouncer_Close(t *testing.T) {
	rec := &recorder{}
	d := New(rec.search, rec.onResult, WithDelay(10*time.Millisecond))
	d.Input("أحمد")
	d.Close()
	d.Input("فاطمة")

	time.Sleep(40 * time.Millisecond)
	queries, results := rec.snapshot()
	assert.Empty(t, queries)
	assert.Empty(t, results)
}
