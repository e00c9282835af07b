// Package store keeps a client-side cache of the backend resources and reconciles it with the
// results of the API calls it makes. Every store is safe for concurrent use; subscribers are
// notified with a snapshot of the state after every change.
package store

import (
	"context"
	"slices"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	apiclient "github.com/trezcool/masomo-admin/client"
	"github.com/trezcool/masomo-admin/core"
	logsvc "github.com/trezcool/masomo-admin/services/logger"
)

// Store operations, used as metric labels.
const (
	OpFetchAll = "fetch_all"
	OpGet      = "get"
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
)

type (
	// Entity is a backend record identified by a server-assigned ID.
	Entity interface {
		EntityID() int
	}

	// CRUD is the API a Store synchronizes with. *apiclient.Resource implements it.
	CRUD[T Entity, I, F any] interface {
		List(ctx context.Context, filter F) (*apiclient.Page[T], error)
		Get(ctx context.Context, id int) (T, error)
		Create(ctx context.Context, in I) (T, error)
		Update(ctx context.Context, id int, in I) (T, error)
		Delete(ctx context.Context, id int) error
	}

	State[T any] struct {
		Items      []T
		Current    *T
		Loading    bool
		Error      string
		Pagination *apiclient.Pagination
	}

	// Deps are the collaborators shared by every store.
	Deps struct {
		Messages *core.Messages
		Metrics  *Metrics
		Logger   core.Logger
	}

	// Store is the cache of one resource: a list (Items) and a detail (Current).
	// Items never holds two records with the same ID, and records only enter or change in it
	// with the server's response to a successful call.
	Store[T Entity, I, F any] struct {
		name string
		api  CRUD[T, I, F]
		deps Deps

		sortKey  func(T) string
		collator *collate.Collator

		mu            sync.RWMutex
		state         State[T]
		list, detail  fence
		listLoading   bool
		detailLoading bool

		subs subscribers[State[T]]
	}
)

func (d Deps) withDefaults() Deps {
	if d.Messages == nil {
		d.Messages = core.DefaultMessages()
	}
	if d.Logger == nil {
		d.Logger = logsvc.NewNopLogger()
	}
	return d
}

func New[T Entity, I, F any](name string, api CRUD[T, I, F], deps Deps) *Store[T, I, F] {
	return &Store[T, I, F]{
		name: name,
		api:  api,
		deps: deps.withDefaults(),
	}
}

// SortBy makes created records get inserted in the Arabic collation order of key.
func (s *Store[T, I, F]) SortBy(key func(T) string) *Store[T, I, F] {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sortKey = key
	s.collator = collate.New(language.Arabic)
	return s
}

func (s *Store[T, I, F]) Name() string { return s.name }

// State returns a snapshot of the store's state.
func (s *Store[T, I, F]) State() State[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

// Items returns a copy of the cached list.
func (s *Store[T, I, F]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Items)
}

// Find returns the cached record with id.
func (s *Store[T, I, F]) Find(id int) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.state.Items[i], true
	}
	var zero T
	return zero, false
}

// Subscribe registers fn to be called with a snapshot after every state change.
// The returned func unregisters it.
func (s *Store[T, I, F]) Subscribe(fn func(State[T])) func() {
	return s.subs.add(fn)
}

// FetchAll replaces Items with the page matching filter.
// On failure Items is emptied so that a list never shows records of another filter.
// A fetch superseded by a newer one returns ErrSuperseded and leaves the state alone.
func (s *Store[T, I, F]) FetchAll(ctx context.Context, filter F) error {
	s.mu.Lock()
	ctx, seq := s.list.begin(ctx)
	s.listLoading = true
	s.state.Error = ""
	s.syncLoading()
	s.mu.Unlock()
	s.notify()

	page, err := s.api.List(ctx, filter)

	s.mu.Lock()
	if !s.list.done(seq) {
		s.mu.Unlock()
		s.deps.Metrics.superseded(s.name)
		return ErrSuperseded
	}
	s.listLoading = false
	s.syncLoading()
	var apiErr *core.APIError
	if err != nil {
		apiErr = core.AsAPIError(err)
		s.state.Items = []T{}
		s.state.Pagination = nil
		s.state.Error = s.deps.Messages.Describe(apiErr)
	} else {
		s.state.Items = dedupe(page.Data)
		s.state.Pagination = page.Paging()
	}
	s.mu.Unlock()

	s.deps.Metrics.observe(s.name, OpFetchAll, err)
	s.notify()
	if apiErr != nil {
		return apiErr
	}
	return nil
}

// GetByID loads one record into Current. On failure Current is cleared.
func (s *Store[T, I, F]) GetByID(ctx context.Context, id int) (T, error) {
	s.mu.Lock()
	ctx, seq := s.detail.begin(ctx)
	s.detailLoading = true
	s.state.Error = ""
	s.syncLoading()
	s.mu.Unlock()
	s.notify()

	item, err := s.api.Get(ctx, id)

	s.mu.Lock()
	if !s.detail.done(seq) {
		s.mu.Unlock()
		s.deps.Metrics.superseded(s.name)
		var zero T
		return zero, ErrSuperseded
	}
	s.detailLoading = false
	s.syncLoading()
	var apiErr *core.APIError
	if err != nil {
		apiErr = core.AsAPIError(err)
		s.state.Current = nil
		s.state.Error = s.deps.Messages.Describe(apiErr)
	} else {
		s.state.Current = &item
	}
	s.mu.Unlock()

	s.deps.Metrics.observe(s.name, OpGet, err)
	s.notify()
	if apiErr != nil {
		return item, apiErr
	}
	return item, nil
}

// Create sends in to the API and inserts the server's record into Items.
func (s *Store[T, I, F]) Create(ctx context.Context, in I) (T, error) {
	item, err := s.api.Create(ctx, in)
	s.deps.Metrics.observe(s.name, OpCreate, err)
	if err != nil {
		return item, s.fail(err)
	}

	s.mu.Lock()
	s.upsert(item)
	s.mu.Unlock()
	s.notify()
	return item, nil
}

// Update sends in to the API and replaces the cached record (and Current) with the server's one.
func (s *Store[T, I, F]) Update(ctx context.Context, id int, in I) (T, error) {
	item, err := s.api.Update(ctx, id, in)
	s.deps.Metrics.observe(s.name, OpUpdate, err)
	if err != nil {
		return item, s.fail(err)
	}

	s.mu.Lock()
	s.replace(item)
	s.mu.Unlock()
	s.notify()
	return item, nil
}

// Delete removes the record from Items once the API confirmed the deletion.
// On failure Items is left untouched.
func (s *Store[T, I, F]) Delete(ctx context.Context, id int) error {
	err := s.api.Delete(ctx, id)
	s.deps.Metrics.observe(s.name, OpDelete, err)
	if err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	s.remove(id)
	s.mu.Unlock()
	s.notify()
	return nil
}

func (s *Store[T, I, F]) ClearError() {
	s.mu.Lock()
	s.state.Error = ""
	s.mu.Unlock()
	s.notify()
}

// Reset cancels in-flight fetches and empties the store.
func (s *Store[T, I, F]) Reset() {
	s.mu.Lock()
	s.list.stop()
	s.detail.stop()
	s.listLoading, s.detailLoading = false, false
	s.state = State[T]{}
	s.mu.Unlock()
	s.notify()
}

// fail records the localized message of err in the state and returns err as an *APIError.
func (s *Store[T, I, F]) fail(err error) *core.APIError {
	apiErr := core.AsAPIError(err)
	s.mu.Lock()
	s.state.Error = s.deps.Messages.Describe(apiErr)
	s.mu.Unlock()
	s.notify()
	return apiErr
}

func (s *Store[T, I, F]) notify() {
	s.subs.notify(s.State())
}

func (s *Store[T, I, F]) snapshot() State[T] {
	st := s.state
	st.Items = slices.Clone(s.state.Items)
	if s.state.Current != nil {
		cur := *s.state.Current
		st.Current = &cur
	}
	if s.state.Pagination != nil {
		p := *s.state.Pagination
		st.Pagination = &p
	}
	return st
}

func (s *Store[T, I, F]) syncLoading() {
	s.state.Loading = s.listLoading || s.detailLoading
}

func (s *Store[T, I, F]) indexOf(id int) int {
	return slices.IndexFunc(s.state.Items, func(item T) bool { return item.EntityID() == id })
}

// upsert inserts item, or replaces the record with the same ID, then sorts Items when a sort key is set.
func (s *Store[T, I, F]) upsert(item T) {
	if i := s.indexOf(item.EntityID()); i >= 0 {
		s.state.Items[i] = item
	} else {
		s.state.Items = append(s.state.Items, item)
	}
	s.sort()
}

func (s *Store[T, I, F]) replace(item T) {
	if i := s.indexOf(item.EntityID()); i >= 0 {
		s.state.Items[i] = item
	}
	if s.state.Current != nil && (*s.state.Current).EntityID() == item.EntityID() {
		s.state.Current = &item
	}
}

func (s *Store[T, I, F]) remove(id int) {
	s.state.Items = slices.DeleteFunc(s.state.Items, func(item T) bool { return item.EntityID() == id })
	if s.state.Current != nil && (*s.state.Current).EntityID() == id {
		s.state.Current = nil
	}
}

func (s *Store[T, I, F]) sort() {
	if s.sortKey == nil {
		return
	}
	slices.SortStableFunc(s.state.Items, func(a, b T) int {
		return s.collator.CompareString(s.sortKey(a), s.sortKey(b))
	})
}

// dedupe keeps the last record of every ID, in order of first appearance.
func dedupe[T Entity](items []T) []T {
	out := make([]T, 0, len(items))
	pos := make(map[int]int, len(items))
	for _, item := range items {
		if i, ok := pos[item.EntityID()]; ok {
			out[i] = item
			continue
		}
		pos[item.EntityID()] = len(out)
		out = append(out, item)
	}
	return out
}
