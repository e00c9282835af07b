package store

import (
	"context"
	"slices"
	"sync"

	"github.com/trezcool/masomo-admin/core"
)

const (
	OpLoad     = "load"
	OpAssign   = "assign"
	OpUnassign = "unassign"
)

type (
	// Assignment is a pivot record linking an owner to an assigned resource.
	Assignment interface {
		Entity
		AssignedID() int
	}

	// AssignmentAPI is implemented by *apiclient.Assignments.
	AssignmentAPI[A Assignment, R Entity, I any] interface {
		Assigned(ctx context.Context, ownerID int) ([]A, error)
		Available(ctx context.Context, ownerID int) ([]R, error)
		Assign(ctx context.Context, ownerID int, in I) (A, error)
		UpdateAssignment(ctx context.Context, ownerID, assignmentID int, in I) (A, error)
		Unassign(ctx context.Context, ownerID, assignmentID int) error
	}

	AssignmentState[A, R any] struct {
		OwnerID   int
		Items     []A
		Available []R
		Loading   bool
		Error     string
	}

	// AssignmentStore caches the assignments of one owner along with the resources still
	// available for assignment. Assigning removes the resource from Available; unassigning
	// refetches Available from the backend.
	AssignmentStore[A Assignment, R Entity, I any] struct {
		name string
		api  AssignmentAPI[A, R, I]
		deps Deps

		mu    sync.RWMutex
		state AssignmentState[A, R]
		load  fence
		avail fence

		subs subscribers[AssignmentState[A, R]]
	}
)

func NewAssignmentStore[A Assignment, R Entity, I any](name string, api AssignmentAPI[A, R, I], deps Deps) *AssignmentStore[A, R, I] {
	return &AssignmentStore[A, R, I]{name: name, api: api, deps: deps.withDefaults()}
}

func (s *AssignmentStore[A, R, I]) State() AssignmentState[A, R] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Items = slices.Clone(s.state.Items)
	st.Available = slices.Clone(s.state.Available)
	return st
}

func (s *AssignmentStore[A, R, I]) Subscribe(fn func(AssignmentState[A, R])) func() {
	return s.subs.add(fn)
}

// Load fetches the assignments and the available resources of ownerID.
func (s *AssignmentStore[A, R, I]) Load(ctx context.Context, ownerID int) error {
	s.mu.Lock()
	ctx, seq := s.load.begin(ctx)
	s.avail.stop()
	if s.state.OwnerID != ownerID {
		s.state = AssignmentState[A, R]{OwnerID: ownerID}
	}
	s.state.Loading = true
	s.state.Error = ""
	s.mu.Unlock()
	s.notify()

	items, err := s.api.Assigned(ctx, ownerID)
	var available []R
	if err == nil {
		available, err = s.api.Available(ctx, ownerID)
	}

	s.mu.Lock()
	if !s.load.done(seq) {
		s.mu.Unlock()
		s.deps.Metrics.superseded(s.name)
		return ErrSuperseded
	}
	s.state.Loading = false
	var apiErr *core.APIError
	if err != nil {
		apiErr = core.AsAPIError(err)
		s.state.Items, s.state.Available = []A{}, []R{}
		s.state.Error = s.deps.Messages.Describe(apiErr)
	} else {
		s.state.Items = dedupe(items)
		s.state.Available = available
	}
	s.mu.Unlock()

	s.deps.Metrics.observe(s.name, OpLoad, err)
	s.notify()
	if apiErr != nil {
		return apiErr
	}
	return nil
}

// Assign creates an assignment for ownerID. The cache is only updated when ownerID is the loaded owner.
func (s *AssignmentStore[A, R, I]) Assign(ctx context.Context, ownerID int, in I) (A, error) {
	item, err := s.api.Assign(ctx, ownerID, in)
	s.deps.Metrics.observe(s.name, OpAssign, err)
	if err != nil {
		return item, s.fail(err)
	}

	s.mu.Lock()
	if s.state.OwnerID == ownerID {
		if i := indexOf(s.state.Items, item.EntityID()); i >= 0 {
			s.state.Items[i] = item
		} else {
			s.state.Items = append(s.state.Items, item)
		}
		s.state.Available = slices.DeleteFunc(s.state.Available, func(r R) bool {
			return r.EntityID() == item.AssignedID()
		})
	}
	s.mu.Unlock()
	s.notify()
	return item, nil
}

func (s *AssignmentStore[A, R, I]) Update(ctx context.Context, ownerID, assignmentID int, in I) (A, error) {
	item, err := s.api.UpdateAssignment(ctx, ownerID, assignmentID, in)
	s.deps.Metrics.observe(s.name, OpUpdate, err)
	if err != nil {
		return item, s.fail(err)
	}

	s.mu.Lock()
	if s.state.OwnerID == ownerID {
		if i := indexOf(s.state.Items, item.EntityID()); i >= 0 {
			s.state.Items[i] = item
		}
	}
	s.mu.Unlock()
	s.notify()
	return item, nil
}

// Unassign deletes an assignment, then refetches the available resources of the owner.
// A failed refetch is recorded in the state but does not fail the unassignment.
func (s *AssignmentStore[A, R, I]) Unassign(ctx context.Context, ownerID, assignmentID int) error {
	err := s.api.Unassign(ctx, ownerID, assignmentID)
	s.deps.Metrics.observe(s.name, OpUnassign, err)
	if err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	loaded := s.state.OwnerID == ownerID
	if loaded {
		s.state.Items = slices.DeleteFunc(s.state.Items, func(a A) bool { return a.EntityID() == assignmentID })
	}
	s.mu.Unlock()
	s.notify()

	if loaded {
		s.refreshAvailable(ctx, ownerID)
	}
	return nil
}

func (s *AssignmentStore[A, R, I]) refreshAvailable(ctx context.Context, ownerID int) {
	s.mu.Lock()
	ctx, seq := s.avail.begin(ctx)
	s.mu.Unlock()

	available, err := s.api.Available(ctx, ownerID)

	s.mu.Lock()
	if !s.avail.done(seq) || s.state.OwnerID != ownerID {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.state.Error = s.deps.Messages.Describe(err)
		s.deps.Logger.Warn("refreshing available resources", err, map[string]interface{}{"store": s.name, "owner_id": ownerID})
	} else {
		s.state.Available = available
	}
	s.mu.Unlock()
	s.notify()
}

func (s *AssignmentStore[A, R, I]) Reset() {
	s.mu.Lock()
	s.load.stop()
	s.avail.stop()
	s.state = AssignmentState[A, R]{}
	s.mu.Unlock()
	s.notify()
}

func (s *AssignmentStore[A, R, I]) fail(err error) *core.APIError {
	apiErr := core.AsAPIError(err)
	s.mu.Lock()
	s.state.Error = s.deps.Messages.Describe(apiErr)
	s.mu.Unlock()
	s.notify()
	return apiErr
}

func (s *AssignmentStore[A, R, I]) notify() {
	s.subs.notify(s.State())
}

func indexOf[T Entity](items []T, id int) int {
	return slices.IndexFunc(items, func(item T) bool { return item.EntityID() == id })
}
