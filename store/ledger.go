package store

import (
	"context"
	"slices"
	"sync"

	apiclient "github.com/trezcool/masomo-admin/client"
	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/school"
)

const (
	OpFetchSummary   = "fetch_summary"
	OpFetchDeletions = "fetch_deletions"
)

type (
	// LedgerAPI is implemented by *apiclient.LedgerAPI.
	LedgerAPI interface {
		List(ctx context.Context, filter school.LedgerFilter) (*apiclient.Page[school.LedgerEntry], error)
		Create(ctx context.Context, in school.LedgerEntryInput) (school.LedgerEntry, error)
		Delete(ctx context.Context, id int, reason string) error
		ByPaymentMethod(ctx context.Context, filter school.LedgerFilter) ([]school.PaymentMethodSummary, error)
		Deletions(ctx context.Context, filter school.LedgerFilter) (*apiclient.Page[school.LedgerDeletion], error)
	}

	LedgerState struct {
		EnrollmentID        int
		Entries             []school.LedgerEntry
		Pagination          *apiclient.Pagination
		Summary             []school.PaymentMethodSummary
		Deletions           []school.LedgerDeletion
		DeletionsPagination *apiclient.Pagination
		Loading             bool
		Error               string
	}

	// LedgerStore caches the ledger of one enrollment. Entries are append-only:
	// they are created or deleted (with a reason), never updated.
	LedgerStore struct {
		api  LedgerAPI
		deps Deps

		mu        sync.RWMutex
		state     LedgerState
		entries   fence
		deletions fence

		subs subscribers[LedgerState]
	}
)

const ledgerStoreName = "student_ledgers"

func NewLedgerStore(api LedgerAPI, deps Deps) *LedgerStore {
	return &LedgerStore{api: api, deps: deps.withDefaults()}
}

func (s *LedgerStore) State() LedgerState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Entries = slices.Clone(s.state.Entries)
	st.Summary = slices.Clone(s.state.Summary)
	st.Deletions = slices.Clone(s.state.Deletions)
	return st
}

func (s *LedgerStore) Subscribe(fn func(LedgerState)) func() {
	return s.subs.add(fn)
}

// FetchByEnrollment loads the ledger entries of enrollmentID, filtered by filter.
func (s *LedgerStore) FetchByEnrollment(ctx context.Context, enrollmentID int, filter school.LedgerFilter) error {
	filter.EnrollmentID = enrollmentID

	s.mu.Lock()
	ctx, seq := s.entries.begin(ctx)
	if s.state.EnrollmentID != enrollmentID {
		s.state.Entries = nil
		s.state.Summary = nil
	}
	s.state.EnrollmentID = enrollmentID
	s.state.Loading = true
	s.state.Error = ""
	s.mu.Unlock()
	s.notify()

	page, err := s.api.List(ctx, filter)

	s.mu.Lock()
	if !s.entries.done(seq) {
		s.mu.Unlock()
		s.deps.Metrics.superseded(ledgerStoreName)
		return ErrSuperseded
	}
	s.state.Loading = false
	var apiErr *core.APIError
	if err != nil {
		apiErr = core.AsAPIError(err)
		s.state.Entries = []school.LedgerEntry{}
		s.state.Pagination = nil
		s.state.Error = s.deps.Messages.Describe(apiErr)
	} else {
		s.state.Entries = dedupe(page.Data)
		s.state.Pagination = page.Paging()
	}
	s.mu.Unlock()

	s.deps.Metrics.observe(ledgerStoreName, OpFetchAll, err)
	s.notify()
	if apiErr != nil {
		return apiErr
	}
	return nil
}

// Create appends the server's entry when it belongs to the loaded enrollment.
func (s *LedgerStore) Create(ctx context.Context, in school.LedgerEntryInput) (school.LedgerEntry, error) {
	entry, err := s.api.Create(ctx, in)
	s.deps.Metrics.observe(ledgerStoreName, OpCreate, err)
	if err != nil {
		return entry, s.fail(err)
	}

	s.mu.Lock()
	if entry.EnrollmentID == s.state.EnrollmentID && indexOf(s.state.Entries, entry.ID) < 0 {
		s.state.Entries = append(s.state.Entries, entry)
	}
	s.mu.Unlock()
	s.notify()
	return entry, nil
}

// DeleteWithReason deletes an entry; the backend keeps reason in the deletion audit trail.
func (s *LedgerStore) DeleteWithReason(ctx context.Context, id int, reason string) error {
	err := s.api.Delete(ctx, id, reason)
	s.deps.Metrics.observe(ledgerStoreName, OpDelete, err)
	if err != nil {
		return s.fail(err)
	}

	s.mu.Lock()
	s.state.Entries = slices.DeleteFunc(s.state.Entries, func(e school.LedgerEntry) bool { return e.ID == id })
	s.mu.Unlock()
	s.notify()
	return nil
}

// FetchByPaymentMethod loads the payments summary by payment method.
func (s *LedgerStore) FetchByPaymentMethod(ctx context.Context, filter school.LedgerFilter) ([]school.PaymentMethodSummary, error) {
	summary, err := s.api.ByPaymentMethod(ctx, filter)
	s.deps.Metrics.observe(ledgerStoreName, OpFetchSummary, err)
	if err != nil {
		return nil, s.fail(err)
	}

	s.mu.Lock()
	s.state.Summary = summary
	s.mu.Unlock()
	s.notify()
	return slices.Clone(summary), nil
}

// FetchDeletions loads the audit trail of deleted entries.
func (s *LedgerStore) FetchDeletions(ctx context.Context, filter school.LedgerFilter) error {
	s.mu.Lock()
	ctx, seq := s.deletions.begin(ctx)
	s.mu.Unlock()

	page, err := s.api.Deletions(ctx, filter)

	s.mu.Lock()
	if !s.deletions.done(seq) {
		s.mu.Unlock()
		s.deps.Metrics.superseded(ledgerStoreName)
		return ErrSuperseded
	}
	var apiErr *core.APIError
	if err != nil {
		apiErr = core.AsAPIError(err)
		s.state.Deletions = []school.LedgerDeletion{}
		s.state.DeletionsPagination = nil
		s.state.Error = s.deps.Messages.Describe(apiErr)
	} else {
		s.state.Deletions = page.Data
		s.state.DeletionsPagination = page.Paging()
	}
	s.mu.Unlock()

	s.deps.Metrics.observe(ledgerStoreName, OpFetchDeletions, err)
	s.notify()
	if apiErr != nil {
		return apiErr
	}
	return nil
}

func (s *LedgerStore) Reset() {
	s.mu.Lock()
	s.entries.stop()
	s.deletions.stop()
	s.state = LedgerState{}
	s.mu.Unlock()
	s.notify()
}

func (s *LedgerStore) fail(err error) *core.APIError {
	apiErr := core.AsAPIError(err)
	s.mu.Lock()
	s.state.Error = s.deps.Messages.Describe(apiErr)
	s.mu.Unlock()
	s.notify()
	return apiErr
}

func (s *LedgerStore) notify() {
	s.subs.notify(s.State())
}
