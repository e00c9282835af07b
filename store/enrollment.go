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
	OpFetchLogs       = "fetch_logs"
	OpFetchStatistics = "fetch_statistics"
)

type (
	// EnrollmentLogAPI groups the audit log endpoints of *apiclient.EnrollmentLogAPI and *apiclient.EnrollmentAPI.
	EnrollmentLogAPI interface {
		List(ctx context.Context, filter school.EnrollmentLogFilter) (*apiclient.Page[school.EnrollmentLog], error)
		Statistics(ctx context.Context, filter school.EnrollmentLogFilter) (school.EnrollmentLogStatistics, error)
		EnrollmentLogs(ctx context.Context, enrollmentID int) ([]school.EnrollmentLog, error)
	}

	EnrollmentLogState struct {
		Logs           []school.EnrollmentLog
		Pagination     *apiclient.Pagination
		Statistics     *school.EnrollmentLogStatistics
		EnrollmentID   int
		EnrollmentLogs []school.EnrollmentLog
		Loading        bool
		Error          string
	}

	EnrollmentLogStore struct {
		api  EnrollmentLogAPI
		deps Deps

		mu         sync.RWMutex
		state      EnrollmentLogState
		logs       fence
		enrollment fence

		subs subscribers[EnrollmentLogState]
	}

	enrollmentLogAPI struct {
		logs        *apiclient.EnrollmentLogAPI
		enrollments *apiclient.EnrollmentAPI
	}
)

const enrollmentLogStoreName = "enrollment_logs"

// NewEnrollmentLogAPI combines the client's audit log endpoints into an EnrollmentLogAPI.
func NewEnrollmentLogAPI(c *apiclient.Client) EnrollmentLogAPI {
	return enrollmentLogAPI{logs: c.EnrollmentLogs, enrollments: c.Enrollments}
}

func (api enrollmentLogAPI) List(ctx context.Context, filter school.EnrollmentLogFilter) (*apiclient.Page[school.EnrollmentLog], error) {
	return api.logs.List(ctx, filter)
}

func (api enrollmentLogAPI) Statistics(ctx context.Context, filter school.EnrollmentLogFilter) (school.EnrollmentLogStatistics, error) {
	return api.logs.Statistics(ctx, filter)
}

func (api enrollmentLogAPI) EnrollmentLogs(ctx context.Context, enrollmentID int) ([]school.EnrollmentLog, error) {
	return api.enrollments.Logs(ctx, enrollmentID)
}

func NewEnrollmentLogStore(api EnrollmentLogAPI, deps Deps) *EnrollmentLogStore {
	return &EnrollmentLogStore{api: api, deps: deps.withDefaults()}
}

func (s *EnrollmentLogStore) State() EnrollmentLogState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Logs = slices.Clone(s.state.Logs)
	st.EnrollmentLogs = slices.Clone(s.state.EnrollmentLogs)
	return st
}

func (s *EnrollmentLogStore) Subscribe(fn func(EnrollmentLogState)) func() {
	return s.subs.add(fn)
}

// FetchLogs loads one page of the audit log of all enrollments.
func (s *EnrollmentLogStore) FetchLogs(ctx context.Context, filter school.EnrollmentLogFilter) error {
	s.mu.Lock()
	ctx, seq := s.logs.begin(ctx)
	s.state.Loading = true
	s.state.Error = ""
	s.mu.Unlock()
	s.notify()

	page, err := s.api.List(ctx, filter)

	s.mu.Lock()
	if !s.logs.done(seq) {
		s.mu.Unlock()
		s.deps.Metrics.superseded(enrollmentLogStoreName)
		return ErrSuperseded
	}
	s.state.Loading = false
	var apiErr *core.APIError
	if err != nil {
		apiErr = core.AsAPIError(err)
		s.state.Logs = []school.EnrollmentLog{}
		s.state.Pagination = nil
		s.state.Error = s.deps.Messages.Describe(apiErr)
	} else {
		s.state.Logs = dedupe(page.Data)
		s.state.Pagination = page.Paging()
	}
	s.mu.Unlock()

	s.deps.Metrics.observe(enrollmentLogStoreName, OpFetchLogs, err)
	s.notify()
	if apiErr != nil {
		return apiErr
	}
	return nil
}

func (s *EnrollmentLogStore) FetchStatistics(ctx context.Context, filter school.EnrollmentLogFilter) (school.EnrollmentLogStatistics, error) {
	stats, err := s.api.Statistics(ctx, filter)
	s.deps.Metrics.observe(enrollmentLogStoreName, OpFetchStatistics, err)
	if err != nil {
		return stats, s.fail(err)
	}

	s.mu.Lock()
	s.state.Statistics = &stats
	s.mu.Unlock()
	s.notify()
	return stats, nil
}

// FetchEnrollmentLogs loads the audit log of one enrollment.
func (s *EnrollmentLogStore) FetchEnrollmentLogs(ctx context.Context, enrollmentID int) error {
	s.mu.Lock()
	ctx, seq := s.enrollment.begin(ctx)
	if s.state.EnrollmentID != enrollmentID {
		s.state.EnrollmentLogs = nil
	}
	s.state.EnrollmentID = enrollmentID
	s.mu.Unlock()

	logs, err := s.api.EnrollmentLogs(ctx, enrollmentID)

	s.mu.Lock()
	if !s.enrollment.done(seq) {
		s.mu.Unlock()
		s.deps.Metrics.superseded(enrollmentLogStoreName)
		return ErrSuperseded
	}
	var apiErr *core.APIError
	if err != nil {
		apiErr = core.AsAPIError(err)
		s.state.EnrollmentLogs = []school.EnrollmentLog{}
		s.state.Error = s.deps.Messages.Describe(apiErr)
	} else {
		s.state.EnrollmentLogs = logs
	}
	s.mu.Unlock()

	s.deps.Metrics.observe(enrollmentLogStoreName, OpFetchLogs, err)
	s.notify()
	if apiErr != nil {
		return apiErr
	}
	return nil
}

func (s *EnrollmentLogStore) Reset() {
	s.mu.Lock()
	s.logs.stop()
	s.enrollment.stop()
	s.state = EnrollmentLogState{}
	s.mu.Unlock()
	s.notify()
}

func (s *EnrollmentLogStore) fail(err error) *core.APIError {
	apiErr := core.AsAPIError(err)
	s.mu.Lock()
	s.state.Error = s.deps.Messages.Describe(apiErr)
	s.mu.Unlock()
	s.notify()
	return apiErr
}

func (s *EnrollmentLogStore) notify() {
	s.subs.notify(s.State())
}
