// Package messaging submits bulk WhatsApp sends and follows their progress.
// Dispatching happens on the backend; the client only checks that the snapshots it observes
// are consistent.
package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/school"
)

var (
	ErrProgressMismatch = errors.New("messaging: sent + failed + pending does not match total")
	ErrStatusRegression = errors.New("messaging: job status went backwards")
	ErrUnknownStatus    = errors.New("messaging: unknown job status")
	ErrJobMismatch      = errors.New("messaging: snapshot of another job")
)

// API is implemented by *apiclient.WhatsAppAPI.
type API interface {
	BulkSendText(ctx context.Context, req school.BulkSendRequest) (school.BulkSendJob, error)
	BulkSendStatus(ctx context.Context, jobID string) (school.BulkSendStatus, error)
}

type Service struct {
	api    API
	logger core.Logger
}

func NewService(api API, logger core.Logger) *Service {
	return &Service{api: api, logger: logger}
}

// Send submits a bulk send and returns the job to follow.
func (s *Service) Send(ctx context.Context, req school.BulkSendRequest) (school.BulkSendJob, error) {
	job, err := s.api.BulkSendText(ctx, req)
	if err != nil {
		return job, err
	}
	s.logger.Info(fmt.Sprintf("bulk send %s submitted to %d recipients", job.JobID, len(req.Recipients)))
	return job, nil
}

func (s *Service) Status(ctx context.Context, jobID string) (school.BulkSendStatus, error) {
	return s.api.BulkSendStatus(ctx, jobID)
}

// Watch polls the status of jobID every interval and calls fn with every consistent snapshot,
// until the job reaches a terminal status or ctx is done. It returns the last consistent snapshot.
func (s *Service) Watch(ctx context.Context, jobID string, interval time.Duration, fn func(school.BulkSendStatus)) (school.BulkSendStatus, error) {
	tracker := NewTracker(jobID)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		snap, err := s.api.BulkSendStatus(ctx, jobID)
		if err != nil {
			last, _ := tracker.Last()
			return last, err
		}
		if err = tracker.Observe(snap); err != nil {
			s.logger.Warn("rejected bulk send snapshot", err, map[string]interface{}{"job_id": jobID, "status": snap.Status})
		} else if fn != nil {
			fn(snap)
		}

		last, _ := tracker.Last()
		if last.Terminal() {
			return last, nil
		}

		select {
		case <-ctx.Done():
			return last, core.AsAPIError(ctx.Err())
		case <-ticker.C:
		}
	}
}

var statusRank = map[string]int{
	school.JobPending:    0,
	school.JobInProgress: 1,
	school.JobCompleted:  2,
	school.JobFailed:     2,
}

// CheckProgress verifies the counters of a single snapshot.
func CheckProgress(p school.BulkSendProgress) error {
	if p.Sent < 0 || p.Failed < 0 || p.Pending < 0 || p.Sent+p.Failed+p.Pending != p.Total {
		return errors.Wrapf(ErrProgressMismatch, "%d + %d + %d != %d", p.Sent, p.Failed, p.Pending, p.Total)
	}
	return nil
}

// Tracker follows the snapshots of one job. Inconsistent snapshots are rejected and the last
// consistent one is kept.
type Tracker struct {
	jobID string

	mu   sync.Mutex
	last *school.BulkSendStatus
}

func NewTracker(jobID string) *Tracker {
	return &Tracker{jobID: jobID}
}

// Observe accepts snap if its counters add up and its status does not go back:
// pending -> in_progress -> completed|failed, a terminal status never changes.
func (t *Tracker) Observe(snap school.BulkSendStatus) error {
	if snap.JobID != "" && t.jobID != "" && snap.JobID != t.jobID {
		return errors.Wrapf(ErrJobMismatch, "got %s, want %s", snap.JobID, t.jobID)
	}
	rank, ok := statusRank[snap.Status]
	if !ok {
		return errors.Wrapf(ErrUnknownStatus, "%q", snap.Status)
	}
	if err := CheckProgress(snap.Progress); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last != nil {
		prev := t.last.Status
		if rank < statusRank[prev] || (t.last.Terminal() && snap.Status != prev) {
			return errors.Wrapf(ErrStatusRegression, "%s -> %s", prev, snap.Status)
		}
	}
	t.last = &snap
	return nil
}

// Last returns the last accepted snapshot.
func (t *Tracker) Last() (school.BulkSendStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return school.BulkSendStatus{}, false
	}
	return *t.last, true
}
