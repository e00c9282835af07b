package messaging

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/school"
	logsvc "github.com/trezcool/masomo-admin/services/logger"
)

func snapshot(status string, sent, failed, pending int) school.BulkSendStatus {
	return school.BulkSendStatus{
		JobID:  "job-1",
		Status: status,
		Progress: school.BulkSendProgress{
			Total: sent + failed + pending, Sent: sent, Failed: failed, Pending: pending,
		},
	}
}

func TestCheckProgress(t *testing.T) {
	tests := []struct {
		name    string
		p       school.BulkSendProgress
		wantErr bool
	}{
		{name: "ok", p: school.BulkSendProgress{Total: 3, Sent: 1, Failed: 1, Pending: 1}},
		{name: "empty", p: school.BulkSendProgress{}},
		{name: "missing", p: school.BulkSendProgress{Total: 3, Sent: 1}, wantErr: true},
		{name: "negative", p: school.BulkSendProgress{Total: 1, Sent: 2, Pending: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckProgress(tt.p)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrProgressMismatch)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTracker_Observe(t *testing.T) {
	badCounters := snapshot(school.JobInProgress, 1, 0, 0)
	badCounters.Progress.Total = 5
	otherJob := snapshot(school.JobInProgress, 1, 0, 1)
	otherJob.JobID = "job-2"

	tests := []struct {
		name    string
		snaps   []school.BulkSendStatus
		wantErr []error // one per snapshot
		want    string  // status of the last accepted snapshot
	}{
		{
			name:    "forward",
			snaps:   []school.BulkSendStatus{snapshot(school.JobPending, 0, 0, 2), snapshot(school.JobInProgress, 1, 0, 1), snapshot(school.JobCompleted, 2, 0, 0)},
			wantErr: []error{nil, nil, nil},
			want:    school.JobCompleted,
		},
		{
			name:    "same status again",
			snaps:   []school.BulkSendStatus{snapshot(school.JobInProgress, 0, 0, 2), snapshot(school.JobInProgress, 1, 0, 1)},
			wantErr: []error{nil, nil},
			want:    school.JobInProgress,
		},
		{
			name:    "regression",
			snaps:   []school.BulkSendStatus{snapshot(school.JobInProgress, 1, 0, 1), snapshot(school.JobPending, 0, 0, 2)},
			wantErr: []error{nil, ErrStatusRegression},
			want:    school.JobInProgress,
		},
		{
			name:    "terminal never changes",
			snaps:   []school.BulkSendStatus{snapshot(school.JobFailed, 0, 2, 0), snapshot(school.JobCompleted, 2, 0, 0)},
			wantErr: []error{nil, ErrStatusRegression},
			want:    school.JobFailed,
		},
		{
			name:    "unknown status",
			snaps:   []school.BulkSendStatus{snapshot(school.JobPending, 0, 0, 1), snapshot("exploded", 0, 0, 1)},
			wantErr: []error{nil, ErrUnknownStatus},
			want:    school.JobPending,
		},
		{
			name:    "counters",
			snaps:   []school.BulkSendStatus{snapshot(school.JobPending, 0, 0, 1), badCounters},
			wantErr: []error{nil, ErrProgressMismatch},
			want:    school.JobPending,
		},
		{
			name:    "another job",
			snaps:   []school.BulkSendStatus{otherJob},
			wantErr: []error{ErrJobMismatch},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker("job-1")
			for i, snap := range tt.snaps {
				err := tr.Observe(snap)
				if tt.wantErr[i] == nil {
					assert.NoError(t, err, "snapshot %d", i)
				} else {
					assert.ErrorIs(t, err, tt.wantErr[i], "snapshot %d", i)
				}
			}
			last, ok := tr.Last()
			assert.Equal(t, tt.want != "", ok)
			assert.Equal(t, tt.want, last.Status)
		})
	}
}

// scriptedAPI replays status snapshots, repeating the last one.
type scriptedAPI struct {
	mu    sync.Mutex
	snaps []school.BulkSendStatus
	polls int
	err   error
}

func (api *scriptedAPI) BulkSendText(_ context.Context, req school.BulkSendRequest) (school.BulkSendJob, error) {
	return school.BulkSendJob{JobID: "job-1", Status: school.JobPending, Total: len(req.Recipients)}, nil
}

func (api *scriptedAPI) BulkSendStatus(context.Context, string) (school.BulkSendStatus, error) {
	api.mu.Lock()
	defer api.mu.Unlock()
	if api.err != nil {
		return school.BulkSendStatus{}, api.err
	}
	i := min(api.polls, len(api.snaps)-1)
	api.polls++
	return api.snaps[i], nil
}

func TestService_Watch(t *testing.T) {
	api := &scriptedAPI{snaps: []school.BulkSendStatus{
		snapshot(school.JobPending, 0, 0, 3),
		snapshot(school.JobInProgress, 1, 0, 2),
		snapshot(school.JobPending, 0, 0, 3), // stale, rejected
		snapshot(school.JobInProgress, 2, 1, 0),
		snapshot(school.JobCompleted, 2, 1, 0),
	}}
	svc := NewService(api, logsvc.NewNopLogger())

	job, err := svc.Send(context.Background(), school.BulkSendRequest{Recipients: []string{"a", "b", "c"}, Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, 3, job.Total)

	var seen []string
	last, err := svc.Watch(context.Background(), job.JobID, time.Millisecond, func(st school.BulkSendStatus) {
		seen = append(seen, st.Status)
	})
	require.NoError(t, err)
	assert.Equal(t, school.JobCompleted, last.Status)
	assert.Equal(t, []string{school.JobPending, school.JobInProgress, school.JobInProgress, school.JobCompleted}, seen)
	assert.Equal(t, 5, api.polls)
}

func TestService_WatchStops(t *testing.T) {
	t.Run("canceled", func(t *testing.T) {
		api := &scriptedAPI{snaps: []school.BulkSendStatus{snapshot(school.JobInProgress, 1, 0, 1)}}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		last, err := NewService(api, logsvc.NewNopLogger()).Watch(ctx, "job-1", 5*time.Millisecond, nil)
		require.Error(t, err)
		assert.True(t, core.IsKind(err, core.KindCanceled))
		assert.Equal(t, school.JobInProgress, last.Status)
	})

	t.Run("api error", func(t *testing.T) {
		api := &scriptedAPI{err: core.NewAPIError(404, "مهمة الإرسال غير موجودة", nil)}
		_, err := NewService(api, logsvc.NewNopLogger()).Watch(context.Background(), "job-1", time.Millisecond, nil)
		assert.True(t, core.IsKind(err, core.KindNotFound))
	})
}
