package echoapi

import (
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-admin/core/school"
)

// failingRecipient marks the test phone numbers the fake gateway refuses.
const failingRecipient = "000"

type (
	// bulkSender is a fake WhatsApp gateway: every status poll sends one more message of the job.
	bulkSender struct {
		mu   sync.Mutex
		jobs map[string]*bulkJob
	}

	bulkJob struct {
		id          string
		delay       int
		messages    []school.BulkSendMessage
		next        int
		startedAt   *time.Time
		completedAt *time.Time
	}
)

func newBulkSender() *bulkSender {
	return &bulkSender{jobs: make(map[string]*bulkJob)}
}

func (b *bulkSender) enqueue(req school.BulkSendRequest) school.BulkSendJob {
	job := &bulkJob{id: uuid.NewString(), delay: 1}
	if req.DelaySeconds != nil {
		job.delay = *req.DelaySeconds
	}
	for _, r := range req.Recipients {
		job.messages = append(job.messages, school.BulkSendMessage{Recipient: r, Status: school.MessagePending})
	}

	b.mu.Lock()
	b.jobs[job.id] = job
	b.mu.Unlock()

	return school.BulkSendJob{
		JobID:   job.id,
		Status:  school.JobPending,
		Total:   len(job.messages),
		Message: "تمت جدولة الرسائل للإرسال",
	}
}

// poll sends the next pending message of the job, then returns its snapshot.
func (b *bulkSender) poll(id string) (school.BulkSendStatus, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	job, found := b.jobs[id]
	if !found {
		return school.BulkSendStatus{}, false
	}

	now := time.Now().UTC()
	if job.startedAt == nil {
		job.startedAt = &now
	}
	if job.next < len(job.messages) {
		msg := &job.messages[job.next]
		if strings.Contains(msg.Recipient, failingRecipient) {
			msg.Status = school.MessageFailed
			msg.Error = "رقم غير صالح"
		} else {
			msg.Status = school.MessageSent
			msg.SentAt = &now
		}
		job.next++
		if job.next == len(job.messages) {
			job.completedAt = &now
		}
	}
	return job.snapshot(), true
}

func (j *bulkJob) snapshot() school.BulkSendStatus {
	st := school.BulkSendStatus{
		JobID:    j.id,
		Status:   school.JobInProgress,
		Messages: append([]school.BulkSendMessage(nil), j.messages...),
		Timing:   school.BulkSendTiming{StartedAt: j.startedAt, CompletedAt: j.completedAt},
	}
	p := &st.Progress
	p.Total = len(j.messages)
	for _, m := range j.messages {
		switch m.Status {
		case school.MessageSent:
			p.Sent++
		case school.MessageFailed:
			p.Failed++
		default:
			p.Pending++
		}
	}
	if p.Total > 0 {
		p.Percentage = math.Round(float64(p.Sent+p.Failed)/float64(p.Total)*10000) / 100
	}

	switch {
	case p.Pending > 0:
		remaining := p.Pending * j.delay
		st.Timing.EstimatedRemainingSeconds = &remaining
	case p.Sent == 0:
		st.Status = school.JobFailed
	default:
		st.Status = school.JobCompleted
	}
	return st
}

func (s *server) registerWhatsAppRoutes(g *echo.Group) {
	g.POST("/whatsapp/bulk-send-text", s.bulkSendText)
	g.GET("/whatsapp/bulk-send-status/:jobId", s.bulkSendStatus)
}

func (s *server) bulkSendText(ctx echo.Context) error {
	var req school.BulkSendRequest
	if err := bindAndValidate(ctx, &req); err != nil {
		return err
	}
	return created(ctx, s.jobs.enqueue(req))
}

func (s *server) bulkSendStatus(ctx echo.Context) error {
	st, found := s.jobs.poll(ctx.Param("jobId"))
	if !found {
		return errNotFound(msgJobNotFound)
	}
	return ok(ctx, st)
}
