package school

import "time"

// Bulk send job statuses
const (
	JobPending    = "pending"
	JobInProgress = "in_progress"
	JobCompleted  = "completed"
	JobFailed     = "failed"
)

// Per message statuses
const (
	MessagePending = "pending"
	MessageSent    = "sent"
	MessageFailed  = "failed"
)

// BulkSendRequest asks the backend to send Message to every recipient,
// waiting DelaySeconds between two messages when set.
type BulkSendRequest struct {
	Recipients   []string `json:"recipients" validate:"required,min=1,dive,phone"`
	Message      string   `json:"message" validate:"required,notblank,max=4096"`
	DelaySeconds *int     `json:"delay_seconds,omitempty" validate:"omitempty,gte=0,lte=300"`
}

type BulkSendJob struct {
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
	Total   int    `json:"total"`
	Message string `json:"message,omitempty"`
}

type BulkSendProgress struct {
	Total      int     `json:"total"`
	Sent       int     `json:"sent"`
	Failed     int     `json:"failed"`
	Pending    int     `json:"pending"`
	Percentage float64 `json:"percentage"`
}

type BulkSendTiming struct {
	StartedAt                 *time.Time `json:"started_at"`
	CompletedAt               *time.Time `json:"completed_at"`
	EstimatedRemainingSeconds *int       `json:"estimated_remaining_seconds"`
}

type BulkSendMessage struct {
	Recipient string     `json:"recipient"`
	Status    string     `json:"status"`
	Error     string     `json:"error,omitempty"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
}

// BulkSendStatus is one snapshot of a bulk send job, computed by the backend.
type BulkSendStatus struct {
	JobID    string            `json:"job_id"`
	Status   string            `json:"status"`
	Progress BulkSendProgress  `json:"progress"`
	Timing   BulkSendTiming    `json:"timing"`
	Messages []BulkSendMessage `json:"messages"`
}

// Terminal reports whether the job reached a final status.
func (s BulkSendStatus) Terminal() bool {
	return s.Status == JobCompleted || s.Status == JobFailed
}
