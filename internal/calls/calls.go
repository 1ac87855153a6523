package calls

import (
	"context"
	"errors"
	"time"
)

type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCanceled   Status = "canceled"
)

// StatusAll is the list filter value that matches every status.
const StatusAll = "all"

var (
	ErrNotFound          = errors.New("call not found")
	ErrNotAvailable      = errors.New("transcript not available")
	ErrInvalidTransition = errors.New("invalid call status transition")
)

type Call struct {
	ID          string     `json:"id"`
	Status      Status     `json:"status"`
	Caller      string     `json:"caller,omitempty"`
	PhoneNumber string     `json:"phoneNumber,omitempty"`
	Agent       string     `json:"agent,omitempty"`
	ScheduledAt time.Time  `json:"scheduledAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	EndedAt     *time.Time `json:"endedAt,omitempty"`
	Notes       string     `json:"notes,omitempty"`
}

// Duration reports how long the call ran, or zero when it has not ended.
func (c Call) Duration() time.Duration {
	if c.StartedAt == nil || c.EndedAt == nil {
		return 0
	}
	return c.EndedAt.Sub(*c.StartedAt)
}

type Segment struct {
	Speaker       string  `json:"speaker"`
	Text          string  `json:"text"`
	OffsetSeconds float64 `json:"offsetSeconds"`
}

type Transcript struct {
	CallID    string    `json:"callId"`
	Summary   string    `json:"summary,omitempty"`
	Segments  []Segment `json:"segments"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListParams is the request sent to the list endpoint. Empty From/To are
// omitted from the wire request.
type ListParams struct {
	Page   int
	Limit  int
	Status string
	From   string
	To     string
}

type ListResponse struct {
	Items      []Call `json:"items"`
	Page       int    `json:"page"`
	Limit      int    `json:"limit"`
	Total      int    `json:"total"`
	TotalPages int    `json:"totalPages"`
}

// Provider is the transport for calls. Implementations must honour ctx
// cancellation.
type Provider interface {
	List(ctx context.Context, params ListParams) (ListResponse, error)
	Get(ctx context.Context, id string) (Call, error)
	Transcript(ctx context.Context, id string) (Transcript, error)
	Start(ctx context.Context, id string) (Call, error)
	Finish(ctx context.Context, id string) (Call, error)
}
