package mock

import (
	"fmt"
	"time"

	"github.com/calldesk/calldesk-cli/internal/calls"
)

var (
	seedCallers = []string{"Ada Moreno", "Bilal Haddad", "Chen Wei", "Dana Kowalski", "Eitan Levi", "Fatima Ndiaye", "Gus Petersen", "Hana Sato"}
	seedAgents  = []string{"agent-ivy", "agent-jon", "agent-kai"}
	seedTopics  = []string{"billing question", "delivery delay", "plan upgrade", "password reset", "refund request"}
)

// Seed fills the store with n deterministic calls spread over the last few
// weeks: past calls are completed or canceled, recent ones in progress,
// upcoming ones scheduled.
func (s *Store) Seed(n int) {
	now := s.now()
	for i := 0; i < n; i++ {
		// Two calls per day, newest first, a few in the future.
		at := now.Add(time.Duration(3-i) * 12 * time.Hour).Truncate(time.Minute)
		c := calls.Call{
			ID:          fmt.Sprintf("call-%03d", i+1),
			Caller:      seedCallers[i%len(seedCallers)],
			PhoneNumber: fmt.Sprintf("+1-555-01%02d", i%100),
			Agent:       seedAgents[i%len(seedAgents)],
			ScheduledAt: at.UTC(),
			Notes:       seedTopics[i%len(seedTopics)],
		}
		switch {
		case at.After(now):
			c.Status = calls.StatusScheduled
		case i%11 == 7:
			c.Status = calls.StatusCanceled
		case now.Sub(at) < 24*time.Hour:
			c.Status = calls.StatusInProgress
			started := at.UTC()
			c.StartedAt = &started
		default:
			c.Status = calls.StatusCompleted
			started := at.UTC()
			ended := started.Add(time.Duration(4+i%9) * time.Minute)
			c.StartedAt = &started
			c.EndedAt = &ended
		}
		s.Add(c)
	}
}

func buildTranscript(c calls.Call, now time.Time) *calls.Transcript {
	agent := c.Agent
	if agent == "" {
		agent = "agent"
	}
	caller := c.Caller
	if caller == "" {
		caller = "caller"
	}
	topic := c.Notes
	if topic == "" {
		topic = "a question"
	}
	return &calls.Transcript{
		CallID:  c.ID,
		Summary: fmt.Sprintf("%s called about %s.", caller, topic),
		Segments: []calls.Segment{
			{Speaker: agent, Text: "Thanks for calling, how can I help?", OffsetSeconds: 0},
			{Speaker: caller, Text: fmt.Sprintf("Hi, I'm calling about %s.", topic), OffsetSeconds: 4.5},
			{Speaker: agent, Text: "Let me look into that for you.", OffsetSeconds: 11},
			{Speaker: caller, Text: "Great, thank you.", OffsetSeconds: 19.2},
		},
		CreatedAt: now.UTC(),
	}
}
