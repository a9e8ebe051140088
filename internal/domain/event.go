package domain

import (
	"fmt"
	"time"
)

// PolicyEvent is a lifecycle request or claim filed against a policy.
type PolicyEvent struct {
	ID          string
	PolicyID    string
	Type        EventType
	Description string
	Status      EventStatus
	RequestedAt time.Time
	ResolvedAt  *time.Time
}

var eventTransitions = map[EventStatus][]EventStatus{
	EventStatusPending:    {EventStatusInProgress, EventStatusCancelled},
	EventStatusInProgress: {EventStatusCompleted, EventStatusFailed, EventStatusCancelled},
}

// Terminal reports whether no further transition is allowed.
func (s EventStatus) Terminal() bool {
	return len(eventTransitions[s]) == 0
}

// Advance moves the event to next, stamping the resolution time when next is
// terminal.
func (e *PolicyEvent) Advance(next EventStatus, now time.Time) error {
	for _, allowed := range eventTransitions[e.Status] {
		if allowed == next {
			e.Status = next
			if next.Terminal() {
				t := now.UTC()
				e.ResolvedAt = &t
			}
			return nil
		}
	}
	return NewError(CodeInvalidTransition, fmt.Sprintf("event cannot move from %s to %s", e.Status, next))
}
