// Package events defines the domain event envelope written to the
// transactional outbox whenever NCF state changes.
package events

import (
	"context"

	"ncfledger/internal/core/id"
)

// Event types.
const (
	TypeNumberAssigned   = "ncf.assigned"
	TypeSequenceCreated  = "ncf.sequence.created"
	TypeSequenceState    = "ncf.sequence.state_changed"
	TypeSequenceExpired  = "ncf.sequence.expired"
	TypeSequenceDepleted = "ncf.sequence.depleted"
	TypeAlertExpiring    = "ncf.alert.expiring_soon"
	TypeAlertLowStock    = "ncf.alert.low_availability"
)

// Aggregate names.
const (
	AggregateSequence   = "ncf_sequence"
	AggregateAssignment = "ncf_assignment"
)

// Event is a domain event to be delivered after the surrounding
// transaction commits.
type Event struct {
	AggregateType string
	AggregateID   id.ID
	EventType     string
	Payload       any
}

// Publisher writes events within the transaction carried by ctx.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Nop discards events.
type Nop struct{}

// Publish implements Publisher.
func (Nop) Publish(context.Context, Event) error { return nil }
