package events

import "time"

// DomainEvent is anything the service announces to other instances or services.
type DomainEvent interface {
	EventName() string
	AggregateID() string
	OccurredAt() time.Time
}
