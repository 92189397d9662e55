package messaging

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ChannelChanges carries workflow change events for live dashboards.
const ChannelChanges = "healthtrack:changes"

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// ChangeEvent tells subscribers that a row changed and views should reload.
// It carries no diff.
type ChangeEvent struct {
	Table         string    `json:"table"`
	Action        string    `json:"action"`
	AppointmentID uuid.UUID `json:"appointment_id,omitempty"`
	PatientID     uuid.UUID `json:"patient_id,omitempty"`
	Status        string    `json:"status,omitempty"`
	At            time.Time `json:"at"`
}
