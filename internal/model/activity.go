package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActivityLog is the audit trail written by selected operations.
type ActivityLog struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	ActorID    *uuid.UUID      `json:"actor_id" db:"actor_id"`
	ActorRole  *string         `json:"actor_role" db:"actor_role"`
	Action     string          `json:"action" db:"action"`
	EntityType string          `json:"entity_type" db:"entity_type"`
	EntityID   *uuid.UUID      `json:"entity_id" db:"entity_id"`
	Details    json.RawMessage `json:"details" db:"details"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
}

const (
	// Action types
	ActivityApprove  = "appointment.approve"
	ActivityReject   = "appointment.reject"
	ActivityArrival  = "appointment.arrival"
	ActivityNoShow   = "appointment.no_show"
	ActivityStatus   = "appointment.status"
	ActivityBook     = "appointment.book"
	ActivityPayment  = "payment.record"
	ActivityRelease  = "report.release"
	ActivityArchive  = "archive.run"
	ActivityFormSlip = "requirements.submit"

	// Entity types
	EntityAppointment = "appointment"
	EntityPayment     = "payment"
	EntityArchive     = "archive"
)
