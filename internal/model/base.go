package model

import (
	"time"

	"github.com/google/uuid"
)

// Base contains the columns every clinic table shares
type Base struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	ArchivedAt *time.Time `json:"archived_at,omitempty" db:"archived_at"`
}

// JSONMap represents a generic JSON object
type JSONMap map[string]interface{}
