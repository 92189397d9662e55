package model

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentUnpaid    PaymentStatus = "unpaid"
)

type PaymentMethod string

const (
	PaymentMethodCash  PaymentMethod = "cash"
	PaymentMethodGCash PaymentMethod = "gcash"
	PaymentMethodQRPH  PaymentMethod = "qrph"
)

// MaxPaymentAmount guards against fat-fingered amounts.
const MaxPaymentAmount = 1_000_000

type Payment struct {
	ID             uuid.UUID     `db:"id" json:"id"`
	AppointmentID  uuid.UUID     `db:"appointment_id" json:"appointment_id"`
	PatientID      uuid.UUID     `db:"patient_id" json:"patient_id"`
	RecordedBy     *uuid.UUID    `db:"recorded_by" json:"recorded_by"`
	PaymentStatus  PaymentStatus `db:"payment_status" json:"payment_status"`
	ORNumber       *string       `db:"or_number" json:"or_number"`
	ReferenceNo    *string       `db:"reference_no" json:"reference_no,omitempty"`
	Amount         *float64      `db:"amount" json:"amount"`
	Notes          *string       `db:"notes" json:"notes"`
	RecordedAt     time.Time     `db:"recorded_at" json:"recorded_at"`
	PackageAvailed bool          `db:"package_availed" json:"package_availed"`
	PackageName    *string       `db:"package_name" json:"package_name"`
	PaymentMethod  PaymentMethod `db:"payment_method" json:"payment_method"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

type RecordPaymentRequest struct {
	Status         PaymentStatus `json:"status" binding:"required,oneof=completed unpaid"`
	ORNumber       string        `json:"or_number"`
	Amount         *float64      `json:"amount"`
	Method         PaymentMethod `json:"payment_method" binding:"omitempty,oneof=cash gcash qrph"`
	GCashReference string        `json:"gcash_reference"`
	Notes          string        `json:"notes"`
}

type MockQRPaymentRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	Amount        float64   `json:"amount"`
}

// MockQR is the fake QR PH code returned to the patient.
type MockQR struct {
	DataURL     string    `json:"data_url"`
	Amount      float64   `json:"amount"`
	ReferenceNo string    `json:"reference_no"`
	ORNumber    string    `json:"or_number"`
	ExpiresAt   time.Time `json:"expires_at"`
}
