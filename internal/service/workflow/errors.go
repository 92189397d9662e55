package workflow

import (
	"errors"
	"net/http"

	"github.com/sghealthtrack/healthtrack-api/internal/repository"
	apperrors "github.com/sghealthtrack/healthtrack-api/pkg/errors"
)

const (
	MsgSlotTaken        = "That time slot is already booked. Please pick another."
	MsgScheduleRequired = "Schedule is required to approve."
	MsgReasonRequired   = "Rejection reason is required"
	MsgInvalidStatus    = "Invalid status"
	MsgFormNotDone      = "Patient has not completed the Form Slip yet."
	MsgBookingLocked    = "You can’t book a new appointment yet because your latest medical result is not released."
	MsgPaymentLocked    = "This appointment is already COMPLETED and is locked."
	MsgOtherDoctor      = "This booking is assigned to another doctor."
	MsgEvaluation       = "Evaluation is required."
	MsgCannotApprove    = "Appointment can no longer be approved."
	MsgCannotReopen     = "Appointment can no longer be moved back to pending."
)

// PartialError reports that the primary write went through but a follow-up
// write did not. Nothing is rolled back.
type PartialError struct {
	Msg string
	Err error
}

func (e *PartialError) Error() string {
	return e.Msg + ": " + e.Err.Error()
}

func (e *PartialError) Unwrap() error {
	return e.Err
}

func (e *PartialError) PublicMessage() string {
	return e.Msg + ": " + apperrors.MessageOf(e.Err)
}

func (e *PartialError) StatusCode() int {
	return http.StatusInternalServerError
}

func partial(msg string, err error) error {
	return &PartialError{Msg: msg, Err: err}
}

// storeErr maps repository failures onto client errors.
func storeErr(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NotFound(resource, err)
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Internal(err)
}
