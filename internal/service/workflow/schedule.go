package workflow

import (
	"time"

	apperrors "github.com/sghealthtrack/healthtrack-api/pkg/errors"
)

// ClinicLocation is Philippine time, fixed so the binary needs no tzdata.
var ClinicLocation = time.FixedZone("Asia/Manila", 8*60*60)

const (
	clinicOpenMinutes  = 7 * 60
	clinicCloseMinutes = 15 * 60
	slotMinutes        = 30
)

const (
	MsgClinicHours  = "Clinic hours are 7:00 AM – 3:00 PM only."
	MsgClinicSunday = "Clinic is closed on Sundays. Please choose Monday–Saturday."
)

// checkClinicTime rejects times outside Monday–Saturday 07:00–15:00.
func checkClinicTime(t time.Time) error {
	local := t.In(ClinicLocation)
	if local.Weekday() == time.Sunday {
		return apperrors.BadRequest(MsgClinicSunday, nil)
	}
	m := local.Hour()*60 + local.Minute()
	if m < clinicOpenMinutes || m > clinicCloseMinutes {
		return apperrors.BadRequest(MsgClinicHours, nil)
	}
	return nil
}

// Slots lists the bookable HH:MM slots of a clinic day.
func Slots() []string {
	var out []string
	base := time.Date(2000, 1, 1, 0, 0, 0, 0, ClinicLocation)
	for m := clinicOpenMinutes; m <= clinicCloseMinutes; m += slotMinutes {
		out = append(out, base.Add(time.Duration(m)*time.Minute).Format("15:04"))
	}
	return out
}

func formatSchedule(t time.Time) string {
	return t.In(ClinicLocation).Format("Jan 2, 2006 3:04 PM")
}
