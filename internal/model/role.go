package model

import (
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// Role is the closed set of profile roles.
type Role string

const (
	RoleAdmin        Role = "admin"
	RoleReceptionist Role = "receptionist"
	RoleNurse        Role = "nurse"
	RoleLab          Role = "lab"
	RoleCashier      Role = "cashier"
	RoleDoctor       Role = "doctor"
	RoleXray         Role = "xray"
	RolePatient      Role = "patient"
)

var allRoles = []Role{
	RoleAdmin, RoleReceptionist, RoleNurse, RoleLab,
	RoleCashier, RoleDoctor, RoleXray, RolePatient,
}

// ParseRole normalises a stored role. Unknown values are rejected.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	if r == "radiologist" {
		r = RoleXray
	}
	return r, lo.Contains(allRoles, r)
}

func (r Role) IsStaff() bool {
	return r != RolePatient && lo.Contains(allRoles, r)
}

// Action is something a role may be allowed to do.
type Action string

const (
	ActionViewEvents           Action = "view_events"
	ActionBookAppointment      Action = "book_appointment"
	ActionEditFormSlip         Action = "edit_form_slip"
	ActionPayOnline            Action = "pay_online"
	ActionReadNotifications    Action = "read_notifications"
	ActionManageAppointments   Action = "manage_appointments"
	ActionScheduleAppointments Action = "schedule_appointments"
	ActionSendNotifications    Action = "send_notifications"
	ActionViewApprovedQueue    Action = "view_approved_queue"
	ActionRecordPayment        Action = "record_payment"
	ActionRecordVitals         Action = "record_vitals"
	ActionRecordLab            Action = "record_lab"
	ActionRecordXray           Action = "record_xray"
	ActionRecordDoctorReport   Action = "record_doctor_report"
	ActionReleaseReport        Action = "release_report"
	ActionGenerateReport       Action = "generate_report"
	ActionRunArchive           Action = "run_archive"
)

// policy is the single (role, action) table consulted by the auth
// middleware and the workflow service.
var policy = map[Action][]Role{
	ActionViewEvents:           allRoles,
	ActionBookAppointment:      {RolePatient},
	ActionEditFormSlip:         {RolePatient},
	ActionPayOnline:            {RolePatient},
	ActionReadNotifications:    {RolePatient},
	ActionManageAppointments:   {RoleAdmin},
	ActionScheduleAppointments: {RoleAdmin, RoleReceptionist},
	ActionSendNotifications:    {RoleAdmin, RoleReceptionist},
	ActionViewApprovedQueue:    {RoleNurse, RoleLab, RoleCashier},
	ActionRecordPayment:        {RoleCashier},
	ActionRecordVitals:         {RoleNurse},
	ActionRecordLab:            {RoleLab},
	ActionRecordXray:           {RoleXray},
	ActionRecordDoctorReport:   {RoleDoctor},
	ActionReleaseReport:        {RoleDoctor},
	ActionGenerateReport:       {RoleDoctor, RoleAdmin},
	ActionRunArchive:           {RoleAdmin},
}

// Can reports whether r is allowed to perform a.
func (r Role) Can(a Action) bool {
	return lo.Contains(policy[a], r)
}

// AllowedRoles lists the roles permitted to perform a.
func AllowedRoles(a Action) []Role {
	return append([]Role(nil), policy[a]...)
}

// Actor is the authenticated caller of a workflow operation.
type Actor struct {
	UserID uuid.UUID
	Email  string
	Role   Role
}
