package postgres

import (
	"github.com/jmoiron/sqlx"

	"github.com/sghealthtrack/healthtrack-api/internal/repository"
)

type appointmentRepository struct {
	db *sqlx.DB
}

type stepsRepository struct {
	db *sqlx.DB
}

type requirementsRepository struct {
	db *sqlx.DB
}

type paymentRepository struct {
	db *sqlx.DB
}

type clinicalRepository struct {
	db *sqlx.DB
}

type notificationRepository struct {
	db *sqlx.DB
}

type profileRepository struct {
	db *sqlx.DB
}

type archiveRepository struct {
	db *sqlx.DB
}

func NewAppointmentRepository(db *sqlx.DB) repository.AppointmentRepository {
	return &appointmentRepository{db: db}
}

func NewStepsRepository(db *sqlx.DB) repository.StepsRepository {
	return &stepsRepository{db: db}
}

func NewRequirementsRepository(db *sqlx.DB) repository.RequirementsRepository {
	return &requirementsRepository{db: db}
}

func NewPaymentRepository(db *sqlx.DB) repository.PaymentRepository {
	return &paymentRepository{db: db}
}

func NewClinicalRepository(db *sqlx.DB) repository.ClinicalRepository {
	return &clinicalRepository{db: db}
}

func NewNotificationRepository(db *sqlx.DB) repository.NotificationRepository {
	return &notificationRepository{db: db}
}

func NewProfileRepository(db *sqlx.DB) repository.ProfileRepository {
	return &profileRepository{db: db}
}

func NewArchiveRepository(db *sqlx.DB) repository.ArchiveRepository {
	return &archiveRepository{db: db}
}
