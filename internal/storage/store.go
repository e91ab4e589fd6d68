package storage

import (
	"errors"
	"time"

	"github.com/mediconnect-health/mediconnect-backend/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for storage operations
type Store interface {
	// Patient operations
	CreatePatient(patient *models.Patient) (*models.Patient, error)
	FindPatientByPhone(phone string) (*models.Patient, error)
	FindPatientByID(patientID string) (*models.Patient, error)

	// Doctor operations
	CreateDoctor(doctor *models.Doctor) (*models.Doctor, error)
	ListDoctors(limit int) ([]*models.Doctor, error)

	// Appointment operations
	CreateAppointment(appointment *models.Appointment) (*models.Appointment, error)
	GetAppointment(appointmentID string) (*models.Appointment, error)
	GetAppointmentsByPatient(patientID string, limit int) ([]*models.Appointment, error)
	GetPendingAppointmentsByPatient(patientID string, limit int) ([]*models.Appointment, error)
	UpdateAppointmentStatus(appointmentID string, status string) error

	// Reminder operations (for scheduled jobs)
	GetAppointmentsDueForReminder(within time.Duration) ([]*models.Appointment, error)
	MarkReminderSent(appointmentID string) error
}
