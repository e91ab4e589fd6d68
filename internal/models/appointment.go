package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Appointment represents a booked consultation between a patient and a doctor
type Appointment struct {
	gorm.Model

	AppointmentID string `json:"appointment_id" gorm:"uniqueIndex"`
	PatientID     string `json:"patient_id" gorm:"index"`
	DoctorID      string `json:"doctor_id" gorm:"index"`
	DoctorName    string `json:"doctor_name"` // Denormalized for menu rendering and SMS bodies

	AppointmentDate time.Time `json:"appointment_date"`
	AppointmentMode string    `json:"appointment_mode"` // "Online" or "In-Person"
	ReasonForVisit  string    `json:"reason_for_visit"`
	Amount          float64   `json:"amount"`

	// Status tracking
	Status string `json:"status" gorm:"default:pending"` // "pending", "confirmed", "cancelled", "completed"

	// Reminder tracking
	ReminderSentAt *time.Time `json:"reminder_sent_at"`
}

// AppointmentStatus constants
const (
	AppointmentStatusPending   = "pending"
	AppointmentStatusConfirmed = "confirmed"
	AppointmentStatusCancelled = "cancelled"
	AppointmentStatusCompleted = "completed"

	AppointmentModeOnline   = "Online"
	AppointmentModeInPerson = "In-Person"
)

// Defaults applied to USSD-originated bookings
const (
	USSDBookingAmount = 50.00
	USSDBookingReason = "Booked via USSD"
)

// BeforeCreate hook to auto-generate AppointmentID
func (a *Appointment) BeforeCreate(tx *gorm.DB) error {
	if a.AppointmentID == "" {
		a.AppointmentID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = AppointmentStatusPending
	}
	return nil
}

// Reference returns the short booking reference shown to the caller
func (a *Appointment) Reference() string {
	if len(a.AppointmentID) < 8 {
		return a.AppointmentID
	}
	return a.AppointmentID[:8]
}
