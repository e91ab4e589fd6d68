package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/mediconnect-health/mediconnect-backend/internal/services"
	"github.com/mediconnect-health/mediconnect-backend/internal/storage"
)

// ReminderJob sends SMS reminders for upcoming appointments
type ReminderJob struct {
	store     storage.Store
	sms       services.SMSSender
	isRunning bool
	stop      chan struct{}
}

// reminderWindow is how far ahead of the appointment the reminder goes out
const reminderWindow = 24 * time.Hour

// NewReminderJob creates a new reminder job scheduler
func NewReminderJob(store storage.Store, sms services.SMSSender) *ReminderJob {
	return &ReminderJob{
		store: store,
		sms:   sms,
		stop:  make(chan struct{}),
	}
}

// Start begins the scheduled reminder job
func (r *ReminderJob) Start() {
	if r.isRunning {
		log.Println("Reminder job already running")
		return
	}

	r.isRunning = true
	log.Println("Starting appointment reminder job...")

	go r.scheduleReminders()
}

// Stop halts the scheduled job
func (r *ReminderJob) Stop() {
	if !r.isRunning {
		return
	}
	r.isRunning = false
	close(r.stop)
	log.Println("Stopping appointment reminder job...")
}

// scheduleReminders checks for due reminders every hour
func (r *ReminderJob) scheduleReminders() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.SendDueReminders()
		case <-r.stop:
			return
		}
	}
}

// SendDueReminders sends a reminder SMS for every appointment starting within
// the reminder window that has not been reminded yet. Send failures skip the
// mark so the next tick retries.
func (r *ReminderJob) SendDueReminders() {
	appointments, err := r.store.GetAppointmentsDueForReminder(reminderWindow)
	if err != nil {
		log.Printf("Error loading appointments for reminders: %v", err)
		return
	}

	sentCount := 0
	for _, appointment := range appointments {
		patient, err := r.store.FindPatientByID(appointment.PatientID)
		if err != nil {
			log.Printf("Skipping reminder for appointment %s: %v", appointment.AppointmentID, err)
			continue
		}

		message := fmt.Sprintf("MediConnect reminder: you have an appointment with %s on %s. Reference: %s",
			appointment.DoctorName,
			appointment.AppointmentDate.Format("02/01/2006 03:04 PM"),
			appointment.Reference())

		if r.sms != nil {
			if err := r.sms.SendSMS(patient.Phone, message); err != nil {
				log.Printf("Failed to send reminder for appointment %s: %v", appointment.AppointmentID, err)
				continue
			}
		} else {
			log.Printf("Demo mode - reminder would be sent: %s", message)
		}

		if err := r.store.MarkReminderSent(appointment.AppointmentID); err != nil {
			log.Printf("Failed to mark reminder sent for appointment %s: %v", appointment.AppointmentID, err)
			continue
		}
		sentCount++
	}

	if sentCount > 0 {
		log.Printf("Sent %d appointment reminders", sentCount)
	}
}
