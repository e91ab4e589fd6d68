package storage

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mediconnect-health/mediconnect-backend/internal/models"
)

// MemoryStore holds all data in memory for testing and demo mode
type MemoryStore struct {
	patients     map[string]*models.Patient     // keyed by PatientID
	doctors      map[string]*models.Doctor      // keyed by DoctorID
	appointments map[string]*models.Appointment // keyed by AppointmentID

	// Mutexes for thread safety
	patientMu     sync.RWMutex
	doctorMu      sync.RWMutex
	appointmentMu sync.RWMutex

	// Counters for stable list ordering
	doctorCounter int
}

// NewMemoryStore creates a new in-memory storage
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		patients:     make(map[string]*models.Patient),
		doctors:      make(map[string]*models.Doctor),
		appointments: make(map[string]*models.Appointment),
	}
}

// Patient operations

func (m *MemoryStore) CreatePatient(patient *models.Patient) (*models.Patient, error) {
	m.patientMu.Lock()
	defer m.patientMu.Unlock()

	if patient.PatientID == "" {
		patient.PatientID = uuid.NewString()
	}
	if !strings.HasPrefix(patient.Phone, "+") {
		patient.Phone = "+" + patient.Phone
	}
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = time.Now()

	m.patients[patient.PatientID] = patient
	return patient, nil
}

func (m *MemoryStore) FindPatientByPhone(phone string) (*models.Patient, error) {
	m.patientMu.RLock()
	defer m.patientMu.RUnlock()

	for _, patient := range m.patients {
		if patient.Phone == phone {
			return patient, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) FindPatientByID(patientID string) (*models.Patient, error) {
	m.patientMu.RLock()
	defer m.patientMu.RUnlock()

	patient, exists := m.patients[patientID]
	if !exists {
		return nil, ErrNotFound
	}
	return patient, nil
}

// Doctor operations

func (m *MemoryStore) CreateDoctor(doctor *models.Doctor) (*models.Doctor, error) {
	m.doctorMu.Lock()
	defer m.doctorMu.Unlock()

	m.doctorCounter++
	if doctor.DoctorID == "" {
		doctor.DoctorID = fmt.Sprintf("DOC%05d", m.doctorCounter)
	}
	doctor.ID = uint(m.doctorCounter)
	doctor.IsActive = true
	doctor.CreatedAt = time.Now()
	doctor.UpdatedAt = time.Now()

	m.doctors[doctor.DoctorID] = doctor
	return doctor, nil
}

func (m *MemoryStore) ListDoctors(limit int) ([]*models.Doctor, error) {
	m.doctorMu.RLock()
	defer m.doctorMu.RUnlock()

	var doctors []*models.Doctor
	for _, doctor := range m.doctors {
		if doctor.IsActive {
			doctors = append(doctors, doctor)
		}
	}

	// Map iteration order is random; menu rendering needs a stable order
	sort.Slice(doctors, func(i, j int) bool {
		return doctors[i].ID < doctors[j].ID
	})

	if limit > 0 && len(doctors) > limit {
		doctors = doctors[:limit]
	}
	return doctors, nil
}

// Appointment operations

func (m *MemoryStore) CreateAppointment(appointment *models.Appointment) (*models.Appointment, error) {
	m.appointmentMu.Lock()
	defer m.appointmentMu.Unlock()

	if appointment.AppointmentID == "" {
		appointment.AppointmentID = uuid.NewString()
	}
	if appointment.Status == "" {
		appointment.Status = models.AppointmentStatusPending
	}
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = time.Now()

	m.appointments[appointment.AppointmentID] = appointment
	return appointment, nil
}

func (m *MemoryStore) GetAppointment(appointmentID string) (*models.Appointment, error) {
	m.appointmentMu.RLock()
	defer m.appointmentMu.RUnlock()

	appointment, exists := m.appointments[appointmentID]
	if !exists {
		return nil, ErrNotFound
	}
	return appointment, nil
}

func (m *MemoryStore) GetAppointmentsByPatient(patientID string, limit int) ([]*models.Appointment, error) {
	m.appointmentMu.RLock()
	defer m.appointmentMu.RUnlock()

	var results []*models.Appointment
	for _, appointment := range m.appointments {
		if appointment.PatientID == patientID {
			results = append(results, appointment)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].AppointmentDate.Before(results[j].AppointmentDate)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemoryStore) GetPendingAppointmentsByPatient(patientID string, limit int) ([]*models.Appointment, error) {
	m.appointmentMu.RLock()
	defer m.appointmentMu.RUnlock()

	var results []*models.Appointment
	for _, appointment := range m.appointments {
		if appointment.PatientID == patientID && appointment.Status == models.AppointmentStatusPending {
			results = append(results, appointment)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].AppointmentDate.Before(results[j].AppointmentDate)
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (m *MemoryStore) UpdateAppointmentStatus(appointmentID string, status string) error {
	m.appointmentMu.Lock()
	defer m.appointmentMu.Unlock()

	appointment, exists := m.appointments[appointmentID]
	if !exists {
		return ErrNotFound
	}

	appointment.Status = status
	appointment.UpdatedAt = time.Now()
	return nil
}

// Reminder operations

func (m *MemoryStore) GetAppointmentsDueForReminder(within time.Duration) ([]*models.Appointment, error) {
	m.appointmentMu.RLock()
	defer m.appointmentMu.RUnlock()

	now := time.Now()
	cutoff := now.Add(within)

	var results []*models.Appointment
	for _, appointment := range m.appointments {
		if appointment.Status != models.AppointmentStatusPending &&
			appointment.Status != models.AppointmentStatusConfirmed {
			continue
		}
		if appointment.ReminderSentAt != nil {
			continue
		}
		if appointment.AppointmentDate.After(now) && appointment.AppointmentDate.Before(cutoff) {
			results = append(results, appointment)
		}
	}
	return results, nil
}

func (m *MemoryStore) MarkReminderSent(appointmentID string) error {
	m.appointmentMu.Lock()
	defer m.appointmentMu.Unlock()

	appointment, exists := m.appointments[appointmentID]
	if !exists {
		return ErrNotFound
	}

	now := time.Now()
	appointment.ReminderSentAt = &now
	appointment.UpdatedAt = now
	return nil
}
