package storage

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mediconnect-health/mediconnect-backend/internal/models"
)

// DatabaseStore implements Store backed by PostgreSQL via GORM
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a new database-backed storage
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Patient operations

func (d *DatabaseStore) CreatePatient(patient *models.Patient) (*models.Patient, error) {
	if err := d.db.Create(patient).Error; err != nil {
		return nil, err
	}
	return patient, nil
}

func (d *DatabaseStore) FindPatientByPhone(phone string) (*models.Patient, error) {
	var patient models.Patient
	err := d.db.Where("phone = ?", phone).First(&patient).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

func (d *DatabaseStore) FindPatientByID(patientID string) (*models.Patient, error) {
	var patient models.Patient
	err := d.db.Where("patient_id = ?", patientID).First(&patient).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &patient, nil
}

// Doctor operations

func (d *DatabaseStore) CreateDoctor(doctor *models.Doctor) (*models.Doctor, error) {
	if err := d.db.Create(doctor).Error; err != nil {
		return nil, err
	}
	return doctor, nil
}

func (d *DatabaseStore) ListDoctors(limit int) ([]*models.Doctor, error) {
	var doctors []*models.Doctor
	err := d.db.Where("is_active = ?", true).
		Order("id asc").
		Limit(limit).
		Find(&doctors).Error
	if err != nil {
		return nil, err
	}
	return doctors, nil
}

// Appointment operations

func (d *DatabaseStore) CreateAppointment(appointment *models.Appointment) (*models.Appointment, error) {
	if err := d.db.Create(appointment).Error; err != nil {
		return nil, err
	}
	return appointment, nil
}

func (d *DatabaseStore) GetAppointment(appointmentID string) (*models.Appointment, error) {
	var appointment models.Appointment
	err := d.db.Where("appointment_id = ?", appointmentID).First(&appointment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &appointment, nil
}

func (d *DatabaseStore) GetAppointmentsByPatient(patientID string, limit int) ([]*models.Appointment, error) {
	var appointments []*models.Appointment
	err := d.db.Where("patient_id = ?", patientID).
		Order("appointment_date asc").
		Limit(limit).
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (d *DatabaseStore) GetPendingAppointmentsByPatient(patientID string, limit int) ([]*models.Appointment, error) {
	var appointments []*models.Appointment
	err := d.db.Where("patient_id = ? AND status = ?", patientID, models.AppointmentStatusPending).
		Order("appointment_date asc").
		Limit(limit).
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (d *DatabaseStore) UpdateAppointmentStatus(appointmentID string, status string) error {
	result := d.db.Model(&models.Appointment{}).
		Where("appointment_id = ?", appointmentID).
		Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Reminder operations

func (d *DatabaseStore) GetAppointmentsDueForReminder(within time.Duration) ([]*models.Appointment, error) {
	now := time.Now()
	var appointments []*models.Appointment
	err := d.db.Where("status IN ?", []string{models.AppointmentStatusPending, models.AppointmentStatusConfirmed}).
		Where("reminder_sent_at IS NULL").
		Where("appointment_date > ? AND appointment_date < ?", now, now.Add(within)).
		Find(&appointments).Error
	if err != nil {
		return nil, err
	}
	return appointments, nil
}

func (d *DatabaseStore) MarkReminderSent(appointmentID string) error {
	result := d.db.Model(&models.Appointment{}).
		Where("appointment_id = ?", appointmentID).
		Update("reminder_sent_at", time.Now())
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
