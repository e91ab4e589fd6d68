package models

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Doctor represents a doctor available for USSD bookings
type Doctor struct {
	gorm.Model

	DoctorID       string `json:"doctor_id" gorm:"uniqueIndex"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Specialization string `json:"specialization"`
	IsActive       bool   `json:"is_active" gorm:"default:true"`
}

// BeforeCreate hook to auto-generate DoctorID
func (d *Doctor) BeforeCreate(tx *gorm.DB) error {
	if d.DoctorID == "" {
		d.DoctorID = uuid.NewString()
	}
	return nil
}

// DisplayName returns the doctor's name as shown in USSD menus
func (d *Doctor) DisplayName() string {
	return fmt.Sprintf("Dr. %s %s", d.FirstName, d.LastName)
}
