package models

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Patient represents a registered patient in the system
type Patient struct {
	gorm.Model

	PatientID string `json:"patient_id" gorm:"uniqueIndex"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone" gorm:"uniqueIndex"` // Telco-format number, used as the USSD lookup key
}

// BeforeCreate hook to auto-generate PatientID and normalize data
func (p *Patient) BeforeCreate(tx *gorm.DB) error {
	if p.PatientID == "" {
		p.PatientID = uuid.NewString()
	}

	// Normalize phone number (ensure it starts with +)
	if !strings.HasPrefix(p.Phone, "+") {
		p.Phone = "+" + p.Phone
	}

	return nil
}

// FullName returns the patient's display name
func (p *Patient) FullName() string {
	return strings.TrimSpace(p.FirstName + " " + p.LastName)
}
