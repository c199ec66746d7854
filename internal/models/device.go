package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"amcdesk/internal/amc"
)

// Device: устройство организации с периодами гарантии и AMC.
// Даты хранятся как полночь UTC календарного дня (см. amc.DateOf).
type Device struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrganizationID string `gorm:"size:36;not null;index" json:"organization_id" validate:"required"`
	DeviceName     string `gorm:"size:255;not null" json:"device_name" validate:"required,max=255"`
	Model          string `gorm:"size:255" json:"model"`
	SerialNumber   string `gorm:"size:128" json:"serial_number"`
	MACAddress     string `gorm:"column:mac_address;size:64" json:"mac_address"`
	AMCID          string `gorm:"column:amc_id;size:128" json:"amc_id"`
	Location       string `gorm:"size:255" json:"location"`

	PurchaseDate    *time.Time `json:"purchase_date"`
	WarrantyEndDate *time.Time `json:"warranty_end_date"`
	AMCStartDate    *time.Time `gorm:"column:amc_start_date" json:"amc_start_date"`
	AMCEndDate      *time.Time `gorm:"column:amc_end_date;index" json:"amc_end_date"`

	Archived bool `gorm:"not null;default:false;index" json:"archived"`

	// заполняется JOIN-ом с organizations
	OrganizationName string `gorm:"->;-:migration" json:"organization_name,omitempty"`

	// производные, не хранятся
	AMC      *amc.Result `gorm:"-" json:"amc,omitempty"`
	Warranty *amc.Result `gorm:"-" json:"warranty,omitempty"`
}

func (d *Device) BeforeCreate(*gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}

// Derive пересчитывает статусы AMC и гарантии на заданный день.
func (d *Device) Derive(today time.Time) {
	a := amc.Classify(d.AMCEndDate, today)
	w := amc.Classify(d.WarrantyEndDate, today)
	d.AMC, d.Warranty = &a, &w
}
