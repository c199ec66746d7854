package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Organization: клиент (владелец устройств).
type Organization struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name          string `gorm:"size:255;not null" json:"name" validate:"required,max=255"`
	Email         string `gorm:"uniqueIndex;size:255;not null" json:"email" validate:"required,email"`
	Phone         string `gorm:"size:32" json:"phone"`
	ContactPerson string `gorm:"size:255" json:"contact_person"`
	Address       string `gorm:"size:512" json:"address"`
	City          string `gorm:"size:128" json:"city"`
	State         string `gorm:"size:128" json:"state"`
	Pincode       string `gorm:"size:16" json:"pincode"`
	GSTNumber     string `gorm:"column:gst_number;size:32" json:"gst_number"`
	PANNumber     string `gorm:"column:pan_number;size:16" json:"pan_number"`
	Archived      bool   `gorm:"not null;default:false;index" json:"archived"`
}

func (o *Organization) BeforeCreate(*gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}
