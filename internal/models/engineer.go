package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceEngineer struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name      string                           `gorm:"size:255;not null" json:"name" validate:"required,max=255"`
	Email     string                           `gorm:"size:255" json:"email" validate:"omitempty,email"`
	Phone     string                           `gorm:"size:32" json:"phone"`
	Expertise datatypes.JSONSlice[ServiceType] `json:"expertise" validate:"dive,oneof=demo_installation repair service calibration"`
}

func (e *ServiceEngineer) BeforeCreate(*gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	return nil
}

// Can: подходит ли инженер для данного вида работ.
func (e *ServiceEngineer) Can(t ServiceType) bool {
	for _, x := range e.Expertise {
		if x == t {
			return true
		}
	}
	return false
}
