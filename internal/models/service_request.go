package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ServiceRequest: заявка на обслуживание устройства.
type ServiceRequest struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	TicketNo          string        `gorm:"uniqueIndex;size:64;not null" json:"ticket_no"`
	OrganizationID    string        `gorm:"size:36;not null;index" json:"organization_id"`
	DeviceID          string        `gorm:"size:36;not null;index" json:"device_id"`
	UserID            *string       `gorm:"size:36;index" json:"user_id,omitempty"`
	ServiceType       ServiceType   `gorm:"size:32;not null;index" json:"service_type"`
	Status            RequestStatus `gorm:"size:32;not null;default:pending;index" json:"status"`
	ServiceEngineerID *string       `gorm:"size:36;index" json:"service_engineer_id,omitempty"`
	Description       string        `gorm:"type:text" json:"description"`

	RequestedDate time.Time  `json:"requested_date"`
	ScheduledDate *time.Time `json:"scheduled_date,omitempty"`
	CompletedDate *time.Time `json:"completed_date,omitempty"`

	FileURL  string `gorm:"size:1024" json:"file_url,omitempty"`
	FileName string `gorm:"size:255" json:"file_name,omitempty"`

	// денормализованные имена, заполняются вторым проходом по справочникам
	OrganizationName string `gorm:"-" json:"organization_name,omitempty"`
	DeviceName       string `gorm:"-" json:"device_name,omitempty"`
	EngineerName     string `gorm:"-" json:"service_engineer_name,omitempty"`
}

func (r *ServiceRequest) BeforeCreate(*gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	return nil
}
