package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type User struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Email        string   `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FullName     string   `gorm:"size:255" json:"full_name"`
	Phone        string   `gorm:"size:32" json:"phone"`
	UserType     UserType `gorm:"size:16;not null;default:user" json:"user_type"`
	PasswordHash string   `gorm:"size:255" json:"-"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// OrganizationUser: строка членства (роль + доступ к устройствам).
// UserID пуст, пока приглашение по Email не принято.
type OrganizationUser struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	OrganizationID string                      `gorm:"size:36;not null;uniqueIndex:uniq_org_member,priority:1" json:"organization_id"`
	Email          string                      `gorm:"size:255;not null;uniqueIndex:uniq_org_member,priority:2" json:"email"`
	UserID         *string                     `gorm:"size:36;index" json:"user_id,omitempty"`
	Role           MemberRole                  `gorm:"size:16;not null" json:"role"`
	DeviceAccess   DeviceAccess                `gorm:"size:16;not null;default:all" json:"device_access"`
	DeviceIDs      datatypes.JSONSlice[string] `json:"device_ids"`

	FullName string `gorm:"-" json:"full_name,omitempty"`
}

func (m *OrganizationUser) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Pending: приглашение ещё не привязано к учётной записи.
func (m *OrganizationUser) Pending() bool { return m.UserID == nil }
