package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amcdesk/internal/models"
	"amcdesk/internal/repo"
)

func TestValidateMessages(t *testing.T) {
	err := Validate(models.Organization{Name: "Acme"})
	require.ErrorIs(t, err, repo.ErrInvalid)
	assert.Contains(t, err.Error(), "email is required")

	err = Validate(models.Organization{Name: "Acme", Email: "not-an-email"})
	assert.Contains(t, err.Error(), "email must be a valid email address")

	err = Validate(models.ServiceEngineer{Name: "E", Expertise: []models.ServiceType{"welding"}})
	require.ErrorIs(t, err, repo.ErrInvalid)
	assert.Contains(t, err.Error(), "must be one of: demo_installation, repair, service, calibration")

	assert.NoError(t, Validate(models.Organization{Name: "Acme", Email: "a@example.com"}))
	assert.NoError(t, Validate(models.Device{OrganizationID: "o", DeviceName: "d"}))
}
