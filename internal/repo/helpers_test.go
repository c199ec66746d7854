package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"amcdesk/internal/amc"
	"amcdesk/internal/db"
	"amcdesk/internal/models"
)

// testNow: "сейчас" для всех тестов хранилищ.
var testNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func testToday() time.Time { return amc.DateOf(testNow) }

// newTestStores поднимает отдельную in-memory sqlite базу на тест.
func newTestStores(t *testing.T) (*Stores, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	gdb, err := db.Open("sqlite", dsn)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return New(gdb, Options{Clock: amc.Fixed(testNow)}), gdb
}

func seedOrganization(t *testing.T, s *Stores, name string) *models.Organization {
	t.Helper()
	o := &models.Organization{Name: name, Email: uuid.NewString()[:8] + "@example.com"}
	require.NoError(t, s.Organizations.Create(context.Background(), o))
	return o
}

func seedDevice(t *testing.T, s *Stores, orgID, name string, amcEnd *time.Time) *models.Device {
	t.Helper()
	d, err := s.Devices.Create(context.Background(), &models.Device{
		OrganizationID: orgID,
		DeviceName:     name,
		AMCEndDate:     amcEnd,
	})
	require.NoError(t, err)
	return d
}

func seedRequest(t *testing.T, s *Stores, orgID, deviceID string) *models.ServiceRequest {
	t.Helper()
	r := &models.ServiceRequest{
		OrganizationID: orgID,
		DeviceID:       deviceID,
		ServiceType:    models.ServiceRepair,
		Description:    "does not power on",
	}
	require.NoError(t, s.Requests.Create(context.Background(), r))
	return r
}

func day(offset int) *time.Time {
	d := testToday().AddDate(0, 0, offset)
	return &d
}
