//go:build integration

package repo

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"amcdesk/internal/amc"
	"amcdesk/internal/db"
	"amcdesk/internal/listing"
	"amcdesk/internal/models"
	"amcdesk/internal/ticket"
)

// Запуск: go test -tags integration ./internal/repo/... (нужен Docker).
func newPostgresStores(t *testing.T) (*Stores, *gorm.DB) {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "amcdesk",
			"POSTGRES_PASSWORD": "amcdesk",
			"POSTGRES_DB":       "amcdesk",
		},
		// первый раз сообщение пишет временный сервер initdb
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(90 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://amcdesk:amcdesk@%s:%s/amcdesk?sslmode=disable", host, port.Port())
	gdb, err := db.Open("postgres", dsn)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	return New(gdb, Options{Clock: amc.Fixed(testNow)}), gdb
}

func TestPostgresStores(t *testing.T) {
	ctx := context.Background()
	s, _ := newPostgresStores(t)

	org := seedOrganization(t, s, "Acme Hospital")
	dup := &models.Organization{Name: "Other", Email: strings.ToUpper(org.Email)}
	err := s.Organizations.Create(ctx, dup)
	assert.ErrorIs(t, err, ErrConflict)

	soon := testToday().AddDate(0, 0, 7)
	expired := testToday().AddDate(0, 0, -1)
	d1 := seedDevice(t, s, org.ID, "ECG-100%", &soon)
	seedDevice(t, s, org.ID, "MRI", &expired)
	seedDevice(t, s, org.ID, "Pump", nil)

	env, err := s.Devices.List(ctx, DeviceFilter{Search: "100%"}, listing.Page{})
	require.NoError(t, err)
	require.Len(t, env.Data, 1)
	assert.Equal(t, d1.ID, env.Data[0].ID)
	assert.Equal(t, "Acme Hospital", env.Data[0].OrganizationName)

	counts, err := s.Devices.CountAMC(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[amc.ExpiringSoon])
	assert.Equal(t, int64(1), counts[amc.Expired])
	assert.Equal(t, int64(1), counts[amc.NoAMC])

	r1 := seedRequest(t, s, org.ID, d1.ID)
	r2 := seedRequest(t, s, org.ID, d1.ID)
	assert.Equal(t, ticket.Format(testToday(), org.ID, d1.ID, 1), r1.TicketNo)
	assert.Equal(t, ticket.Format(testToday(), org.ID, d1.ID, 2), r2.TicketNo)

	require.NoError(t, s.Organizations.Delete(ctx, org.ID))
	_, err = s.Requests.Get(ctx, r1.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
