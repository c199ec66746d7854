package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"amcdesk/internal/amc"
	"amcdesk/internal/listing"
	"amcdesk/internal/models"
	"amcdesk/internal/ticket"
)

func TestServiceRequestTicketsAreSequentialPerDay(t *testing.T) {
	s, _ := newTestStores(t)
	a := seedOrganization(t, s, "A")
	b := seedOrganization(t, s, "B")
	da := seedDevice(t, s, a.ID, "da", nil)
	db := seedDevice(t, s, b.ID, "db", nil)

	r1 := seedRequest(t, s, a.ID, da.ID)
	r2 := seedRequest(t, s, b.ID, db.ID)
	assert.NotEqual(t, r1.TicketNo, r2.TicketNo)

	p1, err := ticket.Parse(r1.TicketNo)
	require.NoError(t, err)
	p2, err := ticket.Parse(r2.TicketNo)
	require.NoError(t, err)
	assert.Equal(t, 1, p1.Sequence)
	assert.Equal(t, 2, p2.Sequence)
	assert.Equal(t, "2026-03-10", p1.Day.Format("2006-01-02"))
	assert.Equal(t, ticket.Format(testToday(), a.ID, da.ID, 1), r1.TicketNo)

	assert.Equal(t, models.StatusPending, r1.Status)
	assert.True(t, r1.RequestedDate.Equal(testToday()))
}

func TestServiceRequestTicketCollisionIsRetried(t *testing.T) {
	s, _ := newTestStores(t)
	ctx := context.Background()
	org := seedOrganization(t, s, "A")
	dev := seedDevice(t, s, org.ID, "d", nil)

	first := seedRequest(t, s, org.ID, dev.ID)
	second := seedRequest(t, s, org.ID, dev.ID)
	require.NoError(t, s.Requests.Delete(ctx, first.ID))

	// за день осталась одна заявка, поэтому следующий номер совпадает с существующим 0002
	third := seedRequest(t, s, org.ID, dev.ID)
	assert.NotEqual(t, second.TicketNo, third.TicketNo)
	p, err := ticket.Parse(third.TicketNo)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Sequence)
}

func TestServiceRequestTicketSkipsNumbersFreedByDeletes(t *testing.T) {
	s, _ := newTestStores(t)
	ctx := context.Background()
	org := seedOrganization(t, s, "A")
	dev := seedDevice(t, s, org.ID, "d", nil)

	var rows []*models.ServiceRequest
	for i := 0; i < 10; i++ {
		rows = append(rows, seedRequest(t, s, org.ID, dev.ID))
	}
	// 0001-0005 удалены, 0006-0010 заняты: за день 5 заявок, но номер 0006 уже выдан
	for _, r := range rows[:5] {
		require.NoError(t, s.Requests.Delete(ctx, r.ID))
	}

	next := seedRequest(t, s, org.ID, dev.ID)
	assert.Equal(t, ticket.Format(testToday(), org.ID, dev.ID, 11), next.TicketNo)
}

func TestServiceRequestCreateClearsTicketOnFailure(t *testing.T) {
	s, gdb := newTestStores(t)
	ctx := context.Background()
	org := seedOrganization(t, s, "A")
	dev := seedDevice(t, s, org.ID, "d", nil)

	// каждая вставка упирается в уникальный индекс
	require.NoError(t, gdb.Callback().Create().Before("gorm:create").Register("test:duplicate", func(tx *gorm.DB) {
		_ = tx.AddError(gorm.ErrDuplicatedKey)
	}))

	r := &models.ServiceRequest{OrganizationID: org.ID, DeviceID: dev.ID, ServiceType: models.ServiceRepair}
	err := s.Requests.Create(ctx, r)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Empty(t, r.TicketNo)
}

func TestServiceRequestTicketCountResetsNextDay(t *testing.T) {
	s, gdb := newTestStores(t)
	ctx := context.Background()
	org := seedOrganization(t, s, "A")
	dev := seedDevice(t, s, org.ID, "d", nil)
	seedRequest(t, s, org.ID, dev.ID)
	seedRequest(t, s, org.ID, dev.ID)

	tomorrow := New(gdb, Options{Clock: amc.Fixed(testNow.Add(24 * time.Hour))})
	r := &models.ServiceRequest{OrganizationID: org.ID, DeviceID: dev.ID, ServiceType: models.ServiceCalibration}
	require.NoError(t, tomorrow.Requests.Create(ctx, r))
	p, err := ticket.Parse(r.TicketNo)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Sequence)
	assert.Equal(t, "2026-03-11", p.Day.Format("2006-01-02"))
}

func TestServiceRequestListDenormalizesNames(t *testing.T) {
	s, _ := newTestStores(t)
	ctx := context.Background()
	org := seedOrganization(t, s, "City Hospital")
	dev := seedDevice(t, s, org.ID, "MRI-1", nil)
	r := seedRequest(t, s, org.ID, dev.ID)

	eng := &models.ServiceEngineer{Name: "Ravi", Expertise: []models.ServiceType{models.ServiceRepair}}
	require.NoError(t, s.Engineers.Create(ctx, eng))
	_, err := s.Requests.Assign(ctx, r.ID, &eng.ID)
	require.NoError(t, err)

	env, err := s.Requests.List(ctx, ServiceRequestFilter{Search: r.TicketNo[:10]}, listing.Page{})
	require.NoError(t, err)
	require.Len(t, env.Data, 1)
	got := env.Data[0]
	assert.Equal(t, "City Hospital", got.OrganizationName)
	assert.Equal(t, "MRI-1", got.DeviceName)
	assert.Equal(t, "Ravi", got.EngineerName)

	byTicket, err := s.Requests.GetByTicket(ctx, r.TicketNo)
	require.NoError(t, err)
	assert.Equal(t, r.ID, byTicket.ID)
	assert.Equal(t, "MRI-1", byTicket.DeviceName)
}

func TestServiceRequestStatusAndCounts(t *testing.T) {
	s, _ := newTestStores(t)
	ctx := context.Background()
	org := seedOrganization(t, s, "A")
	dev := seedDevice(t, s, org.ID, "d", nil)
	r1 := seedRequest(t, s, org.ID, dev.ID)
	seedRequest(t, s, org.ID, dev.ID)

	done := testToday()
	got, err := s.Requests.SetStatus(ctx, r1.ID, models.StatusCompleted, &done)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedDate)

	byStatus, err := s.Requests.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[models.RequestStatus]int64{
		models.StatusPending: 1, models.StatusCompleted: 1, models.StatusCancelled: 0,
	}, byStatus)

	byType, err := s.Requests.CountByType(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), byType[models.ServiceRepair])
	assert.Equal(t, int64(0), byType[models.ServiceCalibration])

	env, err := s.Requests.List(ctx, ServiceRequestFilter{Status: models.StatusPending}, listing.Page{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), env.TotalCount)

	_, err = s.Requests.SetStatus(ctx, "missing", models.StatusCancelled, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
