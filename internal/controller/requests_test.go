package controller

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"amcdesk/internal/amc"
	"amcdesk/internal/db"
	"amcdesk/internal/models"
	"amcdesk/internal/repo"
	"amcdesk/internal/storage"
)

var testNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

type fakeUploader struct {
	enabled bool
	keys    []string
	body    string
	onPut   func()
}

func (f *fakeUploader) Enabled() bool { return f.enabled }

func (f *fakeUploader) Put(_ context.Context, key, _ string, _ int64, body io.Reader) (string, error) {
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	f.keys = append(f.keys, key)
	f.body = string(b)
	if f.onPut != nil {
		f.onPut()
	}
	return "https://files.example.com/" + key, nil
}

type fixture struct {
	stores   *repo.Stores
	requests *Requests
	uploader *fakeUploader
	org      *models.Organization
	device   *models.Device
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb, err := db.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	clock := amc.Fixed(testNow)
	stores := repo.New(gdb, repo.Options{Clock: clock})
	f := &fixture{stores: stores, uploader: &fakeUploader{enabled: true}}
	f.requests = NewRequests(stores, f.uploader, clock)

	ctx := context.Background()
	f.org = &models.Organization{Name: "Acme", Email: "acme@example.com"}
	require.NoError(t, stores.Organizations.Create(ctx, f.org))
	f.device, err = stores.Devices.Create(ctx, &models.Device{OrganizationID: f.org.ID, DeviceName: "ECG-1"})
	require.NoError(t, err)
	return f
}

func (f *fixture) engineer(t *testing.T, name string, skills ...models.ServiceType) *models.ServiceEngineer {
	t.Helper()
	e := &models.ServiceEngineer{Name: name, Expertise: skills}
	require.NoError(t, f.stores.Engineers.Create(context.Background(), e))
	return e
}

func (f *fixture) create(t *testing.T) *models.ServiceRequest {
	t.Helper()
	r, err := f.requests.Create(context.Background(), CreateRequest{
		OrganizationID: f.org.ID,
		DeviceID:       f.device.ID,
		ServiceType:    models.ServiceRepair,
	})
	require.NoError(t, err)
	return r
}

func TestCreateRequest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tomorrow := testNow.Add(24 * time.Hour)
	r, err := f.requests.Create(ctx, CreateRequest{
		OrganizationID: f.org.ID,
		DeviceID:       f.device.ID,
		ServiceType:    models.ServiceCalibration,
		Description:    "yearly calibration",
		ScheduledDate:  &tomorrow,
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, r.Status)
	assert.Equal(t, "Acme", r.OrganizationName)
	assert.Equal(t, "ECG-1", r.DeviceName)
	require.NotNil(t, r.ScheduledDate)
	assert.True(t, r.ScheduledDate.Equal(amc.DateOf(tomorrow)))
	assert.True(t, strings.HasPrefix(r.TicketNo, "2026-03-10-"))
}

func TestCreateRequestValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	other := &models.Organization{Name: "Other", Email: "other@example.com"}
	require.NoError(t, f.stores.Organizations.Create(ctx, other))
	yesterday := testNow.Add(-24 * time.Hour)
	today := testNow

	cases := []struct {
		name string
		in   CreateRequest
		msg  string
	}{
		{"missing type", CreateRequest{OrganizationID: f.org.ID, DeviceID: f.device.ID}, "service_type is required"},
		{"bad type", CreateRequest{OrganizationID: f.org.ID, DeviceID: f.device.ID, ServiceType: "painting"}, "service_type must be one of"},
		{"unknown org", CreateRequest{OrganizationID: "nope", DeviceID: f.device.ID, ServiceType: models.ServiceRepair}, "does not exist"},
		{"foreign device", CreateRequest{OrganizationID: other.ID, DeviceID: f.device.ID, ServiceType: models.ServiceRepair}, "does not belong"},
		{"past date", CreateRequest{OrganizationID: f.org.ID, DeviceID: f.device.ID, ServiceType: models.ServiceRepair, ScheduledDate: &yesterday}, "must not be in the past"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := f.requests.Create(ctx, c.in)
			require.ErrorIs(t, err, repo.ErrInvalid)
			assert.Contains(t, err.Error(), c.msg)
		})
	}

	_, err := f.requests.Create(ctx, CreateRequest{OrganizationID: f.org.ID, DeviceID: f.device.ID, ServiceType: models.ServiceRepair, ScheduledDate: &today})
	assert.NoError(t, err, "today is not in the past")
}

func TestAssignChecksExpertise(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.create(t)
	installer := f.engineer(t, "Installer", models.ServiceDemoInstallation)
	fixer := f.engineer(t, "Fixer", models.ServiceRepair)

	_, err := f.requests.Assign(ctx, r.ID, &installer.ID)
	require.ErrorIs(t, err, repo.ErrInvalid)
	assert.Contains(t, err.Error(), "Installer has no expertise in repair")

	got, err := f.requests.Assign(ctx, r.ID, &fixer.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ServiceEngineerID)
	assert.Equal(t, "Fixer", got.EngineerName)

	got, err = f.requests.Assign(ctx, r.ID, nil)
	require.NoError(t, err)
	assert.Nil(t, got.ServiceEngineerID)
}

func TestUpdateKeepsEngineerEligible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.create(t)
	fixer := f.engineer(t, "Fixer", models.ServiceRepair)
	_, err := f.requests.Assign(ctx, r.ID, &fixer.ID)
	require.NoError(t, err)

	_, err = f.requests.Update(ctx, r.ID, UpdateRequest{ServiceType: models.ServiceCalibration})
	assert.ErrorIs(t, err, repo.ErrInvalid)

	got, err := f.requests.Update(ctx, r.ID, UpdateRequest{ServiceType: models.ServiceRepair, Description: "fan noise"})
	require.NoError(t, err)
	assert.Equal(t, "fan noise", got.Description)
}

func TestTransition(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.create(t)

	_, err := f.requests.Transition(ctx, r.ID, models.StatusPending)
	assert.ErrorIs(t, err, repo.ErrInvalid)

	got, err := f.requests.Transition(ctx, r.ID, models.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedDate)
	assert.True(t, got.CompletedDate.Equal(amc.DateOf(testNow)))

	_, err = f.requests.Transition(ctx, r.ID, models.StatusCancelled)
	assert.ErrorIs(t, err, repo.ErrInvalid, "terminal states do not change")

	r2 := f.create(t)
	got, err = f.requests.Transition(ctx, r2.ID, models.StatusCancelled)
	require.NoError(t, err)
	assert.Nil(t, got.CompletedDate)

	_, err = f.requests.Transition(ctx, "missing", models.StatusCompleted)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestAttach(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.create(t)

	got, err := f.requests.Attach(ctx, r.ID, "report.pdf", "application/pdf", 5, strings.NewReader("%PDF-"))
	require.NoError(t, err)
	require.Len(t, f.uploader.keys, 1)
	assert.True(t, strings.HasPrefix(f.uploader.keys[0], "service-requests/"+r.ID+"/"))
	assert.Equal(t, "https://files.example.com/"+f.uploader.keys[0], got.FileURL)
	assert.Equal(t, "report.pdf", got.FileName)
	assert.Equal(t, "%PDF-", f.uploader.body)

	_, err = f.requests.Attach(ctx, r.ID, "virus.exe", "application/x-msdownload", 5, strings.NewReader("MZ"))
	assert.ErrorIs(t, err, repo.ErrInvalid)
	assert.ErrorIs(t, err, storage.ErrForbidden)
	assert.EqualError(t, err, `invalid input: file type is not allowed: "application/x-msdownload"`)

	_, err = f.requests.Attach(ctx, r.ID, "scan.png", "image/png", storage.MaxAttachmentSize+1, strings.NewReader("x"))
	assert.ErrorIs(t, err, repo.ErrInvalid)
	assert.ErrorIs(t, err, storage.ErrTooLarge)

	f.uploader.enabled = false
	_, err = f.requests.Attach(ctx, r.ID, "report.pdf", "application/pdf", 5, strings.NewReader("%PDF-"))
	assert.ErrorIs(t, err, storage.ErrDisabled)
}

func TestAttachFailsWhenRequestIsGoneAfterUpload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.create(t)
	f.uploader.onPut = func() {
		require.NoError(t, f.stores.Requests.Delete(ctx, r.ID))
	}

	_, err := f.requests.Attach(ctx, r.ID, "report.pdf", "application/pdf", 5, strings.NewReader("%PDF-"))
	assert.ErrorIs(t, err, repo.ErrNotFound)
	assert.Len(t, f.uploader.keys, 1, "object was uploaded before the request disappeared")
}
