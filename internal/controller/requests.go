// Package controller отвечает за проверки и оркестрацию поверх хранилищ: создание заявок,
// назначение инженеров, смена статуса, вложения, сводка для дашборда.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"amcdesk/internal/amc"
	"amcdesk/internal/logs"
	"amcdesk/internal/models"
	"amcdesk/internal/repo"
	"amcdesk/internal/storage"
)

type CreateRequest struct {
	OrganizationID    string             `json:"organization_id" validate:"required"`
	DeviceID          string             `json:"device_id" validate:"required"`
	ServiceType       models.ServiceType `json:"service_type" validate:"required,oneof=demo_installation repair service calibration"`
	Description       string             `json:"description" validate:"max=4000"`
	UserID            *string            `json:"user_id"`
	ServiceEngineerID *string            `json:"service_engineer_id"`
	ScheduledDate     *time.Time         `json:"scheduled_date"`
}

type UpdateRequest struct {
	ServiceType   models.ServiceType `json:"service_type" validate:"required,oneof=demo_installation repair service calibration"`
	Description   string             `json:"description" validate:"max=4000"`
	ScheduledDate *time.Time         `json:"scheduled_date"`
}

type Requests struct {
	stores   *repo.Stores
	uploader storage.Uploader
	clock    amc.Clock
	log      *logrus.Entry
}

func NewRequests(stores *repo.Stores, uploader storage.Uploader, clock amc.Clock) *Requests {
	return &Requests{stores: stores, uploader: uploader, clock: clock, log: logs.Component("controller.requests")}
}

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", repo.ErrInvalid, fmt.Sprintf(format, args...))
}

// Create проверяет ссылки и даты, затем сохраняет заявку с новым номером.
func (c *Requests) Create(ctx context.Context, in CreateRequest) (*models.ServiceRequest, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	org, err := c.stores.Organizations.Get(ctx, in.OrganizationID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, invalidf("organization %q does not exist", in.OrganizationID)
	}
	if err != nil {
		return nil, err
	}
	if org.Archived {
		return nil, invalidf("organization %q is archived", org.Name)
	}
	dev, err := c.stores.Devices.Get(ctx, in.DeviceID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, invalidf("device %q does not exist", in.DeviceID)
	}
	if err != nil {
		return nil, err
	}
	if dev.OrganizationID != org.ID {
		return nil, invalidf("device does not belong to the organization")
	}
	scheduled, err := c.scheduled(in.ScheduledDate)
	if err != nil {
		return nil, err
	}

	r := &models.ServiceRequest{
		OrganizationID: org.ID,
		DeviceID:       dev.ID,
		UserID:         in.UserID,
		ServiceType:    in.ServiceType,
		Description:    in.Description,
		ScheduledDate:  scheduled,
	}
	if in.ServiceEngineerID != nil && *in.ServiceEngineerID != "" {
		if _, err := c.assignable(ctx, *in.ServiceEngineerID, in.ServiceType); err != nil {
			return nil, err
		}
		r.ServiceEngineerID = in.ServiceEngineerID
	}
	if err := c.stores.Requests.Create(ctx, r); err != nil {
		return nil, err
	}
	return c.stores.Requests.Get(ctx, r.ID)
}

// scheduled: плановая дата не может быть раньше сегодняшнего дня.
func (c *Requests) scheduled(t *time.Time) (*time.Time, error) {
	if t == nil {
		return nil, nil
	}
	d := amc.DateOf(*t)
	if d.Before(c.clock.Today()) {
		return nil, invalidf("scheduled_date must not be in the past")
	}
	return &d, nil
}

func (c *Requests) assignable(ctx context.Context, engineerID string, t models.ServiceType) (*models.ServiceEngineer, error) {
	e, err := c.stores.Engineers.Get(ctx, engineerID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, invalidf("service engineer %q does not exist", engineerID)
	}
	if err != nil {
		return nil, err
	}
	if !e.Can(t) {
		return nil, invalidf("%s has no expertise in %s", e.Name, t)
	}
	return e, nil
}

func (c *Requests) Update(ctx context.Context, id string, in UpdateRequest) (*models.ServiceRequest, error) {
	if err := Validate(in); err != nil {
		return nil, err
	}
	cur, err := c.stores.Requests.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	scheduled := in.ScheduledDate
	// прошедшая плановая дата допустима, только если её не меняли
	if scheduled != nil && (cur.ScheduledDate == nil || !amc.DateOf(*scheduled).Equal(amc.DateOf(*cur.ScheduledDate))) {
		if scheduled, err = c.scheduled(scheduled); err != nil {
			return nil, err
		}
	}
	if cur.ServiceEngineerID != nil && in.ServiceType != cur.ServiceType {
		if _, err := c.assignable(ctx, *cur.ServiceEngineerID, in.ServiceType); err != nil {
			return nil, err
		}
	}
	return c.stores.Requests.Update(ctx, id, &models.ServiceRequest{
		ServiceType:   in.ServiceType,
		Description:   in.Description,
		ScheduledDate: scheduled,
	})
}

// Assign назначает инженера с подходящей экспертизой; пустой id снимает назначение.
func (c *Requests) Assign(ctx context.Context, id string, engineerID *string) (*models.ServiceRequest, error) {
	r, err := c.stores.Requests.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if engineerID == nil || *engineerID == "" {
		return c.stores.Requests.Assign(ctx, id, nil)
	}
	if r.Status != models.StatusPending {
		return nil, invalidf("request %s is %s and cannot be reassigned", r.TicketNo, r.Status)
	}
	if _, err := c.assignable(ctx, *engineerID, r.ServiceType); err != nil {
		return nil, err
	}
	updated, err := c.stores.Requests.Assign(ctx, id, engineerID)
	if err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{"ticket_no": r.TicketNo, "engineer_id": *engineerID}).Info("engineer assigned")
	return updated, nil
}

// Transition: pending → completed | cancelled; завершение проставляет completed_date.
func (c *Requests) Transition(ctx context.Context, id string, to models.RequestStatus) (*models.ServiceRequest, error) {
	if to != models.StatusCompleted && to != models.StatusCancelled {
		return nil, invalidf("status must be one of: completed, cancelled")
	}
	r, err := c.stores.Requests.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status != models.StatusPending {
		return nil, invalidf("request %s is already %s", r.TicketNo, r.Status)
	}
	var completed *time.Time
	if to == models.StatusCompleted {
		today := c.clock.Today()
		completed = &today
	}
	updated, err := c.stores.Requests.SetStatus(ctx, id, to, completed)
	if err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{"ticket_no": r.TicketNo, "status": to}).Info("request status changed")
	return updated, nil
}

// Attach проверяет файл, кладёт его в хранилище и сохраняет публичную ссылку в заявке.
func (c *Requests) Attach(ctx context.Context, id, filename, contentType string, size int64, body io.Reader) (*models.ServiceRequest, error) {
	if c.uploader == nil || !c.uploader.Enabled() {
		return nil, storage.ErrDisabled
	}
	if _, err := c.stores.Requests.Get(ctx, id); err != nil {
		return nil, err
	}
	ct, err := storage.ValidateAttachment(filename, contentType, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", repo.ErrInvalid, err)
	}
	key := storage.ObjectKey(id, filename)
	url, err := c.uploader.Put(ctx, key, ct, size, body)
	if err != nil {
		return nil, err
	}
	updated, err := c.stores.Requests.SetFile(ctx, id, url, filepath.Base(filename))
	if err != nil {
		// объект уже в хранилище, но ссылки на него нет
		c.log.WithError(err).WithFields(logrus.Fields{"request_id": id, "key": key}).Error("attachment uploaded but not saved, object is orphaned")
		return nil, err
	}
	return updated, nil
}
