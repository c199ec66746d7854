package controller

import (
	"context"

	"amcdesk/internal/amc"
	"amcdesk/internal/listing"
	"amcdesk/internal/models"
	"amcdesk/internal/repo"
)

// Stats: сводка для главной страницы. Все статусы AMC считаются одним и тем же amc.Classify/amc.Window.
type Stats struct {
	Today            string                         `json:"today"`
	Organizations    int64                          `json:"organizations"`
	Devices          int64                          `json:"devices"`
	Engineers        int                            `json:"engineers"`
	AMC              map[amc.Status]int64           `json:"amc"`
	RequestsByStatus map[models.RequestStatus]int64 `json:"requests_by_status"`
	RequestsByType   map[models.ServiceType]int64   `json:"requests_by_type"`
	RecentRequests   []models.ServiceRequest        `json:"recent_requests"`
	ExpiringSoon     []models.Device                `json:"expiring_soon"`
}

type Dashboard struct {
	stores *repo.Stores
	recent int
}

func NewDashboard(stores *repo.Stores) *Dashboard {
	return &Dashboard{stores: stores, recent: 5}
}

func (d *Dashboard) Stats(ctx context.Context) (*Stats, error) {
	var (
		s   = Stats{Today: d.stores.Devices.Today().Format("2006-01-02")}
		err error
	)
	if s.Organizations, err = d.stores.Organizations.Count(ctx, repo.OrganizationFilter{}); err != nil {
		return nil, err
	}
	if s.Devices, err = d.stores.Devices.Count(ctx, repo.DeviceFilter{}); err != nil {
		return nil, err
	}
	engineers, err := d.stores.Engineers.List(ctx, "", "")
	if err != nil {
		return nil, err
	}
	s.Engineers = len(engineers)
	if s.AMC, err = d.stores.Devices.CountAMC(ctx, ""); err != nil {
		return nil, err
	}
	if s.RequestsByStatus, err = d.stores.Requests.CountByStatus(ctx); err != nil {
		return nil, err
	}
	if s.RequestsByType, err = d.stores.Requests.CountByType(ctx); err != nil {
		return nil, err
	}
	if s.RecentRequests, err = d.stores.Requests.Recent(ctx, d.recent); err != nil {
		return nil, err
	}
	if s.ExpiringSoon, err = d.Expiring(ctx, 10); err != nil {
		return nil, err
	}
	return &s, nil
}

// Expiring: устройства с AMC, истекающим в ближайшие amc.ExpiringWindowDays дней, ближайшие первыми.
func (d *Dashboard) Expiring(ctx context.Context, limit int) ([]models.Device, error) {
	env, err := d.stores.Devices.ListAMC(ctx, repo.DeviceFilter{AMCStatus: amc.ExpiringSoon}, listing.Page{Page: 1, PageSize: limit})
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}
