package repo

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"amcdesk/internal/amc"
	"amcdesk/internal/listing"
	"amcdesk/internal/logs"
	"amcdesk/internal/models"
)

var deviceSearchColumns = []string{"devices.device_name", "devices.amc_id", "devices.mac_address", "devices.serial_number"}

var deviceEditable = []string{
	"organization_id", "device_name", "model", "serial_number", "mac_address", "amc_id", "location",
	"purchase_date", "warranty_end_date", "amc_start_date", "amc_end_date",
}

type DeviceFilter struct {
	Search         string
	OrganizationID string
	DeviceName     string
	Model          string
	MACAddress     string
	SerialNumber   string
	AMCID          string
	Visibility     listing.Visibility
	AMCStatus      amc.Status // пусто: без фильтра по AMC
}

type DeviceStore struct {
	db   *gorm.DB
	opts Options
	log  *logrus.Entry
}

func NewDeviceStore(db *gorm.DB, opts Options) *DeviceStore {
	return &DeviceStore{db: db, opts: opts.withDefaults(), log: logs.Component("repo.devices")}
}

// Today: "сегодня" по часам хранилища.
func (s *DeviceStore) Today() time.Time { return s.opts.Clock.Today() }

func (s *DeviceStore) filter(f DeviceFilter, today time.Time) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		return q.Scopes(
			listing.Search(f.Search, deviceSearchColumns...),
			listing.Equals("devices.organization_id", f.OrganizationID),
			listing.Contains("devices.device_name", f.DeviceName),
			listing.Contains("devices.model", f.Model),
			listing.Contains("devices.mac_address", f.MACAddress),
			listing.Contains("devices.serial_number", f.SerialNumber),
			listing.Contains("devices.amc_id", f.AMCID),
			listing.Archived("devices.archived", f.Visibility),
			amcWindow("devices.amc_end_date", f.AMCStatus, today),
		)
	}
}

// amcWindow: SQL-эквивалент amc.Classify для вкладок AMC.
func amcWindow(column string, st amc.Status, today time.Time) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		if st == "" {
			return q
		}
		if st == amc.NoAMC {
			return q.Where(column + " IS NULL")
		}
		from, to := amc.Window(st, today)
		if !from.IsZero() {
			q = q.Where(column+" >= ?", from)
		}
		if !to.IsZero() {
			q = q.Where(column+" < ?", to)
		}
		return q
	}
}

func (s *DeviceStore) withOrganization(q *gorm.DB) *gorm.DB {
	return q.Select("devices.*, organizations.name AS organization_name").
		Joins("LEFT JOIN organizations ON organizations.id = devices.organization_id")
}

func (s *DeviceStore) list(ctx context.Context, f DeviceFilter, p listing.Page, order string) (listing.Envelope[models.Device], error) {
	p = s.opts.page(p)
	today := s.Today()

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Device{}).Scopes(s.filter(f, today)).Count(&total).Error; err != nil {
		return listing.Envelope[models.Device]{}, translate(err, "devices")
	}
	var rows []models.Device
	err := s.db.WithContext(ctx).Model(&models.Device{}).
		Scopes(s.withOrganization, s.filter(f, today), listing.Paginate(p)).
		Order(order).
		Find(&rows).Error
	if err != nil {
		return listing.Envelope[models.Device]{}, translate(err, "devices")
	}
	for i := range rows {
		rows[i].Derive(today)
	}
	return listing.NewEnvelope(rows, total, p), nil
}

// List: новые сверху.
func (s *DeviceStore) List(ctx context.Context, f DeviceFilter, p listing.Page) (listing.Envelope[models.Device], error) {
	return s.list(ctx, f, p, "devices.created_at desc, devices.id asc")
}

// ListAMC обслуживает вкладки AMC, ближайшее окончание сверху. Без статуса показываются все устройства с AMC.
func (s *DeviceStore) ListAMC(ctx context.Context, f DeviceFilter, p listing.Page) (listing.Envelope[models.Device], error) {
	if f.AMCStatus == "" {
		return s.list(ctx, f, p, "CASE WHEN devices.amc_end_date IS NULL THEN 1 ELSE 0 END, devices.amc_end_date asc, devices.created_at desc")
	}
	return s.list(ctx, f, p, "devices.amc_end_date asc, devices.created_at desc")
}

func (s *DeviceStore) Export(ctx context.Context, f DeviceFilter) ([]models.Device, error) {
	today := s.Today()
	var rows []models.Device
	err := s.db.WithContext(ctx).Model(&models.Device{}).
		Scopes(s.withOrganization, s.filter(f, today)).
		Order("devices.created_at desc, devices.id asc").
		Limit(s.opts.ExportLimit).
		Find(&rows).Error
	if err != nil {
		return nil, translate(err, "devices")
	}
	for i := range rows {
		rows[i].Derive(today)
	}
	return rows, nil
}

// CountAMC: количество неархивных устройств по статусам AMC на сегодня.
func (s *DeviceStore) CountAMC(ctx context.Context, organizationID string) (map[amc.Status]int64, error) {
	today := s.Today()
	out := make(map[amc.Status]int64, len(amc.Statuses))
	for _, st := range amc.Statuses {
		var n int64
		err := s.db.WithContext(ctx).Model(&models.Device{}).
			Scopes(s.filter(DeviceFilter{OrganizationID: organizationID, AMCStatus: st}, today)).
			Count(&n).Error
		if err != nil {
			return nil, translate(err, "devices")
		}
		out[st] = n
	}
	return out, nil
}

func (s *DeviceStore) Count(ctx context.Context, f DeviceFilter) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Device{}).Scopes(s.filter(f, s.Today())).Count(&n).Error
	return n, translate(err, "devices")
}

func (s *DeviceStore) Get(ctx context.Context, id string) (*models.Device, error) {
	var d models.Device
	err := s.db.WithContext(ctx).Model(&models.Device{}).
		Scopes(s.withOrganization).
		Where("devices.id = ?", id).
		First(&d).Error
	if err != nil {
		return nil, translate(err, "device")
	}
	d.Derive(s.Today())
	return &d, nil
}

func (s *DeviceStore) Create(ctx context.Context, d *models.Device) (*models.Device, error) {
	if err := s.prepare(ctx, d); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Create(d).Error; err != nil {
		return nil, translate(err, "device")
	}
	s.log.WithFields(logrus.Fields{"id": d.ID, "organization_id": d.OrganizationID}).Info("device created")
	return s.Get(ctx, d.ID)
}

func (s *DeviceStore) Update(ctx context.Context, id string, d *models.Device) (*models.Device, error) {
	if err := s.prepare(ctx, d); err != nil {
		return nil, err
	}
	res := s.db.WithContext(ctx).Model(&models.Device{}).
		Where("id = ?", id).
		Select(deviceEditable).
		Updates(d)
	if res.Error != nil {
		return nil, translate(res.Error, "device")
	}
	if res.RowsAffected == 0 {
		return nil, translate(gorm.ErrRecordNotFound, "device")
	}
	return s.Get(ctx, id)
}

// prepare нормализует даты и проверяет ссылки перед записью.
func (s *DeviceStore) prepare(ctx context.Context, d *models.Device) error {
	d.DeviceName = strings.TrimSpace(d.DeviceName)
	if d.DeviceName == "" {
		return invalid("device_name is required")
	}
	for _, p := range []**time.Time{&d.PurchaseDate, &d.WarrantyEndDate, &d.AMCStartDate, &d.AMCEndDate} {
		if *p != nil {
			v := amc.DateOf(**p)
			*p = &v
		}
	}
	if d.AMCStartDate != nil && d.AMCEndDate != nil && d.AMCEndDate.Before(*d.AMCStartDate) {
		return invalid("amc_end_date must not be before amc_start_date")
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Organization{}).Where("id = ?", d.OrganizationID).Count(&n).Error; err != nil {
		return translate(err, "organization")
	}
	if n == 0 {
		return invalid("organization %q does not exist", d.OrganizationID)
	}
	return nil
}

func (s *DeviceStore) SetArchived(ctx context.Context, id string, archived bool) error {
	res := s.db.WithContext(ctx).Model(&models.Device{}).Where("id = ?", id).Update("archived", archived)
	if res.Error != nil {
		return translate(res.Error, "device")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "device")
	}
	s.log.WithFields(logrus.Fields{"id": id, "archived": archived}).Info("device archive flag changed")
	return nil
}

// Delete удаляет устройство вместе с его заявками.
func (s *DeviceStore) Delete(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("device_id = ?", id).Delete(&models.ServiceRequest{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Device{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return translate(err, "device")
	}
	s.log.WithField("id", id).Info("device deleted")
	return nil
}

// BelongTo проверяет, что все устройства принадлежат организации.
func (s *DeviceStore) BelongTo(ctx context.Context, organizationID string, ids []string) (bool, error) {
	ids = uniq(ids)
	if len(ids) == 0 {
		return true, nil
	}
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Device{}).
		Where("organization_id = ? AND id IN ?", organizationID, ids).
		Count(&n).Error
	if err != nil {
		return false, translate(err, "devices")
	}
	return n == int64(len(ids)), nil
}

func (s *DeviceStore) Names(ctx context.Context, ids []string) (map[string]string, error) {
	out, err := names(ctx, s.db, &models.Device{}, "device_name", ids)
	return out, translate(err, "devices")
}
