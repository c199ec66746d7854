package repo

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"amcdesk/internal/listing"
	"amcdesk/internal/logs"
	"amcdesk/internal/models"
	"amcdesk/internal/ticket"
)

// Сколько раз пересчитывать номер при коллизии уникального ticket_no.
const maxTicketAttempts = 5

var requestSearchColumns = []string{"ticket_no", "description"}

type ServiceRequestFilter struct {
	Search            string
	OrganizationID    string
	DeviceID          string
	ServiceEngineerID string
	UserID            string
	Status            models.RequestStatus
	ServiceType       models.ServiceType
}

type ServiceRequestStore struct {
	db   *gorm.DB
	opts Options
	log  *logrus.Entry

	// источники имён для денормализации
	organizations *OrganizationStore
	devices       *DeviceStore
	engineers     *EngineerStore
}

func NewServiceRequestStore(db *gorm.DB, opts Options) *ServiceRequestStore {
	opts = opts.withDefaults()
	return &ServiceRequestStore{
		db:            db,
		opts:          opts,
		log:           logs.Component("repo.requests"),
		organizations: NewOrganizationStore(db, opts),
		devices:       NewDeviceStore(db, opts),
		engineers:     NewEngineerStore(db, opts),
	}
}

func (s *ServiceRequestStore) filter(f ServiceRequestFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		return q.Scopes(
			listing.Search(f.Search, requestSearchColumns...),
			listing.Equals("organization_id", f.OrganizationID),
			listing.Equals("device_id", f.DeviceID),
			listing.Equals("service_engineer_id", f.ServiceEngineerID),
			listing.Equals("user_id", f.UserID),
			listing.Equals("status", f.Status),
			listing.Equals("service_type", f.ServiceType),
		)
	}
}

func (s *ServiceRequestStore) List(ctx context.Context, f ServiceRequestFilter, p listing.Page) (listing.Envelope[models.ServiceRequest], error) {
	p = s.opts.page(p)
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.ServiceRequest{}).Scopes(s.filter(f)).Count(&total).Error; err != nil {
		return listing.Envelope[models.ServiceRequest]{}, translate(err, "service requests")
	}
	var rows []models.ServiceRequest
	err := s.db.WithContext(ctx).Scopes(s.filter(f), listing.Paginate(p)).
		Order("created_at desc, id asc").
		Find(&rows).Error
	if err != nil {
		return listing.Envelope[models.ServiceRequest]{}, translate(err, "service requests")
	}
	if err := s.denormalize(ctx, rows); err != nil {
		return listing.Envelope[models.ServiceRequest]{}, err
	}
	return listing.NewEnvelope(rows, total, p), nil
}

func (s *ServiceRequestStore) Export(ctx context.Context, f ServiceRequestFilter) ([]models.ServiceRequest, error) {
	var rows []models.ServiceRequest
	err := s.db.WithContext(ctx).Scopes(s.filter(f)).
		Order("created_at desc, id asc").
		Limit(s.opts.ExportLimit).
		Find(&rows).Error
	if err != nil {
		return nil, translate(err, "service requests")
	}
	return rows, s.denormalize(ctx, rows)
}

// Recent: последние n заявок для дашборда.
func (s *ServiceRequestStore) Recent(ctx context.Context, n int) ([]models.ServiceRequest, error) {
	env, err := s.List(ctx, ServiceRequestFilter{}, listing.Page{Page: 1, PageSize: n})
	return env.Data, err
}

// denormalize делает второй проход и подставляет имена организаций, устройств и инженеров.
func (s *ServiceRequestStore) denormalize(ctx context.Context, rows []models.ServiceRequest) error {
	if len(rows) == 0 {
		return nil
	}
	var orgIDs, devIDs, engIDs []string
	for _, r := range rows {
		orgIDs = append(orgIDs, r.OrganizationID)
		devIDs = append(devIDs, r.DeviceID)
		if r.ServiceEngineerID != nil {
			engIDs = append(engIDs, *r.ServiceEngineerID)
		}
	}
	orgs, err := s.organizations.Names(ctx, orgIDs)
	if err != nil {
		return err
	}
	devs, err := s.devices.Names(ctx, devIDs)
	if err != nil {
		return err
	}
	engs, err := s.engineers.Names(ctx, engIDs)
	if err != nil {
		return err
	}
	for i := range rows {
		rows[i].OrganizationName = orgs[rows[i].OrganizationID]
		rows[i].DeviceName = devs[rows[i].DeviceID]
		if rows[i].ServiceEngineerID != nil {
			rows[i].EngineerName = engs[*rows[i].ServiceEngineerID]
		}
	}
	return nil
}

func (s *ServiceRequestStore) Get(ctx context.Context, id string) (*models.ServiceRequest, error) {
	var r models.ServiceRequest
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&r).Error; err != nil {
		return nil, translate(err, "service request")
	}
	rows := []models.ServiceRequest{r}
	if err := s.denormalize(ctx, rows); err != nil {
		return nil, err
	}
	return &rows[0], nil
}

func (s *ServiceRequestStore) GetByTicket(ctx context.Context, ticketNo string) (*models.ServiceRequest, error) {
	var r models.ServiceRequest
	if err := s.db.WithContext(ctx).Where("ticket_no = ?", ticketNo).First(&r).Error; err != nil {
		return nil, translate(err, "service request")
	}
	return s.Get(ctx, r.ID)
}

// CountCreatedOn: заявки, созданные в календарный день t (зона бизнеса).
func (s *ServiceRequestStore) CountCreatedOn(ctx context.Context, t time.Time) (int64, error) {
	start, end := s.opts.Clock.DayBounds(t)
	var n int64
	err := s.db.WithContext(ctx).Model(&models.ServiceRequest{}).
		Where("created_at >= ? AND created_at < ?", start, end).
		Count(&n).Error
	return n, translate(err, "service requests")
}

// lastSequence: сколько номеров за день уже занято. Это число заявок за день,
// но после удалений старшие номера остаются заняты, поэтому берётся максимум.
func (s *ServiceRequestStore) lastSequence(ctx context.Context, now, day time.Time) (int64, error) {
	n, err := s.CountCreatedOn(ctx, now)
	if err != nil {
		return 0, err
	}
	var taken []string
	err = s.db.WithContext(ctx).Model(&models.ServiceRequest{}).
		Where("ticket_no LIKE ?", ticket.Prefix(day)+"%").
		Pluck("ticket_no", &taken).Error
	if err != nil {
		return 0, translate(err, "service requests")
	}
	for _, no := range taken {
		p, err := ticket.Parse(no)
		if err != nil {
			continue
		}
		if int64(p.Sequence) > n {
			n = int64(p.Sequence)
		}
	}
	return n, nil
}

// Create присваивает номер заявки: число заявок за сегодня + 1, но не ниже
// следующего свободного номера дня. Подсчёт и вставка не атомарны; параллельная
// вставка с тем же номером упрётся в уникальный индекс, и номер будет пересчитан.
func (s *ServiceRequestStore) Create(ctx context.Context, r *models.ServiceRequest) error {
	now := s.opts.Clock.Current()
	day := s.opts.Clock.Today()
	r.CreatedAt = now.UTC()
	r.UpdatedAt = r.CreatedAt
	if r.RequestedDate.IsZero() {
		r.RequestedDate = day
	}
	if r.Status == "" {
		r.Status = models.StatusPending
	}

	var lastErr error
	for attempt := 0; attempt < maxTicketAttempts; attempt++ {
		n, err := s.lastSequence(ctx, now, day)
		if err != nil {
			r.TicketNo = ""
			return err
		}
		r.TicketNo = ticket.Next(day, r.OrganizationID, r.DeviceID, n)
		err = s.db.WithContext(ctx).Create(r).Error
		if err == nil {
			s.log.WithFields(logrus.Fields{"id": r.ID, "ticket_no": r.TicketNo}).Info("service request created")
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			r.TicketNo = ""
			return translate(err, "service request")
		}
		s.log.WithFields(logrus.Fields{"ticket_no": r.TicketNo, "attempt": attempt + 1}).Warn("ticket number collision, recounting")
		lastErr = err
	}
	r.TicketNo = ""
	return translate(lastErr, "service request")
}

// Update: редактируемые поля заявки (тип, описание, плановая дата).
func (s *ServiceRequestStore) Update(ctx context.Context, id string, r *models.ServiceRequest) (*models.ServiceRequest, error) {
	return s.patch(ctx, id, map[string]any{
		"service_type":   r.ServiceType,
		"description":    r.Description,
		"scheduled_date": r.ScheduledDate,
	})
}

func (s *ServiceRequestStore) SetStatus(ctx context.Context, id string, st models.RequestStatus, completedAt *time.Time) (*models.ServiceRequest, error) {
	return s.patch(ctx, id, map[string]any{"status": st, "completed_date": completedAt})
}

// Assign назначает инженера; nil снимает назначение.
func (s *ServiceRequestStore) Assign(ctx context.Context, id string, engineerID *string) (*models.ServiceRequest, error) {
	return s.patch(ctx, id, map[string]any{"service_engineer_id": engineerID})
}

func (s *ServiceRequestStore) SetFile(ctx context.Context, id, url, name string) (*models.ServiceRequest, error) {
	return s.patch(ctx, id, map[string]any{"file_url": url, "file_name": name})
}

func (s *ServiceRequestStore) patch(ctx context.Context, id string, fields map[string]any) (*models.ServiceRequest, error) {
	res := s.db.WithContext(ctx).Model(&models.ServiceRequest{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return nil, translate(res.Error, "service request")
	}
	if res.RowsAffected == 0 {
		return nil, translate(gorm.ErrRecordNotFound, "service request")
	}
	s.log.WithField("id", id).Debug("service request updated")
	return s.Get(ctx, id)
}

func (s *ServiceRequestStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.ServiceRequest{})
	if res.Error != nil {
		return translate(res.Error, "service request")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "service request")
	}
	s.log.WithField("id", id).Info("service request deleted")
	return nil
}

func (s *ServiceRequestStore) CountByStatus(ctx context.Context) (map[models.RequestStatus]int64, error) {
	var rows []struct {
		Status models.RequestStatus
		N      int64
	}
	err := s.db.WithContext(ctx).Model(&models.ServiceRequest{}).
		Select("status, count(*) AS n").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "service requests")
	}
	out := make(map[models.RequestStatus]int64, len(models.RequestStatuses))
	for _, st := range models.RequestStatuses {
		out[st] = 0
	}
	for _, r := range rows {
		out[r.Status] = r.N
	}
	return out, nil
}

func (s *ServiceRequestStore) CountByType(ctx context.Context) (map[models.ServiceType]int64, error) {
	var rows []struct {
		ServiceType models.ServiceType
		N           int64
	}
	err := s.db.WithContext(ctx).Model(&models.ServiceRequest{}).
		Select("service_type, count(*) AS n").
		Group("service_type").
		Scan(&rows).Error
	if err != nil {
		return nil, translate(err, "service requests")
	}
	out := make(map[models.ServiceType]int64, len(models.ServiceTypes))
	for _, t := range models.ServiceTypes {
		out[t] = 0
	}
	for _, r := range rows {
		out[r.ServiceType] = r.N
	}
	return out, nil
}
