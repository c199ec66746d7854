package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"amcdesk/internal/listing"
	"amcdesk/internal/logs"
	"amcdesk/internal/models"
)

// Поиск по организациям идёт по этим колонкам.
var organizationSearchColumns = []string{"name", "email", "phone", "gst_number"}

var organizationEditable = []string{
	"name", "email", "phone", "contact_person", "address", "city", "state", "pincode", "gst_number", "pan_number",
}

type OrganizationFilter struct {
	Search     string
	Name       string
	Email      string
	City       string
	State      string
	Visibility listing.Visibility
}

type OrganizationStore struct {
	db   *gorm.DB
	opts Options
}

func NewOrganizationStore(db *gorm.DB, opts Options) *OrganizationStore {
	return &OrganizationStore{db: db, opts: opts.withDefaults()}
}

func (s *OrganizationStore) filter(f OrganizationFilter) func(*gorm.DB) *gorm.DB {
	return func(q *gorm.DB) *gorm.DB {
		return q.Scopes(
			listing.Search(f.Search, organizationSearchColumns...),
			listing.Contains("name", f.Name),
			listing.Contains("email", f.Email),
			listing.Contains("city", f.City),
			listing.Contains("state", f.State),
			listing.Archived("archived", f.Visibility),
		)
	}
}

func (s *OrganizationStore) List(ctx context.Context, f OrganizationFilter, p listing.Page) (listing.Envelope[models.Organization], error) {
	p = s.opts.page(p)
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Organization{}).Scopes(s.filter(f)).Count(&total).Error; err != nil {
		return listing.Envelope[models.Organization]{}, translate(err, "organizations")
	}
	var rows []models.Organization
	err := s.db.WithContext(ctx).Scopes(s.filter(f), listing.Paginate(p)).
		Order("created_at desc, id asc").
		Find(&rows).Error
	if err != nil {
		return listing.Envelope[models.Organization]{}, translate(err, "organizations")
	}
	return listing.NewEnvelope(rows, total, p), nil
}

// Export: до ExportLimit строк с теми же фильтрами и порядком, что у List.
func (s *OrganizationStore) Export(ctx context.Context, f OrganizationFilter) ([]models.Organization, error) {
	var rows []models.Organization
	err := s.db.WithContext(ctx).Scopes(s.filter(f)).
		Order("created_at desc, id asc").
		Limit(s.opts.ExportLimit).
		Find(&rows).Error
	return rows, translate(err, "organizations")
}

// Search: быстрый поиск по имени для выпадающих списков; только активные.
func (s *OrganizationStore) Search(ctx context.Context, term string, limit int) ([]models.Organization, error) {
	if limit <= 0 || limit > s.opts.MaxPageSize {
		limit = s.opts.DefaultPageSize
	}
	var rows []models.Organization
	err := s.db.WithContext(ctx).
		Scopes(listing.Contains("name", term), listing.Archived("archived", listing.VisibleActive)).
		Order("name asc").
		Limit(limit).
		Find(&rows).Error
	return rows, translate(err, "organizations")
}

func (s *OrganizationStore) Count(ctx context.Context, f OrganizationFilter) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Organization{}).Scopes(s.filter(f)).Count(&n).Error
	return n, translate(err, "organizations")
}

func (s *OrganizationStore) Get(ctx context.Context, id string) (*models.Organization, error) {
	var o models.Organization
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&o).Error; err != nil {
		return nil, translate(err, "organization")
	}
	return &o, nil
}

func (s *OrganizationStore) Exists(ctx context.Context, id string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Organization{}).Where("id = ?", id).Count(&n).Error
	return n > 0, translate(err, "organization")
}

func (s *OrganizationStore) Create(ctx context.Context, o *models.Organization) error {
	o.Email = normEmail(o.Email)
	o.Name = strings.TrimSpace(o.Name)
	if err := s.db.WithContext(ctx).Create(o).Error; err != nil {
		return translate(err, "organization")
	}
	logs.Component("repo.organizations").WithField("id", o.ID).Info("organization created")
	return nil
}

// Update перезаписывает редактируемые поля, включая пустые значения.
func (s *OrganizationStore) Update(ctx context.Context, id string, o *models.Organization) (*models.Organization, error) {
	o.Email = normEmail(o.Email)
	o.Name = strings.TrimSpace(o.Name)
	res := s.db.WithContext(ctx).Model(&models.Organization{}).
		Where("id = ?", id).
		Select(organizationEditable).
		Updates(o)
	if res.Error != nil {
		return nil, translate(res.Error, "organization")
	}
	if res.RowsAffected == 0 {
		return nil, translate(gorm.ErrRecordNotFound, "organization")
	}
	return s.Get(ctx, id)
}

func (s *OrganizationStore) SetArchived(ctx context.Context, id string, archived bool) error {
	res := s.db.WithContext(ctx).Model(&models.Organization{}).Where("id = ?", id).Update("archived", archived)
	if res.Error != nil {
		return translate(res.Error, "organization")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "organization")
	}
	logs.Component("repo.organizations").WithField("id", id).WithField("archived", archived).Info("organization archive flag changed")
	return nil
}

// Delete удаляет организацию каскадно: заявки, членства, устройства.
func (s *OrganizationStore) Delete(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("organization_id = ?", id).Delete(&models.ServiceRequest{}).Error; err != nil {
			return err
		}
		if err := tx.Where("organization_id = ?", id).Delete(&models.OrganizationUser{}).Error; err != nil {
			return err
		}
		if err := tx.Where("organization_id = ?", id).Delete(&models.Device{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.Organization{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		return translate(err, "organization")
	}
	logs.Component("repo.organizations").WithField("id", id).Info("organization deleted")
	return nil
}

// Names: id → name для денормализации.
func (s *OrganizationStore) Names(ctx context.Context, ids []string) (map[string]string, error) {
	out, err := names(ctx, s.db, &models.Organization{}, "name", ids)
	return out, translate(err, "organizations")
}

func names(ctx context.Context, db *gorm.DB, model any, column string, ids []string) (map[string]string, error) {
	out := make(map[string]string)
	ids = uniq(ids)
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		ID   string
		Name string
	}
	err := db.WithContext(ctx).Model(model).
		Select("id, "+column+" AS name").
		Where("id IN ?", ids).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r.Name
	}
	return out, nil
}
