package repo

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"amcdesk/internal/listing"
	"amcdesk/internal/logs"
	"amcdesk/internal/models"
)

type EngineerStore struct {
	db   *gorm.DB
	opts Options
}

func NewEngineerStore(db *gorm.DB, opts Options) *EngineerStore {
	return &EngineerStore{db: db, opts: opts.withDefaults()}
}

// List: полный список; expertise оставляет только подходящих исполнителей.
func (s *EngineerStore) List(ctx context.Context, search string, expertise models.ServiceType) ([]models.ServiceEngineer, error) {
	var rows []models.ServiceEngineer
	err := s.db.WithContext(ctx).
		Scopes(listing.Search(search, "name", "email", "phone")).
		Order("name asc").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err, "service engineers")
	}
	if expertise == "" {
		return rows, nil
	}
	// экспертиза хранится JSON-массивом, фильтруем после выборки: таблица маленькая
	out := rows[:0]
	for _, e := range rows {
		if e.Can(expertise) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *EngineerStore) Get(ctx context.Context, id string) (*models.ServiceEngineer, error) {
	var e models.ServiceEngineer
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, translate(err, "service engineer")
	}
	return &e, nil
}

func (s *EngineerStore) Create(ctx context.Context, e *models.ServiceEngineer) error {
	if err := prepareEngineer(e); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(e).Error; err != nil {
		return translate(err, "service engineer")
	}
	logs.Component("repo.engineers").WithField("id", e.ID).Info("service engineer created")
	return nil
}

func (s *EngineerStore) Update(ctx context.Context, id string, e *models.ServiceEngineer) (*models.ServiceEngineer, error) {
	if err := prepareEngineer(e); err != nil {
		return nil, err
	}
	res := s.db.WithContext(ctx).Model(&models.ServiceEngineer{}).
		Where("id = ?", id).
		Select("name", "email", "phone", "expertise").
		Updates(e)
	if res.Error != nil {
		return nil, translate(res.Error, "service engineer")
	}
	if res.RowsAffected == 0 {
		return nil, translate(gorm.ErrRecordNotFound, "service engineer")
	}
	return s.Get(ctx, id)
}

// Delete снимает инженера со всех заявок и удаляет его.
func (s *EngineerStore) Delete(ctx context.Context, id string) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ServiceRequest{}).
			Where("service_engineer_id = ?", id).
			Update("service_engineer_id", nil).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&models.ServiceEngineer{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translate(err, "service engineer")
}

func prepareEngineer(e *models.ServiceEngineer) error {
	e.Name = strings.TrimSpace(e.Name)
	if e.Name == "" {
		return invalid("name is required")
	}
	seen := make(map[models.ServiceType]bool, len(e.Expertise))
	out := e.Expertise[:0]
	for _, t := range e.Expertise {
		if !t.Valid() {
			return invalid("unknown service type %q in expertise", t)
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	e.Expertise = out
	return nil
}

func (s *EngineerStore) Names(ctx context.Context, ids []string) (map[string]string, error) {
	out, err := names(ctx, s.db, &models.ServiceEngineer{}, "name", ids)
	return out, translate(err, "service engineers")
}
