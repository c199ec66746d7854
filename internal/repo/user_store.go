package repo

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"amcdesk/internal/listing"
	"amcdesk/internal/logs"
	"amcdesk/internal/models"
)

type UserStore struct {
	db   *gorm.DB
	opts Options
	log  *logrus.Entry

	organizations *OrganizationStore
	devices       *DeviceStore
}

func NewUserStore(db *gorm.DB, opts Options) *UserStore {
	opts = opts.withDefaults()
	return &UserStore{
		db:            db,
		opts:          opts,
		log:           logs.Component("repo.users"),
		organizations: NewOrganizationStore(db, opts),
		devices:       NewDeviceStore(db, opts),
	}
}

// MemberInput: роль и доступ к устройствам внутри организации.
type MemberInput struct {
	Email        string
	Role         models.MemberRole
	DeviceAccess models.DeviceAccess
	DeviceIDs    []string
}

// CreateUser сохраняет учётную запись (PasswordHash уже посчитан) и привязывает
// к ней ожидающие приглашения с тем же email.
func (s *UserStore) CreateUser(ctx context.Context, u *models.User) error {
	u.Email = normEmail(u.Email)
	if u.Email == "" {
		return invalid("email is required")
	}
	if u.UserType == "" {
		u.UserType = models.UserStaff
	}
	if !u.UserType.Valid() {
		return invalid("unknown user type %q", u.UserType)
	}
	var claimed int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(u).Error; err != nil {
			return err
		}
		res := tx.Model(&models.OrganizationUser{}).
			Where("email = ? AND user_id IS NULL", u.Email).
			Update("user_id", u.ID)
		claimed = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return translate(err, "user")
	}
	s.log.WithFields(logrus.Fields{"id": u.ID, "claimed_invites": claimed}).Info("user created")
	return nil
}

func (s *UserStore) Get(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", normEmail(email)).First(&u).Error; err != nil {
		return nil, translate(err, "user")
	}
	return &u, nil
}

func (s *UserStore) List(ctx context.Context, search string, p listing.Page) (listing.Envelope[models.User], error) {
	p = s.opts.page(p)
	scope := listing.Search(search, "email", "full_name", "phone")
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Scopes(scope).Count(&total).Error; err != nil {
		return listing.Envelope[models.User]{}, translate(err, "users")
	}
	var rows []models.User
	err := s.db.WithContext(ctx).Scopes(scope, listing.Paginate(p)).
		Order("created_at desc, id asc").
		Find(&rows).Error
	if err != nil {
		return listing.Envelope[models.User]{}, translate(err, "users")
	}
	return listing.NewEnvelope(rows, total, p), nil
}

// SetPassword обновляет хэш пароля.
func (s *UserStore) SetPassword(ctx context.Context, id, hash string) error {
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("password_hash", hash)
	if res.Error != nil {
		return translate(res.Error, "user")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "user")
	}
	return nil
}

// Members: участники организации, включая неподтверждённые приглашения.
func (s *UserStore) Members(ctx context.Context, organizationID string) ([]models.OrganizationUser, error) {
	var rows []models.OrganizationUser
	err := s.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("created_at asc, id asc").
		Find(&rows).Error
	if err != nil {
		return nil, translate(err, "organization members")
	}
	var ids []string
	for _, m := range rows {
		if m.UserID != nil {
			ids = append(ids, *m.UserID)
		}
	}
	fullNames, err := names(ctx, s.db, &models.User{}, "full_name", ids)
	if err != nil {
		return nil, translate(err, "users")
	}
	for i := range rows {
		if rows[i].UserID != nil {
			rows[i].FullName = fullNames[*rows[i].UserID]
		}
	}
	return rows, nil
}

// Memberships: все организации пользователя.
func (s *UserStore) Memberships(ctx context.Context, userID string) ([]models.OrganizationUser, error) {
	var rows []models.OrganizationUser
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at asc").Find(&rows).Error
	return rows, translate(err, "organization members")
}

// AddMember привязывает существующего пользователя или создаёт приглашение по email.
func (s *UserStore) AddMember(ctx context.Context, organizationID string, in MemberInput) (*models.OrganizationUser, error) {
	m := models.OrganizationUser{OrganizationID: organizationID, Email: normEmail(in.Email)}
	if m.Email == "" {
		return nil, invalid("email is required")
	}
	if err := s.applyMember(ctx, &m, in); err != nil {
		return nil, err
	}

	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", m.Email).First(&u).Error
	switch {
	case err == nil:
		m.UserID = &u.ID
		m.FullName = u.FullName
	case !isNotFound(err):
		return nil, translate(err, "user")
	}

	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return nil, translate(err, "organization member")
	}
	s.log.WithFields(logrus.Fields{"organization_id": organizationID, "member_id": m.ID, "pending": m.Pending()}).Info("member added")
	return &m, nil
}

func (s *UserStore) UpdateMember(ctx context.Context, organizationID, memberID string, in MemberInput) (*models.OrganizationUser, error) {
	var m models.OrganizationUser
	err := s.db.WithContext(ctx).Where("id = ? AND organization_id = ?", memberID, organizationID).First(&m).Error
	if err != nil {
		return nil, translate(err, "organization member")
	}
	if err := s.applyMember(ctx, &m, in); err != nil {
		return nil, err
	}
	err = s.db.WithContext(ctx).Model(&m).
		Select("role", "device_access", "device_ids").
		Updates(&m).Error
	if err != nil {
		return nil, translate(err, "organization member")
	}
	return &m, nil
}

func (s *UserStore) RemoveMember(ctx context.Context, organizationID, memberID string) error {
	res := s.db.WithContext(ctx).
		Where("id = ? AND organization_id = ?", memberID, organizationID).
		Delete(&models.OrganizationUser{})
	if res.Error != nil {
		return translate(res.Error, "organization member")
	}
	if res.RowsAffected == 0 {
		return translate(gorm.ErrRecordNotFound, "organization member")
	}
	return nil
}

// applyMember проверяет роль и область доступа; выбранные устройства должны принадлежать организации.
func (s *UserStore) applyMember(ctx context.Context, m *models.OrganizationUser, in MemberInput) error {
	if !in.Role.Valid() {
		return invalid("unknown role %q", in.Role)
	}
	if in.DeviceAccess == "" {
		in.DeviceAccess = models.AccessAll
	}
	if !in.DeviceAccess.Valid() {
		return invalid("device_access must be all or selected")
	}
	ids := uniq(in.DeviceIDs)
	if in.DeviceAccess == models.AccessAll {
		ids = []string{}
	} else {
		if len(ids) == 0 {
			return invalid("device_ids must not be empty when device_access is selected")
		}
		ok, err := s.devices.BelongTo(ctx, m.OrganizationID, ids)
		if err != nil {
			return err
		}
		if !ok {
			return invalid("device_ids contain devices outside of the organization")
		}
	}
	exists, err := s.organizations.Exists(ctx, m.OrganizationID)
	if err != nil {
		return err
	}
	if !exists {
		return translate(gorm.ErrRecordNotFound, "organization")
	}
	m.Role = in.Role
	m.DeviceAccess = in.DeviceAccess
	m.DeviceIDs = ids
	return nil
}

func isNotFound(err error) bool { return errors.Is(err, gorm.ErrRecordNotFound) }
