package repo

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"amcdesk/internal/amc"
	"amcdesk/internal/listing"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
	ErrInvalid  = errors.New("invalid input")
)

// translate переводит ошибки gorm в ошибки домена: "device not found", "organization already exists".
func translate(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s %w", what, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s %w", what, ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

type Options struct {
	Clock           amc.Clock
	DefaultPageSize int
	MaxPageSize     int
	ExportLimit     int
}

func (o Options) withDefaults() Options {
	if o.Clock.Now == nil {
		o.Clock = amc.NewClock(o.Clock.Location)
	}
	if o.DefaultPageSize <= 0 {
		o.DefaultPageSize = listing.DefaultPageSize
	}
	if o.MaxPageSize <= 0 {
		o.MaxPageSize = listing.MaxPageSize
	}
	if o.ExportLimit <= 0 {
		o.ExportLimit = 500
	}
	return o
}

func (o Options) page(p listing.Page) listing.Page {
	return p.Normalize(o.DefaultPageSize, o.MaxPageSize)
}

// Stores: все хранилища поверх одного *gorm.DB.
type Stores struct {
	Organizations *OrganizationStore
	Devices       *DeviceStore
	Requests      *ServiceRequestStore
	Engineers     *EngineerStore
	Users         *UserStore
}

func New(db *gorm.DB, opts Options) *Stores {
	opts = opts.withDefaults()
	return &Stores{
		Organizations: NewOrganizationStore(db, opts),
		Devices:       NewDeviceStore(db, opts),
		Requests:      NewServiceRequestStore(db, opts),
		Engineers:     NewEngineerStore(db, opts),
		Users:         NewUserStore(db, opts),
	}
}

func normEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// uniq: без пустых и повторов, порядок сохраняется.
func uniq(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
