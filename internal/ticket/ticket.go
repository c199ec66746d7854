// Package ticket формирует номера заявок вида YYYY-MM-DD-oooo-dddd-NNNN.
package ticket

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrMalformed = errors.New("malformed ticket number")

// Parts: разобранный номер.
type Parts struct {
	Day      time.Time
	OrgPart  string
	DevPart  string
	Sequence int
}

// Format собирает номер; seq: порядковый номер заявки за день, начиная с 1.
func Format(day time.Time, orgID, deviceID string, seq int) string {
	return fmt.Sprintf("%s-%s-%s-%04d", day.Format("2006-01-02"), first4(orgID), first4(deviceID), seq)
}

// Prefix: общее начало всех номеров за день, для выборки LIKE 'prefix%'.
func Prefix(day time.Time) string { return day.Format("2006-01-02") + "-" }

// Next: номер для новой заявки, если за день уже занято existing номеров.
func Next(day time.Time, orgID, deviceID string, existing int64) string {
	return Format(day, orgID, deviceID, int(existing)+1)
}

func Parse(s string) (Parts, error) {
	f := strings.Split(s, "-")
	if len(f) != 6 {
		return Parts{}, ErrMalformed
	}
	day, err := time.Parse("2006-01-02", strings.Join(f[:3], "-"))
	if err != nil {
		return Parts{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	seq, err := strconv.Atoi(f[5])
	if err != nil || seq < 1 {
		return Parts{}, ErrMalformed
	}
	return Parts{Day: day, OrgPart: f[3], DevPart: f[4], Sequence: seq}, nil
}

func first4(id string) string {
	// дефисы внутри части сломали бы разбор номера
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 4 {
		return id[:4]
	}
	return id
}
