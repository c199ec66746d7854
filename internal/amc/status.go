// Package amc классифицирует период AMC/гарантии по дате окончания.
// Это единственное место, где считается статус: его используют списки устройств,
// карточка устройства, статистика дашборда и SQL-фильтры вкладок.
package amc

import (
	"fmt"
	"time"
)

type Status string

const (
	NoAMC        Status = "no_amc"
	Expired      Status = "expired"
	ExpiringSoon Status = "expiring_soon"
	Active       Status = "active"
)

// ExpiringWindowDays: "истекает скоро" включает сегодня и ещё 7 дней.
const ExpiringWindowDays = 7

var Statuses = []Status{Expired, ExpiringSoon, Active, NoAMC}

func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case NoAMC, Expired, ExpiringSoon, Active:
		return st, nil
	}
	return "", fmt.Errorf("unknown amc status %q", s)
}

type Result struct {
	Status          Status `json:"status"`
	DaysUntilExpiry *int   `json:"days_until_expiry,omitempty"`
}

// DateOf: календарная дата t (в её собственной зоне) как полночь UTC.
// В этой нормальной форме хранятся все колонки-даты.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Classify сравнивает календарные дни, время суток не учитывается.
func Classify(end *time.Time, today time.Time) Result {
	if end == nil {
		return Result{Status: NoAMC}
	}
	days := DaysBetween(today, *end)
	r := Result{DaysUntilExpiry: &days}
	switch {
	case days < 0:
		r.Status = Expired
	case days <= ExpiringWindowDays:
		r.Status = ExpiringSoon
	default:
		r.Status = Active
	}
	return r
}

// DaysBetween: число календарных дней от from до to.
// Оба значения читаются в UTC: драйверы БД возвращают даты в локальной зоне процесса.
func DaysBetween(from, to time.Time) int {
	return int(DateOf(to.UTC()).Sub(DateOf(from.UTC())).Hours() / 24)
}

// Window возвращает полуинтервал [from, to) дат окончания, который соответствует статусу.
// Нулевой from/to означает отсутствие границы. Для NoAMC обе границы нулевые,
// фильтр строится по IS NULL.
func Window(s Status, today time.Time) (from, to time.Time) {
	day := DateOf(today)
	switch s {
	case Expired:
		return time.Time{}, day
	case ExpiringSoon:
		return day, day.AddDate(0, 0, ExpiringWindowDays+1)
	case Active:
		return day.AddDate(0, 0, ExpiringWindowDays+1), time.Time{}
	}
	return time.Time{}, time.Time{}
}
