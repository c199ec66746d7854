package amc

import "time"

// Clock задаёт "сегодня" в часовом поясе бизнеса.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{Now: time.Now, Location: loc}
}

// Fixed: часы для тестов и отчётов "на дату".
func Fixed(t time.Time) Clock {
	return Clock{Now: func() time.Time { return t }, Location: t.Location()}
}

func (c Clock) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

func (c Clock) loc() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

// Current: текущий момент в зоне бизнеса.
func (c Clock) Current() time.Time { return c.now().In(c.loc()) }

// Today: сегодняшняя календарная дата в нормальной форме.
func (c Clock) Today() time.Time { return DateOf(c.Current()) }

// DayBounds: границы календарного дня t в зоне бизнеса, в UTC.
func (c Clock) DayBounds(t time.Time) (start, end time.Time) {
	y, m, d := t.In(c.loc()).Date()
	start = time.Date(y, m, d, 0, 0, 0, 0, c.loc())
	end = start.AddDate(0, 0, 1)
	return start.UTC(), end.UTC()
}
