package amc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(t time.Time) *time.Time { return &t }

func TestClassifyBoundaries(t *testing.T) {
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name string
		end  *time.Time
		want Status
		days *int
	}{
		{"null", nil, NoAMC, nil},
		{"yesterday", ptr(today.AddDate(0, 0, -1)), Expired, intp(-1)},
		{"today", ptr(today), ExpiringSoon, intp(0)},
		{"today+7", ptr(today.AddDate(0, 0, 7)), ExpiringSoon, intp(7)},
		{"today+8", ptr(today.AddDate(0, 0, 8)), Active, intp(8)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.end, today)
			assert.Equal(t, tc.want, got.Status)
			if tc.days == nil {
				assert.Nil(t, got.DaysUntilExpiry)
				return
			}
			require.NotNil(t, got.DaysUntilExpiry)
			assert.Equal(t, *tc.days, *got.DaysUntilExpiry)
		})
	}
}

func intp(v int) *int { return &v }

func TestClassifyIgnoresTimeOfDay(t *testing.T) {
	// за минуту до полуночи и сразу после: один и тот же календарный день
	lateToday := time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)
	end := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	got := Classify(&end, lateToday)
	assert.Equal(t, ExpiringSoon, got.Status)
	assert.Equal(t, 0, *got.DaysUntilExpiry)

	endLate := time.Date(2026, 3, 9, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, Expired, Classify(&endLate, end).Status)
}

func TestClockTodayUsesBusinessZone(t *testing.T) {
	kolkata, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	// 20:00 UTC: в Индии уже следующий день
	c := Clock{Now: func() time.Time { return time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC) }, Location: kolkata}
	assert.Equal(t, time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC), c.Today())

	start, end := c.DayBounds(c.Current())
	assert.Equal(t, time.Date(2026, 3, 10, 18, 30, 0, 0, time.UTC), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
}

func TestWindowMatchesClassify(t *testing.T) {
	today := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	for offset := -3; offset <= 12; offset++ {
		end := today.AddDate(0, 0, offset)
		st := Classify(&end, today).Status

		from, to := Window(st, today)
		if !from.IsZero() {
			assert.False(t, end.Before(from), "offset %d below window of %s", offset, st)
		}
		if !to.IsZero() {
			assert.True(t, end.Before(to), "offset %d above window of %s", offset, st)
		}
	}
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("expiring_soon")
	require.NoError(t, err)
	assert.Equal(t, ExpiringSoon, st)

	_, err = ParseStatus("soon")
	assert.Error(t, err)
}
