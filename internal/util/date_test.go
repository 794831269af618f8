package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"monday", time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), "2026-03-02"},
		{"wednesday", time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC), "2026-03-02"},
		{"saturday", time.Date(2026, 3, 7, 23, 59, 0, 0, time.UTC), "2026-03-02"},
		{"sunday belongs to previous week", time.Date(2026, 3, 8, 12, 0, 0, 0, time.UTC), "2026-03-02"},
		{"across month", time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC), "2026-03-30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeekStart(tt.in)
			assert.Equal(t, tt.want, FormatDate(got))
			assert.Equal(t, time.Monday, got.Weekday())
		})
	}
}

func TestDayRange_KeepsLocation(t *testing.T) {
	loc := time.FixedZone("WIB", 7*3600)
	start, end := DayRange(time.Date(2026, 3, 4, 23, 30, 0, 0, loc))
	assert.Equal(t, time.Date(2026, 3, 4, 0, 0, 0, 0, loc), start)
	assert.Equal(t, 24*time.Hour, end.Sub(start))
	assert.Equal(t, loc, start.Location())
}
