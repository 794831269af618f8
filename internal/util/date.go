package util

import "time"

// StartOfDay 返回 t 所在时区当天 00:00
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayRange 返回 [当天开始, 次日开始)
func DayRange(t time.Time) (time.Time, time.Time) {
	start := StartOfDay(t)
	return start, start.AddDate(0, 0, 1)
}

func FormatDate(t time.Time) string {
	return t.Format(DateFormat)
}

// WeekStart 返回 t 所在周的周一；周日归属于之前的周一
func WeekStart(t time.Time) time.Time {
	offset := int(t.Weekday()) - int(time.Monday)
	if t.Weekday() == time.Sunday {
		offset = 6
	}
	return StartOfDay(t).AddDate(0, 0, -offset)
}
