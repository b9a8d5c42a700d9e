package services

import (
	"time"

	"household-task-service/internal/task-manager/db"
)

// isDue reports whether a template should generate on the calendar day of
// `today`. Daily templates are always due. Weekly and biweekly templates match
// on weekday, monthly on day-of-month with no clamping: a template targeting
// day 31 is simply never due in a shorter month. An empty due-day set means
// never due for everything except daily.
func isDue(tmpl *db.RecurringTaskTemplate, today time.Time) bool {
	switch tmpl.Frequency {
	case db.FrequencyDaily:
		return true
	case db.FrequencyWeekly:
		return containsDay(tmpl.DueDays, int(today.Weekday()))
	case db.FrequencyBiweekly:
		if !containsDay(tmpl.DueDays, int(today.Weekday())) {
			return false
		}
		if tmpl.LastGeneratedAt == nil {
			return true
		}
		return daysBetween(*tmpl.LastGeneratedAt, today) >= 14
	case db.FrequencyMonthly:
		return containsDay(tmpl.DueDays, today.Day())
	}
	return false
}

// shouldSkip is the idempotency guard: a template that already generated on
// this calendar day is skipped. For biweekly templates the 14-day gate is
// checked again even though isDue already enforces it, so a guard call is safe
// on its own.
//
// This is a read-then-write check against shared state with no lock of its
// own; two interleaved runs that both read a stale LastGeneratedAt will both
// pass. GenerationService serializes runs per group to close that window
// within a single process.
func shouldSkip(tmpl *db.RecurringTaskTemplate, today time.Time) bool {
	if tmpl.LastGeneratedAt == nil {
		return false
	}
	if sameDay(*tmpl.LastGeneratedAt, today) {
		return true
	}
	if tmpl.Frequency == db.FrequencyBiweekly {
		return daysBetween(*tmpl.LastGeneratedAt, today) < 14
	}
	return false
}

// nextDueDate is the manual-path projection: the next strictly future
// occurrence of the template's first configured due day. Monthly targets are
// clamped to the last valid day of the candidate month. This intentionally
// differs from the batch path, which always dates generated tasks to the end
// of the current day.
func nextDueDate(tmpl *db.RecurringTaskTemplate, now time.Time) time.Time {
	if tmpl.Frequency == db.FrequencyDaily || len(tmpl.DueDays) == 0 {
		return endOfDay(now)
	}
	target := tmpl.DueDays[0]
	switch tmpl.Frequency {
	case db.FrequencyWeekly, db.FrequencyBiweekly:
		delta := (target - int(now.Weekday()) + 7) % 7
		if delta == 0 {
			delta = 7
		}
		return endOfDay(now.AddDate(0, 0, delta))
	case db.FrequencyMonthly:
		occurrence := clampedMonthDay(now.Year(), now.Month(), target, now.Location())
		if !occurrence.After(startOfDay(now)) {
			occurrence = clampedMonthDay(now.Year(), now.Month()+1, target, now.Location())
		}
		return endOfDay(occurrence)
	}
	return endOfDay(now)
}

// clampedMonthDay builds year/month/day with day clamped to the month's last
// valid day. time.Date normalizes month overflow, so month+1 in December rolls
// into January of the next year.
func clampedMonthDay(year int, month time.Month, day int, loc *time.Location) time.Time {
	lastDay := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// daysBetween counts whole calendar days from a to b. The dates are rebuilt in
// UTC before subtracting so a DST transition between them cannot shave an hour
// off the difference and undercount by a day.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	au := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	bu := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(bu.Sub(au).Hours() / 24)
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
