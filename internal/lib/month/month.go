// Package month содержит календарную арифметику для расчёта сроков подписки.
//
// time.AddDate молча переносит 31 января + 1 месяц на 2-3 марта.
// Для сроков подписки действует правило прижатия к концу месяца:
// 31 января + 1 месяц = 28 (29) февраля.
package month

import "time"

// AddMonths прибавляет months месяцев с прижатием к последнему дню месяца.
func AddMonths(t time.Time, months int) time.Time {
	year, mon, day := t.Date()
	firstOfTarget := time.Date(year, mon, 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location()).AddDate(0, months, 0)
	lastDay := daysIn(firstOfTarget.Year(), firstOfTarget.Month())
	if day > lastDay {
		day = lastDay
	}
	return time.Date(firstOfTarget.Year(), firstOfTarget.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// AddYears прибавляет years лет с тем же правилом прижатия
// (29 февраля + 1 год = 28 февраля).
func AddYears(t time.Time, years int) time.Time {
	return AddMonths(t, years*12)
}

func daysIn(year int, mon time.Month) int {
	// День 0 следующего месяца — последний день текущего.
	return time.Date(year, mon+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
