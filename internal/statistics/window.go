package statistics

import (
	"strings"
	"time"
)

// Period selects the statistics window.
type Period string

const (
	PeriodToday  Period = "today"
	PeriodWeek   Period = "week"
	PeriodMonth  Period = "month"
	PeriodYear   Period = "year"
	PeriodCustom Period = "custom"
)

// ParsePeriod normalises raw; an empty value selects the month.
func ParsePeriod(raw string) (Period, bool) {
	p := Period(strings.ToLower(strings.TrimSpace(raw)))
	switch p {
	case "":
		return PeriodMonth, true
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodYear, PeriodCustom:
		return p, true
	default:
		return "", false
	}
}

// Window is an inclusive time range.
type Window struct {
	Start time.Time `json:"date_debut"`
	End   time.Time `json:"date_fin"`
}

// Contains reports whether t lies in [Start, End].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

const endOfDay = 23*time.Hour + 59*time.Minute + 59*time.Second + 999*time.Millisecond

// ResolveWindow computes the window of period relative to now. Weeks start
// on Sunday. A custom window keeps the literal start and extends the end to
// the last millisecond of its day; when either bound is missing both
// collapse to now. Unknown periods resolve like the month.
func ResolveWindow(period Period, now time.Time, customStart, customEnd *time.Time) Window {
	midnight := startOfDay(now)
	switch period {
	case PeriodToday:
		return Window{Start: midnight, End: midnight.Add(endOfDay)}
	case PeriodWeek:
		return Window{Start: midnight.AddDate(0, 0, -int(now.Weekday())), End: now}
	case PeriodYear:
		return Window{Start: time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()), End: now}
	case PeriodCustom:
		if customStart == nil || customEnd == nil {
			return Window{Start: now, End: now}
		}
		return Window{Start: *customStart, End: startOfDay(*customEnd).Add(endOfDay)}
	default:
		return Window{Start: time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), End: now}
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
