package display

import "time"

// QueueDateRange names a preset date window.
type QueueDateRange string

const (
	QueueDateAllTime   QueueDateRange = "ALL_TIME"
	QueueDateToday     QueueDateRange = "TODAY"
	QueueDateYesterday QueueDateRange = "YESTERDAY"
	QueueDateThisWeek  QueueDateRange = "THIS_WEEK"
	QueueDateThisMonth QueueDateRange = "THIS_MONTH"
	QueueDateThisYear  QueueDateRange = "THIS_YEAR"
	QueueDateCustom    QueueDateRange = "CUSTOM"
)

// QueueDate is an inclusive day window. Start and End carry the location the days are
// evaluated in. The zero value does not filter.
type QueueDate struct {
	Range QueueDateRange `json:"range"`
	Start time.Time      `json:"start"`
	End   time.Time      `json:"end"`
}

// NewQueueDate resolves a preset window relative to now, in now's location. Weeks start on
// Monday. CUSTOM resolves to the epoch day; use CustomQueueDate instead.
func NewQueueDate(r QueueDateRange, now time.Time) QueueDate {
	today := startOfDay(now)
	qd := QueueDate{Range: r, Start: today, End: today}
	switch r {
	case QueueDateAllTime:
		qd.Start = time.Unix(0, 0).In(now.Location())
	case QueueDateToday:
	case QueueDateYesterday:
		qd.Start = today.AddDate(0, 0, -1)
		qd.End = qd.Start
	case QueueDateThisWeek:
		offset := (int(today.Weekday()) + 6) % 7
		qd.Start = today.AddDate(0, 0, -offset)
		qd.End = qd.Start.AddDate(0, 0, 6)
	case QueueDateThisMonth:
		qd.Start = time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		qd.End = qd.Start.AddDate(0, 1, -1)
	case QueueDateThisYear:
		qd.Start = time.Date(today.Year(), time.January, 1, 0, 0, 0, 0, today.Location())
		qd.End = time.Date(today.Year(), time.December, 31, 0, 0, 0, 0, today.Location())
	default:
		epoch := time.Unix(0, 0).In(now.Location())
		qd.Start, qd.End = epoch, epoch
	}
	return qd
}

// CustomQueueDate spans every day from start through end.
func CustomQueueDate(start, end time.Time) QueueDate {
	return QueueDate{Range: QueueDateCustom, Start: start, End: end.In(start.Location())}
}

// IsZero reports whether the window is unset.
func (d QueueDate) IsZero() bool {
	return d.Range == "" && d.Start.IsZero() && d.End.IsZero()
}

// Bounds returns the first and last instants of the window. The last instant is one
// microsecond before the following midnight, the finest precision postgres stores.
func (d QueueDate) Bounds() (start, end time.Time, ok bool) {
	if d.IsZero() {
		return time.Time{}, time.Time{}, false
	}
	loc := d.Start.Location()
	start = startOfDay(d.Start)
	end = startOfDay(d.End.In(loc)).AddDate(0, 0, 1).Add(-time.Microsecond)
	return start, end, true
}

// Contains reports whether t falls inside the window at microsecond precision.
func (d QueueDate) Contains(t time.Time) bool {
	start, end, ok := d.Bounds()
	if !ok {
		return true
	}
	t = t.Truncate(time.Microsecond)
	return !t.Before(start) && !t.After(end)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
