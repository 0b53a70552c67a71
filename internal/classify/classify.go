package classify

import "time"

// Look-ahead windows for the due-soon flag. The dashboard highlights tasks
// due within two days; the reminder scan only emails about tasks due within
// one day. The two thresholds are intentionally different.
const (
	DashboardWindow = 48 * time.Hour
	ReminderWindow  = 24 * time.Hour
)

// Classification is the derived due-date state of a task. It is computed on
// demand and never persisted.
type Classification struct {
	Overdue bool `json:"overdue"`
	DueSoon bool `json:"due_soon"`
}

// Classify maps a task's due timestamp and completion flag to its
// classification relative to now. A task with no due date or a completed
// task is never overdue nor due soon. Otherwise a due timestamp strictly
// before now is overdue, and one within [now, now+window] is due soon.
//
// Both timestamps must already be in the same zone; see InZone.
func Classify(due *time.Time, completed bool, now time.Time, window time.Duration) Classification {
	if due == nil || completed {
		return Classification{}
	}
	if due.Before(now) {
		return Classification{Overdue: true}
	}
	if !due.After(now.Add(window)) {
		return Classification{DueSoon: true}
	}
	return Classification{}
}

// InZone reinterprets t's wall-clock reading in loc. Due timestamps are
// stored without zone information and scanned back as UTC wall clock; the
// application policy is to treat that wall clock as local time in its one
// configured zone, so every comparison happens in a single zone.
func InZone(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}
