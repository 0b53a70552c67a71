package reminder

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rsoni/taskmate/internal/classify"
	"github.com/rsoni/taskmate/internal/models"
	"github.com/sirupsen/logrus"
)

// TaskSource loads the tasks eligible for reminders.
// *repository.Repository satisfies it.
type TaskSource interface {
	DueTasksWithOwners() ([]models.TaskWithOwner, error)
}

// Mailer delivers reminder notifications.
// *email.Sender satisfies it.
type Mailer interface {
	SendTaskReminder(to, username, description string, due time.Time, isOverdue bool) error
}

// Result summarizes one scan for the diagnostic endpoint
type Result struct {
	Scanned int `json:"scanned"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
}

// Scanner is the periodic job that emails owners about overdue and due-soon
// tasks. Each scan evaluates every qualifying task once; there is no
// de-duplication state, so a task that stays due-soon across scans is
// emailed on every scan.
type Scanner struct {
	source TaskSource
	mailer Mailer
	log    *logrus.Logger
	loc    *time.Location
}

// NewScanner initializes a new reminder scanner
func NewScanner(source TaskSource, mailer Mailer, log *logrus.Logger, loc *time.Location) *Scanner {
	return &Scanner{source: source, mailer: mailer, log: log, loc: loc}
}

// Run performs one scan at the given instant. A failed send is logged and
// counted but does not stop the scan; a storage read failure aborts it.
// The scan uses the one-day reminder window, narrower than the dashboard's
// two-day window.
func (s *Scanner) Run(now time.Time) (Result, error) {
	tasks, err := s.source.DueTasksWithOwners()
	if err != nil {
		s.log.Errorf("Reminder scan aborted: %v", err)
		return Result{}, fmt.Errorf("failed to load tasks for reminder scan: %w", err)
	}

	res := Result{Scanned: len(tasks)}
	for _, task := range tasks {
		c := classify.Classify(task.DueDate, task.Completed, now, classify.ReminderWindow)
		if !c.Overdue && !c.DueSoon {
			continue
		}
		err := s.mailer.SendTaskReminder(task.OwnerEmail, task.OwnerUsername, task.Description, *task.DueDate, c.Overdue)
		if err != nil {
			s.log.Errorf("Reminder for task %d to %s failed: %v", task.ID, task.OwnerEmail, err)
			res.Failed++
			continue
		}
		res.Sent++
	}

	s.log.Infof("Reminder scan done: %d scanned, %d sent, %d failed", res.Scanned, res.Sent, res.Failed)
	return res, nil
}

// RunNow performs one scan at the current instant in the configured zone
func (s *Scanner) RunNow() (Result, error) {
	return s.Run(time.Now().In(s.loc))
}

// Schedule starts the scanner on the given cron spec (e.g. "@every 1h") and
// returns the running cron so the caller can stop it during shutdown
func (s *Scanner) Schedule(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		// Failures are logged inside Run; the next tick retries naturally.
		_, _ = s.RunNow()
	})
	if err != nil {
		return nil, fmt.Errorf("invalid reminder schedule %q: %w", spec, err)
	}
	c.Start()
	s.log.Infof("Reminder scanner scheduled: %s", spec)
	return c, nil
}
