package reminder

import (
	"errors"
	"testing"
	"time"

	"github.com/rsoni/taskmate/internal/models"
	"github.com/sirupsen/logrus"
)

type fakeSource struct {
	tasks []models.TaskWithOwner
	err   error
}

func (f *fakeSource) DueTasksWithOwners() ([]models.TaskWithOwner, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.tasks, nil
}

type sentMail struct {
	to        string
	isOverdue bool
}

type recordingMailer struct {
	sent    []sentMail
	failFor string // owner email whose sends fail
}

func (m *recordingMailer) SendTaskReminder(to, username, description string, due time.Time, isOverdue bool) error {
	if to == m.failFor {
		return errors.New("smtp: connection reset")
	}
	m.sent = append(m.sent, sentMail{to: to, isOverdue: isOverdue})
	return nil
}

func dueTask(id int64, email string, due time.Time) models.TaskWithOwner {
	return models.TaskWithOwner{
		Task: models.Task{
			ID:          id,
			UserID:      id,
			Description: "task",
			DueDate:     &due,
		},
		OwnerEmail:    email,
		OwnerUsername: "user",
	}
}

func newTestScanner(source TaskSource, mailer Mailer) *Scanner {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewScanner(source, mailer, logger, time.UTC)
}

func TestRunClassifiesWithOneDayWindow(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{tasks: []models.TaskWithOwner{
		dueTask(1, "overdue@x.com", now.Add(-time.Hour)),
		dueTask(2, "soon@x.com", now.Add(12*time.Hour)),
		dueTask(3, "thirtyhours@x.com", now.Add(30*time.Hour)), // dashboard-due-soon, but outside 24h
		dueTask(4, "faraway@x.com", now.Add(200*time.Hour)),
	}}
	mailer := &recordingMailer{}

	res, err := newTestScanner(source, mailer).Run(now)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Scanned != 4 || res.Sent != 2 || res.Failed != 0 {
		t.Errorf("Result = %+v, want 4 scanned, 2 sent, 0 failed", res)
	}
	if len(mailer.sent) != 2 {
		t.Fatalf("sent %d emails, want 2: %+v", len(mailer.sent), mailer.sent)
	}
	if mailer.sent[0].to != "overdue@x.com" || !mailer.sent[0].isOverdue {
		t.Errorf("first email = %+v, want overdue notification to overdue@x.com", mailer.sent[0])
	}
	if mailer.sent[1].to != "soon@x.com" || mailer.sent[1].isOverdue {
		t.Errorf("second email = %+v, want due-soon notification to soon@x.com", mailer.sent[1])
	}
}

func TestRepeatedScansResendWithoutDeduplication(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{tasks: []models.TaskWithOwner{
		dueTask(1, "overdue@x.com", now.Add(-48*time.Hour)),
	}}
	mailer := &recordingMailer{}
	scanner := newTestScanner(source, mailer)

	for _, instant := range []time.Time{now, now.Add(time.Hour)} {
		if _, err := scanner.Run(instant); err != nil {
			t.Fatalf("Run(%v): %v", instant, err)
		}
	}

	if len(mailer.sent) != 2 {
		t.Errorf("sent %d emails across two scans, want 2", len(mailer.sent))
	}
}

func TestSendFailureDoesNotAbortScan(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	source := &fakeSource{tasks: []models.TaskWithOwner{
		dueTask(1, "broken@x.com", now.Add(-time.Hour)),
		dueTask(2, "fine@x.com", now.Add(-time.Hour)),
	}}
	mailer := &recordingMailer{failFor: "broken@x.com"}

	res, err := newTestScanner(source, mailer).Run(now)
	if err != nil {
		t.Fatalf("Run should not fail on a send error: %v", err)
	}
	if res.Sent != 1 || res.Failed != 1 {
		t.Errorf("Result = %+v, want 1 sent, 1 failed", res)
	}
	if len(mailer.sent) != 1 || mailer.sent[0].to != "fine@x.com" {
		t.Errorf("remaining task was not processed: %+v", mailer.sent)
	}
}

func TestReadFailureAbortsScan(t *testing.T) {
	t.Parallel()

	source := &fakeSource{err: errors.New("connection refused")}
	mailer := &recordingMailer{}

	_, err := newTestScanner(source, mailer).Run(time.Now())
	if err == nil {
		t.Fatal("expected a storage read failure to abort the scan")
	}
	if len(mailer.sent) != 0 {
		t.Errorf("no emails should be sent on an aborted scan, got %d", len(mailer.sent))
	}
}

func TestCompletedTasksAreSkipped(t *testing.T) {
	t.Parallel()

	// The query already filters completed tasks; the classifier still guards
	// against them in case the source does not.
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	task := dueTask(1, "done@x.com", now.Add(-time.Hour))
	task.Completed = true
	source := &fakeSource{tasks: []models.TaskWithOwner{task}}
	mailer := &recordingMailer{}

	res, err := newTestScanner(source, mailer).Run(now)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Sent != 0 || len(mailer.sent) != 0 {
		t.Errorf("completed task triggered an email: %+v", mailer.sent)
	}
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	t.Parallel()

	scanner := newTestScanner(&fakeSource{}, &recordingMailer{})
	if _, err := scanner.Schedule("not a cron spec"); err == nil {
		t.Fatal("expected an error for an invalid schedule")
	}
}
