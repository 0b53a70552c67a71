package email

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/jordan-wright/email"
	"github.com/rsoni/taskmate/internal/config"
	"github.com/sirupsen/logrus"
)

// Sender handles sending emails via SMTP
type Sender struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// NewSender creates a new email sender
func NewSender(cfg *config.Config, logger *logrus.Logger) *Sender {
	return &Sender{
		cfg:    cfg,
		logger: logger,
	}
}

// Send delivers a plain-text email to a single recipient
func (s *Sender) Send(to, subject, body string) error {
	if s.cfg.SMTPUsername == "" || s.cfg.SMTPPassword == "" {
		s.logger.Warnf("SMTP credentials missing; skipping email %q to %s", subject, to)
		return nil
	}

	e := email.NewEmail()
	e.From = s.cfg.SenderEmail
	e.To = []string{to}
	e.Subject = subject
	e.Text = []byte(body)

	addr := fmt.Sprintf("%s:%s", s.cfg.SMTPHost, s.cfg.SMTPPort)
	auth := smtp.PlainAuth("", s.cfg.SMTPUsername, s.cfg.SMTPPassword, s.cfg.SMTPHost)
	if err := e.Send(addr, auth); err != nil {
		s.logger.Errorf("Failed to send email to %s: %v", to, err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Infof("Email sent to %s: %s", to, subject)
	return nil
}

// SendWelcome sends the post-registration welcome email
func (s *Sender) SendWelcome(to, username string) error {
	body := fmt.Sprintf(
		"Hi %s,\n\nThanks for registering on Taskmate!\n\nBest regards,\nTaskmate",
		username,
	)
	return s.Send(to, "Welcome to Taskmate!", body)
}

// SendTaskReminder sends a due-soon or overdue notification for one task
func (s *Sender) SendTaskReminder(to, username, description string, due time.Time, isOverdue bool) error {
	var subject, body string
	if isOverdue {
		subject = fmt.Sprintf("Overdue Task: '%s'", description)
		body = fmt.Sprintf(
			"Hi %s,\n\nYour task '%s' was due on %s and is now overdue!\n\nBest regards,\nTaskmate",
			username, description, due.Format("Jan 02, 2006 03:04 PM"),
		)
	} else {
		subject = fmt.Sprintf("Reminder: '%s' is due soon!", description)
		body = fmt.Sprintf(
			"Hi %s,\n\nYour task '%s' is due on %s.\n\nBest regards,\nTaskmate",
			username, description, due.Format("Jan 02, 2006 03:04 PM"),
		)
	}
	return s.Send(to, subject, body)
}
