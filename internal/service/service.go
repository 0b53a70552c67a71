package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rsoni/taskmate/internal/classify"
	"github.com/rsoni/taskmate/internal/config"
	"github.com/rsoni/taskmate/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// UserStore is the account persistence the service depends on.
// *repository.Repository satisfies it.
type UserStore interface {
	CreateUser(user *models.User) error
	FindUserByUsername(username string) (*models.User, error)
}

// TaskStore is the task persistence the service depends on.
// *repository.Repository satisfies it.
type TaskStore interface {
	CreateTask(task *models.Task) error
	ListTasks(ownerID int64) ([]models.Task, error)
	UpdateTask(ownerID, taskID int64, description string, due *time.Time) error
	DeleteTask(ownerID, taskID int64) error
	ToggleCompleted(ownerID, taskID int64) (bool, error)
}

// Mailer is the outbound mail transport used for the welcome email.
type Mailer interface {
	SendWelcome(to, username string) error
}

// Service handles business logic
type Service struct {
	users  UserStore
	tasks  TaskStore
	mailer Mailer
	log    *logrus.Logger
	config *config.Config
}

// NewService initializes a new service
func NewService(users UserStore, tasks TaskStore, mailer Mailer, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{users: users, tasks: tasks, mailer: mailer, log: log, config: cfg}
}

// Register creates a new user with hashed password and sends a welcome
// email. The email is best-effort: registration succeeds even if it fails.
func (s *Service) Register(username, email, password string) (*models.User, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}

	if err := s.users.CreateUser(user); err != nil {
		return nil, err
	}

	if err := s.mailer.SendWelcome(user.Email, user.Username); err != nil {
		s.log.Warnf("Welcome email to %s failed: %v", user.Email, err)
	}

	s.log.Infof("User registered: %s", user.Username)
	return user, nil
}

// Login authenticates a user and returns a JWT token
func (s *Service) Login(username, password string) (string, error) {
	user, err := s.users.FindUserByUsername(username)
	if err != nil {
		return "", models.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", models.ErrInvalidCredentials
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   fmt.Sprintf("%d", user.ID),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("User logged in: %s", user.Username)
	return tokenString, nil
}

// CreateTask creates a task for the owner. The description must be non-empty
// after trimming; a missing due date is allowed.
func (s *Service) CreateTask(ownerID int64, description string, due *time.Time) (*models.Task, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, models.NewValidationError("task description is required")
	}

	task := &models.Task{
		UserID:      ownerID,
		Description: description,
		DueDate:     due,
	}
	if err := s.tasks.CreateTask(task); err != nil {
		return nil, err
	}

	s.log.Infof("Task %d created for user %d", task.ID, ownerID)
	return task, nil
}

// ListTasks returns the owner's tasks, soonest due first
func (s *Service) ListTasks(ownerID int64) ([]models.Task, error) {
	return s.tasks.ListTasks(ownerID)
}

// UpdateTask rewrites a task's description and due date
func (s *Service) UpdateTask(ownerID, taskID int64, description string, due *time.Time) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return models.NewValidationError("task description is required")
	}
	if err := s.tasks.UpdateTask(ownerID, taskID, description, due); err != nil {
		return err
	}
	s.log.Infof("Task %d updated for user %d", taskID, ownerID)
	return nil
}

// DeleteTask removes a task
func (s *Service) DeleteTask(ownerID, taskID int64) error {
	if err := s.tasks.DeleteTask(ownerID, taskID); err != nil {
		return err
	}
	s.log.Infof("Task %d deleted for user %d", taskID, ownerID)
	return nil
}

// ToggleCompleted flips a task's completion flag and returns the new value
func (s *Service) ToggleCompleted(ownerID, taskID int64) (bool, error) {
	return s.tasks.ToggleCompleted(ownerID, taskID)
}

// TaskStats computes the owner's dashboard counters by classifying each task
// against now with the two-day dashboard window
func (s *Service) TaskStats(ownerID int64, now time.Time) (models.TaskStats, error) {
	tasks, err := s.tasks.ListTasks(ownerID)
	if err != nil {
		return models.TaskStats{}, err
	}

	stats := models.TaskStats{Total: len(tasks)}
	for _, task := range tasks {
		if task.Completed {
			stats.Completed++
		}
		c := classify.Classify(task.DueDate, task.Completed, now, classify.DashboardWindow)
		if c.Overdue {
			stats.Overdue++
		}
		if c.DueSoon {
			stats.DueSoon++
		}
	}
	stats.Pending = stats.Total - stats.Completed
	return stats, nil
}

// Now returns the current instant in the application's configured zone
func (s *Service) Now() time.Time {
	return time.Now().In(s.config.Location)
}
