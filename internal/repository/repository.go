package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/rsoni/taskmate/internal/classify"
	"github.com/rsoni/taskmate/internal/models"
)

// Repository provides database operations
type Repository struct {
	db  *sql.DB
	loc *time.Location
}

// NewRepository initializes a new repository. Due timestamps are stored
// without zone information; loc is the zone their wall clock is read back in.
func NewRepository(db *sql.DB, loc *time.Location) *Repository {
	return &Repository{db: db, loc: loc}
}

// InitSchema creates the users and tasks tables if they do not exist yet
func (r *Repository) InitSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id SERIAL PRIMARY KEY,
			user_id INTEGER REFERENCES users(id) ON DELETE CASCADE,
			description TEXT NOT NULL,
			due_date TIMESTAMP,
			completed BOOLEAN DEFAULT FALSE
		)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

// CreateUser creates a new user in the database
func (r *Repository) CreateUser(user *models.User) error {
	query := `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id`
	err := r.db.QueryRow(query, user.Username, user.Email, user.PasswordHash).
		Scan(&user.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return models.ErrConflict
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// FindUserByUsername retrieves a user by username
func (r *Repository) FindUserByUsername(username string) (*models.User, error) {
	user := &models.User{}
	query := `
		SELECT id, username, email, password_hash
		FROM users
		WHERE username = $1`
	err := r.db.QueryRow(query, username).
		Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// CreateTask creates a new task in the database
func (r *Repository) CreateTask(task *models.Task) error {
	query := `
		INSERT INTO tasks (user_id, description, due_date, completed)
		VALUES ($1, $2, $3, FALSE)
		RETURNING id`
	err := r.db.QueryRow(query, task.UserID, task.Description, nullTime(task.DueDate)).
		Scan(&task.ID)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// ListTasks returns all tasks owned by ownerID, soonest due first, tasks
// without a due date last
func (r *Repository) ListTasks(ownerID int64) ([]models.Task, error) {
	query := `
		SELECT id, user_id, description, due_date, completed
		FROM tasks
		WHERE user_id = $1
		ORDER BY due_date IS NULL, due_date`
	rows, err := r.db.Query(query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.Task
	for rows.Next() {
		task, err := r.scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// UpdateTask rewrites the description and due date of a task owned by ownerID
func (r *Repository) UpdateTask(ownerID, taskID int64, description string, due *time.Time) error {
	query := `
		UPDATE tasks SET description = $1, due_date = $2
		WHERE id = $3 AND user_id = $4`
	res, err := r.db.Exec(query, description, nullTime(due), taskID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return requireRow(res)
}

// DeleteTask removes a task owned by ownerID
func (r *Repository) DeleteTask(ownerID, taskID int64) error {
	res, err := r.db.Exec(`DELETE FROM tasks WHERE id = $1 AND user_id = $2`, taskID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return requireRow(res)
}

// ToggleCompleted flips the completion flag of a task owned by ownerID and
// returns the new value
func (r *Repository) ToggleCompleted(ownerID, taskID int64) (bool, error) {
	query := `
		UPDATE tasks SET completed = NOT completed
		WHERE id = $1 AND user_id = $2
		RETURNING completed`
	var completed bool
	err := r.db.QueryRow(query, taskID, ownerID).Scan(&completed)
	if err == sql.ErrNoRows {
		return false, models.ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("failed to toggle task: %w", err)
	}
	return completed, nil
}

// DueTasksWithOwners loads every incomplete task with a due date across all
// users, joined with the owner's contact details, for the reminder scan
func (r *Repository) DueTasksWithOwners() ([]models.TaskWithOwner, error) {
	query := `
		SELECT t.id, t.user_id, t.description, t.due_date, t.completed, u.email, u.username
		FROM tasks t
		JOIN users u ON t.user_id = u.id
		WHERE t.due_date IS NOT NULL AND t.completed = FALSE`
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to load due tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.TaskWithOwner
	for rows.Next() {
		var (
			t   models.TaskWithOwner
			due sql.NullTime
		)
		err := rows.Scan(&t.ID, &t.UserID, &t.Description, &due, &t.Completed, &t.OwnerEmail, &t.OwnerUsername)
		if err != nil {
			return nil, fmt.Errorf("failed to scan due task: %w", err)
		}
		t.DueDate = r.localTime(due)
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load due tasks: %w", err)
	}
	return tasks, nil
}

func (r *Repository) scanTask(rows *sql.Rows) (models.Task, error) {
	var (
		task models.Task
		due  sql.NullTime
	)
	err := rows.Scan(&task.ID, &task.UserID, &task.Description, &due, &task.Completed)
	if err != nil {
		return models.Task{}, fmt.Errorf("failed to scan task: %w", err)
	}
	task.DueDate = r.localTime(due)
	return task, nil
}

// localTime reinterprets a scanned naive timestamp in the configured zone.
func (r *Repository) localTime(due sql.NullTime) *time.Time {
	if !due.Valid {
		return nil
	}
	ts := classify.InZone(due.Time, r.loc)
	return &ts
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
