package models

import "time"

// Task represents a single to-do item owned by a user
type Task struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Completed   bool       `json:"completed"`
}

// TaskWithOwner is a task joined with its owner's contact details,
// used by the reminder scan
type TaskWithOwner struct {
	Task
	OwnerEmail    string
	OwnerUsername string
}
