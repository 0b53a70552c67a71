package models

// TaskStats represents per-user dashboard counters
type TaskStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Overdue   int `json:"overdue"`
	DueSoon   int `json:"due_soon"`
}
