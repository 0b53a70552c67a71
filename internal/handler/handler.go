package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/rsoni/taskmate/internal/classify"
	"github.com/rsoni/taskmate/internal/middleware"
	"github.com/rsoni/taskmate/internal/models"
	"github.com/rsoni/taskmate/internal/reminder"
	"github.com/rsoni/taskmate/internal/service"
	"github.com/sirupsen/logrus"
)

// dueDateLayout matches the HTML datetime-local form value.
const dueDateLayout = "2006-01-02T15:04"

type Handler struct {
	svc      *service.Service
	scanner  *reminder.Scanner
	validate *validator.Validate
	loc      *time.Location
	log      *logrus.Logger
}

func NewHandler(svc *service.Service, scanner *reminder.Scanner, loc *time.Location, log *logrus.Logger) *Handler {
	return &Handler{
		svc:      svc,
		scanner:  scanner,
		validate: validator.New(),
		loc:      loc,
		log:      log,
	}
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type taskRequest struct {
	Description string `json:"description"`
	DueDate     string `json:"due_date"` // "YYYY-MM-DDTHH:MM", optional
}

// taskView is a task annotated with its dashboard classification.
type taskView struct {
	models.Task
	classify.Classification
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, models.NewValidationError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, models.NewValidationError("username, valid email and password (min 6 chars) are required"))
		return
	}

	user, err := h.svc.Register(req.Username, req.Email, req.Password)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, user)
}

// Login handles user authentication
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, models.NewValidationError("invalid request body"))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.respondError(w, models.NewValidationError("username and password are required"))
		return
	}

	token, err := h.svc.Login(req.Username, req.Password)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

// ListTasks returns the owner's tasks annotated with overdue/due-soon flags
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	tasks, err := h.svc.ListTasks(ownerID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	now := h.svc.Now()
	views := make([]taskView, 0, len(tasks))
	for _, task := range tasks {
		views = append(views, taskView{
			Task:           task,
			Classification: classify.Classify(task.DueDate, task.Completed, now, classify.DashboardWindow),
		})
	}
	h.respondJSON(w, http.StatusOK, views)
}

// CreateTask adds a task for the owner
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, models.NewValidationError("invalid request body"))
		return
	}

	task, err := h.svc.CreateTask(ownerID, req.Description, h.parseDue(req.DueDate))
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusCreated, task)
}

// UpdateTask rewrites a task's description and due date
func (h *Handler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	taskID, err := h.taskID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, models.NewValidationError("invalid request body"))
		return
	}

	if err := h.svc.UpdateTask(ownerID, taskID, req.Description, h.parseDue(req.DueDate)); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteTask removes a task
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	taskID, err := h.taskID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if err := h.svc.DeleteTask(ownerID, taskID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleTask flips a task's completion flag
func (h *Handler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}
	taskID, err := h.taskID(r)
	if err != nil {
		h.respondError(w, err)
		return
	}

	completed, err := h.svc.ToggleCompleted(ownerID, taskID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]bool{"completed": completed})
}

// Stats returns the owner's dashboard counters
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := h.owner(w, r)
	if !ok {
		return
	}

	stats, err := h.svc.TaskStats(ownerID, h.svc.Now())
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, stats)
}

// RunReminders triggers one reminder scan synchronously, for manual
// verification
func (h *Handler) RunReminders(w http.ResponseWriter, r *http.Request) {
	res, err := h.scanner.RunNow()
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, res)
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// parseDue converts the form value into a timestamp in the application
// zone. Empty or unparseable input means no due date, not an error.
func (h *Handler) parseDue(value string) *time.Time {
	if value == "" {
		return nil
	}
	due, err := time.ParseInLocation(dueDateLayout, value, h.loc)
	if err != nil {
		return nil
	}
	return &due
}

func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (int64, bool) {
	ownerID, ok := middleware.OwnerFromContext(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return 0, false
	}
	return ownerID, true
}

func (h *Handler) taskID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		return 0, models.NewValidationError("invalid task id")
	}
	return id, nil
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Errorf("Failed to encode response: %v", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		http.Error(w, vErr.Message, http.StatusBadRequest)
	case errors.Is(err, models.ErrConflict):
		http.Error(w, "Username or email already exists", http.StatusConflict)
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, "Task not found", http.StatusNotFound)
	case errors.Is(err, models.ErrInvalidCredentials):
		http.Error(w, "Invalid username or password", http.StatusUnauthorized)
	default:
		h.log.Errorf("Internal error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}
