package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"database/sql"

	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
	"github.com/rsoni/taskmate/internal/config"
	"github.com/rsoni/taskmate/internal/handler"
	"github.com/rsoni/taskmate/internal/middleware"
	"github.com/rsoni/taskmate/internal/reminder"
	"github.com/rsoni/taskmate/internal/repository"
	"github.com/rsoni/taskmate/internal/service"
	"github.com/rsoni/taskmate/internal/utils/email"
	"github.com/sirupsen/logrus"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logLevel, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL"))
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database
	db, err := sql.Open("postgres", cfg.DBConn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}

	// Initialize layers
	repo := repository.NewRepository(db, cfg.Location)
	if err := repo.InitSchema(); err != nil {
		logger.Fatalf("Failed to init schema: %v", err)
	}
	sender := email.NewSender(cfg, logger)
	svc := service.NewService(repo, repo, sender, logger, cfg)
	scanner := reminder.NewScanner(repo, sender, logger, cfg.Location)
	h := handler.NewHandler(svc, scanner, cfg.Location, logger)

	// Start hourly reminder scans
	cronJob, err := scanner.Schedule(cfg.ReminderSchedule)
	if err != nil {
		logger.Fatalf("Failed to schedule reminder scanner: %v", err)
	}

	// Setup router
	r := mux.NewRouter()
	r.Use(middleware.Logging(logger))
	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/health", h.Health).Methods("GET")
	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.Auth(cfg))
	authRouter.HandleFunc("/tasks", h.ListTasks).Methods("GET")
	authRouter.HandleFunc("/tasks", h.CreateTask).Methods("POST")
	authRouter.HandleFunc("/tasks/{id:[0-9]+}", h.UpdateTask).Methods("PUT")
	authRouter.HandleFunc("/tasks/{id:[0-9]+}", h.DeleteTask).Methods("DELETE")
	authRouter.HandleFunc("/tasks/{id:[0-9]+}/toggle", h.ToggleTask).Methods("POST")
	authRouter.HandleFunc("/stats", h.Stats).Methods("GET")
	authRouter.HandleFunc("/reminders/run", h.RunReminders).Methods("POST")

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("Starting server on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Server failed: %v", err)
		}
	}()

	// Orderly shutdown: stop the scanner first, then drain the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down")

	cronJob.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("Server shutdown failed: %v", err)
	}
}
