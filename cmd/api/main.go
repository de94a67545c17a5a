package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/BAl0zi/Appraisal-System-sub000/docs" // This is for Swagger
	"github.com/BAl0zi/Appraisal-System-sub000/internal/auth"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/config"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/database"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/email"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/handlers"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/keymanager"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/logger"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/middleware"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/repository"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/scheduler"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/securestore"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/service"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/vault"

	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Staff Appraisal API
// @version 1.0
// @description Backend API for the school staff appraisal system

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logger
	logger.Setup(logger.Config{
		Level: cfg.Log.Level,
	})

	slog.Info("Starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"env", cfg.App.Env,
		"log_level", cfg.Log.Level,
	)

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func(db *database.Database) {
		err := db.Close()
		if err != nil {
			slog.Error("Failed to close database connection", "error", err)
		}
	}(db)

	slog.Info("Database connection established")

	// Run database migrations
	migrator := database.NewMigrationExecutor(db.DB)
	if err := migrator.RunMigrations("./migrations"); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database migrations completed")

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.DB)
	sessionRepo := repository.NewSessionRepository(db.DB)
	auditRepo := repository.NewAuditRepository(db.DB)
	assignmentRepo := repository.NewAssignmentRepository(db.DB)
	appraisalRepo := repository.NewAppraisalRepository(db.DB)

	// Initialize services
	tokenService := auth.NewService(&cfg.JWT)
	emailService := email.NewService(&cfg.Email)
	auditService := service.NewAuditService(auditRepo)
	authService := service.NewAuthService(userRepo, sessionRepo, tokenService, &cfg.JWT)
	userService := service.NewUserService(userRepo, sessionRepo, tokenService)
	assignmentService := service.NewAssignmentService(assignmentRepo, userRepo, emailService)

	// Initialize the seal service (if Vault is enabled)
	var sealService *service.SealService
	if cfg.Vault.Enabled {
		slog.Info("Vault is enabled - initializing seal service")
		vaultClient, err := vault.NewClient(&cfg.Vault)
		if err != nil {
			slog.Error("Failed to initialize Vault client", "error", err)
			os.Exit(1)
		}

		keyManager, err := keymanager.NewKeyManager(db.DB, vaultClient)
		if err != nil {
			slog.Error("Failed to initialize KeyManager", "error", err)
			os.Exit(1)
		}

		sealStore := securestore.NewSealStore(db.DB, keyManager)
		sealService = service.NewSealService(keyManager, sealStore)

		slog.Info("Seal service initialized", "vault_addr", cfg.Vault.Address)
	} else {
		slog.Warn("Vault is disabled - completed appraisals will not be sealed")
	}

	appraisalService := service.NewAppraisalService(appraisalRepo, assignmentRepo, userRepo, auditService, emailService, sealService)

	// Initialize scheduler
	schedulerService := scheduler.NewScheduler(appraisalRepo, userRepo, sessionRepo, emailService, sealService, &cfg.Scheduler)
	schedulerService.Start()
	defer schedulerService.Stop()

	// Initialize middleware
	authMw := middleware.NewAuthMiddleware(tokenService, sessionRepo)
	rbacMw := middleware.NewRBACMiddleware(db.DB)
	corsMw := middleware.NewCORSMiddleware(&cfg.CORS)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit)
	auditMw := middleware.NewAuditMiddleware(db.DB)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, tokenService, auditService)
	userHandler := handlers.NewUserHandler(userService, auditService)
	assignmentHandler := handlers.NewAssignmentHandler(assignmentService, auditService)
	appraisalHandler := handlers.NewAppraisalHandler(appraisalService)
	auditHandler := handlers.NewAuditHandler(auditService)

	protected := func(h http.HandlerFunc) http.Handler {
		return authMw.Authenticate(http.HandlerFunc(h))
	}
	directorOnly := func(h http.HandlerFunc) http.Handler {
		return authMw.Authenticate(rbacMw.RequireDirector(http.HandlerFunc(h)))
	}

	// Setup router
	mux := http.NewServeMux()

	// Auth routes
	mux.HandleFunc("POST /api/v1/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/v1/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /api/v1/auth/logout", authHandler.Logout)
	mux.Handle("GET /api/v1/auth/me", protected(authHandler.Me))
	mux.Handle("POST /api/v1/auth/change-password", protected(authHandler.ChangePassword))

	// User management. Reading the roster is open to any staff member,
	// account mutations are director only.
	mux.Handle("GET /api/v1/users", protected(userHandler.List))
	mux.Handle("GET /api/v1/users/{id}", protected(userHandler.Get))
	mux.Handle("POST /api/v1/users", directorOnly(userHandler.Create))
	mux.Handle("PUT /api/v1/users/{id}", directorOnly(userHandler.Update))
	mux.Handle("POST /api/v1/users/{id}/reset-password", directorOnly(userHandler.ResetPassword))
	mux.Handle("DELETE /api/v1/users/{id}", directorOnly(userHandler.Delete))

	// Appraiser assignments
	mux.Handle("GET /api/v1/assignments", directorOnly(assignmentHandler.List))
	mux.Handle("POST /api/v1/assignments", directorOnly(assignmentHandler.Assign))
	mux.Handle("DELETE /api/v1/assignments", directorOnly(assignmentHandler.Remove))
	mux.Handle("GET /api/v1/assignments/eligible", directorOnly(assignmentHandler.Eligible))
	mux.Handle("GET /api/v1/assignments/my-appraisees", protected(assignmentHandler.MyAppraisees))
	mux.Handle("GET /api/v1/assignments/my-appraiser", protected(assignmentHandler.MyAppraiser))

	// Appraisals
	mux.Handle("POST /api/v1/appraisals/save", protected(appraisalHandler.Save))
	mux.Handle("GET /api/v1/appraisals/my", protected(appraisalHandler.My))
	mux.Handle("GET /api/v1/appraisals/deletion-requests", directorOnly(appraisalHandler.DeletionRequests))
	mux.Handle("GET /api/v1/appraisals/{id}", protected(appraisalHandler.Get))
	mux.Handle("POST /api/v1/appraisals/{id}/transition", protected(appraisalHandler.Transition))
	mux.Handle("POST /api/v1/appraisals/{id}/observations/{slot}/complete", protected(appraisalHandler.ObservationComplete))
	mux.Handle("POST /api/v1/appraisals/{id}/reset-status", directorOnly(appraisalHandler.ResetStatus))
	mux.Handle("POST /api/v1/appraisals/{id}/request-deletion", protected(appraisalHandler.RequestDeletion))
	mux.Handle("POST /api/v1/appraisals/{id}/approve-deletion", directorOnly(appraisalHandler.ApproveDeletion))
	mux.Handle("POST /api/v1/appraisals/{id}/reject-deletion", directorOnly(appraisalHandler.RejectDeletion))
	mux.Handle("GET /api/v1/appraisals/{id}/score", protected(appraisalHandler.Score))
	mux.Handle("GET /api/v1/appraisals/{id}/scoresheet.xlsx",
		authMw.Authenticate(
			auditMw.Log("appraisal.export", "appraisals", "scoresheet download")(
				http.HandlerFunc(appraisalHandler.Scoresheet),
			),
		),
	)
	mux.Handle("GET /api/v1/appraisals/{id}/seal", protected(appraisalHandler.Seal))

	// Audit log
	mux.Handle("GET /api/v1/audit", directorOnly(auditHandler.List))

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.HealthCheck(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, err := w.Write([]byte(`{"status":"unhealthy","database":"error"}`))
			if err != nil {
				slog.Error("Failed to write health check response", "error", err)
				return
			}
			return
		}
		w.WriteHeader(http.StatusOK)
		_, err := w.Write([]byte(`{"status":"healthy","version":"` + cfg.App.Version + `"}`))
		if err != nil {
			slog.Error("Failed to write health check response", "error", err)
			return
		}
	})

	// Swagger documentation
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	// Apply global middleware
	handler := middleware.LoggingMiddleware(
		middleware.SecurityHeaders(
			corsMw.Handler(
				rateLimiter.Limit(mux),
			),
		),
	)

	// Create server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.TimeoutRead,
		WriteTimeout: cfg.Server.TimeoutWrite,
		IdleTimeout:  cfg.Server.TimeoutIdle,
	}

	// Start server in a goroutine
	go func() {
		slog.Info("Server starting", "address", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped")
}
