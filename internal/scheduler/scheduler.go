package scheduler

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/BAl0zi/Appraisal-System-sub000/internal/config"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/email"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/models"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/repository"
	"github.com/BAl0zi/Appraisal-System-sub000/internal/service"
)

// Scheduler handles periodic tasks
type Scheduler struct {
	appraisalRepo *repository.AppraisalRepository
	userRepo      *repository.UserRepository
	sessionRepo   *repository.SessionRepository
	emailService  *email.Service
	sealService   *service.SealService
	config        *config.SchedulerConfig
	stopChan      chan bool
}

// NewScheduler creates a new scheduler
func NewScheduler(
	appraisalRepo *repository.AppraisalRepository,
	userRepo *repository.UserRepository,
	sessionRepo *repository.SessionRepository,
	emailService *email.Service,
	sealService *service.SealService,
	cfg *config.SchedulerConfig,
) *Scheduler {
	return &Scheduler{
		appraisalRepo: appraisalRepo,
		userRepo:      userRepo,
		sessionRepo:   sessionRepo,
		emailService:  emailService,
		sealService:   sealService,
		config:        cfg,
		stopChan:      make(chan bool),
	}
}

// Start starts all scheduled tasks
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler",
		"draft_reminders_enabled", s.config.EnableDraftReminders,
		"seal_validation_enabled", s.config.EnableSealValidation)

	if s.config.EnableDraftReminders {
		if err := s.startCronTask(s.config.DraftReminderCron, "draft_reminders", s.sendDraftReminders); err != nil {
			slog.Error("Failed to start draft reminders", "error", err)
		}
	}

	if s.config.EnableSealValidation {
		if err := s.startCronTask(s.config.SealValidationCron, "seal_validation", s.validateSealChains); err != nil {
			slog.Error("Failed to start seal validation", "error", err)
		}
	}

	go s.scheduleIntervalTask(time.Hour, "session_cleanup", s.cleanupSessions)

	slog.Info("Scheduler started")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	slog.Info("Stopping scheduler")
	close(s.stopChan)
}

// startCronTask parses a cron expression and starts the task.
// Supports a simple cron format: "minute hour day month weekday".
// Examples: "0 9 * * 1" = Monday 9 AM, "0 2 * * *" = daily 2 AM,
// "*/5 * * * *" = every 5 minutes.
func (s *Scheduler) startCronTask(cronExpr, taskName string, task func()) error {
	parts := strings.Fields(cronExpr)
	if len(parts) != 5 {
		return fmt.Errorf("invalid cron expression: %s (expected 5 fields)", cronExpr)
	}

	if strings.HasPrefix(parts[0], "*/") {
		interval, err := strconv.Atoi(parts[0][2:])
		if err != nil || interval < 1 || interval > 59 {
			return fmt.Errorf("invalid minute interval in cron: %s", parts[0])
		}
		go s.scheduleIntervalTask(time.Duration(interval)*time.Minute, taskName, task)
		return nil
	}

	minute, err := strconv.Atoi(parts[0])
	if err != nil || minute < 0 || minute > 59 {
		return fmt.Errorf("invalid minute in cron: %s", parts[0])
	}

	hour, err := strconv.Atoi(parts[1])
	if err != nil || hour < 0 || hour > 23 {
		return fmt.Errorf("invalid hour in cron: %s", parts[1])
	}

	if parts[4] == "*" {
		go s.scheduleDailyTask(hour, minute, taskName, task)
	} else {
		weekday, err := strconv.Atoi(parts[4])
		if err != nil || weekday < 0 || weekday > 6 {
			return fmt.Errorf("invalid weekday in cron: %s (0-6, 0=Sunday)", parts[4])
		}
		go s.scheduleWeeklyTask(time.Weekday(weekday), hour, minute, taskName, task)
	}

	return nil
}

// scheduleIntervalTask runs a task at regular intervals
func (s *Scheduler) scheduleIntervalTask(interval time.Duration, taskName string, task func()) {
	slog.Info("Starting interval task", "task", taskName, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			slog.Info("Running interval task", "task", taskName)
			task()
		case <-s.stopChan:
			return
		}
	}
}

// scheduleDailyTask runs a task daily at a specific time
func (s *Scheduler) scheduleDailyTask(hour, minute int, taskName string, task func()) {
	for {
		now := time.Now()
		next := nextDailyRun(now, hour, minute)

		slog.Info("Next daily task scheduled", "task", taskName, "next_run", next.Format("2006-01-02 15:04:05"))

		select {
		case <-time.After(next.Sub(now)):
			slog.Info("Running daily task", "task", taskName)
			task()
		case <-s.stopChan:
			return
		}
	}
}

// scheduleWeeklyTask runs a task weekly on a specific weekday and time
func (s *Scheduler) scheduleWeeklyTask(weekday time.Weekday, hour, minute int, taskName string, task func()) {
	for {
		now := time.Now()
		next := nextWeekday(now, weekday, hour, minute)

		slog.Info("Next weekly task scheduled", "task", taskName, "next_run", next.Format("2006-01-02 15:04:05"))

		select {
		case <-time.After(next.Sub(now)):
			slog.Info("Running weekly task", "task", taskName)
			task()
		case <-s.stopChan:
			return
		}
	}
}

// nextDailyRun calculates the next daily run time
func nextDailyRun(from time.Time, hour, minute int) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), hour, minute, 0, 0, from.Location())
	if next.Before(from) || next.Equal(from) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// nextWeekday calculates the next occurrence of a weekday and time
func nextWeekday(from time.Time, weekday time.Weekday, hour, minute int) time.Time {
	next := time.Date(from.Year(), from.Month(), from.Day(), hour, minute, 0, 0, from.Location())

	daysUntil := int(weekday - from.Weekday())
	if daysUntil < 0 {
		daysUntil += 7
	}
	next = next.AddDate(0, 0, daysUntil)

	if next.Before(from) || next.Equal(from) {
		next = next.AddDate(0, 0, 7)
	}

	return next
}

// sendDraftReminders mails each appraiser a list of their appraisal drafts
// that have not been touched within the configured staleness window
func (s *Scheduler) sendDraftReminders() {
	slog.Info("Sending draft reminders")

	cutoff := time.Now().AddDate(0, 0, -s.config.DraftStaleDays)
	drafts, err := s.appraisalRepo.GetStaleDrafts(cutoff)
	if err != nil {
		slog.Error("Failed to get stale drafts", "error", err)
		return
	}

	if len(drafts) == 0 {
		slog.Info("No stale drafts found")
		return
	}

	// Group by appraiser so each gets a single digest
	byAppraiser := make(map[uint][]models.AppraisalWithNames)
	for _, d := range drafts {
		byAppraiser[d.AppraiserID] = append(byAppraiser[d.AppraiserID], d)
	}

	remindersSent := 0
	for appraiserID, items := range byAppraiser {
		appraiser, err := s.userRepo.GetByID(appraiserID)
		if err != nil {
			slog.Error("Failed to get appraiser", "appraiser_id", appraiserID, "error", err)
			continue
		}
		if !appraiser.IsActive {
			continue
		}

		if err := s.emailService.SendDraftReminder(appraiser.Email, appraiser.FullName, items); err != nil {
			slog.Error("Failed to send draft reminder",
				"appraiser_email", appraiser.Email,
				"error", err,
			)
			continue
		}

		remindersSent++
		slog.Info("Draft reminder sent",
			"appraiser_email", appraiser.Email,
			"draft_count", len(items),
		)
	}

	slog.Info("Draft reminders completed", "reminders_sent", remindersSent)
}

// validateSealChains verifies the hash chain of every sealed term and alerts
// directors on failures
func (s *Scheduler) validateSealChains() {
	// Skip if sealing is not available (Vault disabled)
	if s.sealService == nil {
		slog.Warn("Seal chain validation skipped - Vault is disabled")
		return
	}

	slog.Info("Starting seal chain validation")

	problems, err := s.sealService.VerifyAllChains()
	if err != nil {
		slog.Error("Failed to verify seal chains", "error", err)
		return
	}

	if len(problems) == 0 {
		slog.Info("Seal chain validation completed, all chains valid")
		return
	}

	for term, errs := range problems {
		slog.Warn("Seal chain validation failed", "term", term, "errors", errs)
	}

	if err := s.sendSealAlert(problems); err != nil {
		slog.Error("Failed to send seal alert", "error", err)
	}
}

// sendSealAlert mails every active director about seal verification failures
func (s *Scheduler) sendSealAlert(problems map[string][]string) error {
	directors, err := s.userRepo.GetByRoles([]models.StaffRole{models.RoleDirector})
	if err != nil {
		return fmt.Errorf("failed to get directors: %w", err)
	}

	if len(directors) == 0 {
		slog.Warn("No directors found to send seal alert")
		return nil
	}

	alertsSent := 0
	for _, director := range directors {
		if !director.IsActive || director.Email == "" {
			continue
		}

		if err := s.emailService.SendSealAlert(director.Email, director.FullName, problems); err != nil {
			slog.Error("Failed to send seal alert", "director_email", director.Email, "error", err)
			continue
		}

		alertsSent++
		slog.Info("Seal alert sent", "director_email", director.Email)
	}

	slog.Info("Seal alerts completed", "alerts_sent", alertsSent)
	return nil
}

// cleanupSessions removes expired sessions
func (s *Scheduler) cleanupSessions() {
	if err := s.sessionRepo.DeleteExpiredSessions(); err != nil {
		slog.Error("Failed to clean up expired sessions", "error", err)
	}
}
