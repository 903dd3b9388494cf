package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	tokenCleanupSchedule  = "0 30 3 * * *"
	revokedTokenRetention = 7 * 24 * time.Hour
	jobTimeout            = 10 * time.Minute
)

// ReminderSender sends the pending-upload reminders. Implemented by *BusinessService.
type ReminderSender interface {
	SendUploadReminders(ctx context.Context, minAge time.Duration) (int, error)
}

// TokenCleaner purges expired operator sessions. Implemented by *database.AdminRefreshTokenRepository.
type TokenCleaner interface {
	CleanupExpired(ctx context.Context, revokedRetention time.Duration) (int64, error)
}

// CronSchedule configures the scheduled jobs
type CronSchedule struct {
	Location         *time.Location
	ReminderSchedule string
	ReminderMinAge   time.Duration
}

// CronService manages scheduled background jobs
type CronService struct {
	cron      *cron.Cron
	schedule  CronSchedule
	reminders ReminderSender
	tokens    TokenCleaner
	logger    *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(schedule CronSchedule, reminders ReminderSender, tokens TokenCleaner, logger *logrus.Logger) *CronService {
	location := schedule.Location
	if location == nil {
		location = time.UTC
	}
	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	return &CronService{
		cron:      c,
		schedule:  schedule,
		reminders: reminders,
		tokens:    tokens,
		logger:    logger,
	}
}

// Start schedules every job and starts the scheduler
func (s *CronService) Start() error {
	// second minute hour day month weekday
	if _, err := s.cron.AddFunc(s.schedule.ReminderSchedule, s.uploadRemindersJob); err != nil {
		return fmt.Errorf("failed to schedule upload reminders job: %w", err)
	}
	if _, err := s.cron.AddFunc(tokenCleanupSchedule, s.tokenCleanupJob); err != nil {
		return fmt.Errorf("failed to schedule token cleanup job: %w", err)
	}

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"reminders": s.schedule.ReminderSchedule,
		"cleanup":   tokenCleanupSchedule,
		"location":  s.cron.Location().String(),
	}).Info("Cron service started")
	return nil
}

// Stop waits for running jobs and stops the scheduler
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) uploadRemindersJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	startTime := time.Now()
	sent, err := s.reminders.SendUploadReminders(ctx, s.schedule.ReminderMinAge)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Upload reminders job failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"sent":     sent,
		"duration": time.Since(startTime).String(),
	}).Info("[CRON] Upload reminders job completed")
}

func (s *CronService) tokenCleanupJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	removed, err := s.tokens.CleanupExpired(ctx, revokedTokenRetention)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Token cleanup job failed")
		return
	}
	s.logger.WithField("removed", removed).Info("[CRON] Token cleanup job completed")
}

// RunUploadRemindersNow runs the reminder job synchronously
func (s *CronService) RunUploadRemindersNow(ctx context.Context) (int, error) {
	return s.reminders.SendUploadReminders(ctx, s.schedule.ReminderMinAge)
}

// GetJobStatus reports the next and previous run of every scheduled job
func (s *CronService) GetJobStatus() map[string]interface{} {
	jobs := make([]map[string]interface{}, 0)
	for _, entry := range s.cron.Entries() {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}
	return map[string]interface{}{
		"running": len(jobs) > 0,
		"jobs":    jobs,
	}
}
