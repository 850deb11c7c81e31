package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"birthday_reminder_bot/internal/app"
)

// Dispatcher fires reminders that are due.
type Dispatcher interface {
	DispatchDue(ctx context.Context) (int, error)
}

type ReminderScheduler struct {
	cronEngine         *cron.Cron
	rescheduler        app.Rescheduler
	dispatcher         Dispatcher
	logger             *logrus.Entry
	cronSpecReschedule string
	cronSpecDispatch   string
}

func NewReminderScheduler(
	rescheduler app.Rescheduler,
	dispatcher Dispatcher,
	logger *logrus.Entry,
	cronSpecReschedule string, // e.g., "5 0 * * *" (00:05 daily)
	cronSpecDispatch string, // e.g., "* * * * *" (every minute)
) *ReminderScheduler {
	return &ReminderScheduler{
		cronEngine:         cron.New(cron.WithLocation(time.Local)), // Use server's local time for cron
		rescheduler:        rescheduler,
		dispatcher:         dispatcher,
		logger:             logger,
		cronSpecReschedule: cronSpecReschedule,
		cronSpecDispatch:   cronSpecDispatch,
	}
}

// Start registers the jobs and starts the cron engine.
func (s *ReminderScheduler) Start() error {
	s.logger.Info("Starting reminder scheduler...")

	// The daily pass moves reminders forward as the horizon slides.
	if _, err := s.cronEngine.AddFunc(s.cronSpecReschedule, func() {
		s.logger.Info("Cron job triggered for planning pass.")
		s.RunPlanningPass(context.Background())
	}); err != nil {
		return fmt.Errorf("could not add planning pass cron job: %w", err)
	}

	if _, err := s.cronEngine.AddFunc(s.cronSpecDispatch, func() {
		s.RunDispatch(context.Background())
	}); err != nil {
		return fmt.Errorf("could not add dispatch cron job: %w", err)
	}

	s.cronEngine.Start()
	s.logger.WithFields(logrus.Fields{
		"reschedule": s.cronSpecReschedule,
		"dispatch":   s.cronSpecDispatch,
	}).Info("Reminder scheduler started with jobs.")
	return nil
}

// RunPlanningPass runs one reschedule with a bounded context and logs the outcome.
func (s *ReminderScheduler) RunPlanningPass(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, 2*time.Minute)
	defer cancel()

	report, err := s.rescheduler.Reschedule(ctx)
	if err != nil {
		s.logger.WithError(err).Error("Planning pass failed")
		return
	}
	if !report.OK() {
		for _, f := range report.Failures {
			s.logger.WithError(f.Err).WithField("reminder_id", f.ID).Warn("Reminder was not scheduled")
		}
	}
}

// RunDispatch sends due reminders with a bounded context.
func (s *ReminderScheduler) RunDispatch(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, 1*time.Minute)
	defer cancel()

	if _, err := s.dispatcher.DispatchDue(ctx); err != nil {
		s.logger.WithError(err).Error("Dispatch tick failed")
	}
}

func (s *ReminderScheduler) Stop() {
	s.logger.Info("Stopping reminder scheduler...")
	ctx := s.cronEngine.Stop() // Stops the scheduler from adding new jobs, waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Reminder scheduler gracefully stopped.")
}
