package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"birthday_reminder_bot/internal/domain/delivery"
	"birthday_reminder_bot/internal/domain/recurrence"
	"birthday_reminder_bot/internal/domain/reminder"
	"birthday_reminder_bot/internal/domain/subject"
	"birthday_reminder_bot/internal/infra/metrics"
)

// Rescheduler runs a planning pass. SubjectService depends on this to react to data changes.
type Rescheduler interface {
	Reschedule(ctx context.Context) (reminder.ScheduleReport, error)
}

// ReminderService runs planning passes against the delivery scheduler.
type ReminderService struct {
	subjectRepo subject.Repository
	scheduler   delivery.Scheduler
	planner     *Planner
	horizon     time.Duration
	now         func() time.Time
	metrics     *metrics.Metrics
	logger      *logrus.Entry

	// mu keeps one pass per service; the store serializes across processes.
	mu sync.Mutex
}

func NewReminderService(
	sr subject.Repository,
	sched delivery.Scheduler,
	planner *Planner,
	horizon time.Duration,
	now func() time.Time,
	m *metrics.Metrics,
	logger *logrus.Entry,
) *ReminderService {
	if now == nil {
		now = time.Now
	}
	return &ReminderService{
		subjectRepo: sr,
		scheduler:   sched,
		planner:     planner,
		horizon:     horizon,
		now:         now,
		metrics:     m,
		logger:      logger,
	}
}

// Reschedule replaces every managed reminder with the output of a fresh plan.
// Nothing is cleared if the subject snapshot cannot be read, and nothing is
// enqueued if the replacement cannot be applied. Individual enqueue failures
// are collected in the report without stopping the batch. Delivered reminders
// older than the horizon are pruned in the same pass.
func (s *ReminderService) Reschedule(ctx context.Context) (reminder.ScheduleReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	defer s.metrics.ObservePass(start)

	var report reminder.ScheduleReport

	subjects, err := s.subjectRepo.ListAll(ctx)
	if err != nil {
		s.metrics.PlanningFailures.Inc()
		s.logger.WithError(err).Error("Failed to load subjects for planning pass")
		return report, fmt.Errorf("failed to list subjects: %w", err)
	}

	now := s.now()
	instructions := s.planner.Plan(subjects, now, s.horizon)
	report.Planned = len(instructions)

	batch := delivery.Batch{
		Prefix:       s.planner.Prefix(),
		Instructions: instructions,
		Now:          now,
	}
	if s.horizon > 0 {
		batch.PruneBefore = now.Add(-s.horizon)
	}

	results, err := s.scheduler.ReplaceManaged(ctx, batch)
	if err != nil {
		s.metrics.PlanningFailures.Inc()
		s.logger.WithError(err).WithField("prefix", batch.Prefix).Error("Failed to replace managed reminders")
		return report, fmt.Errorf("failed to replace managed reminders: %w", err)
	}

	fireAt := make(map[string]time.Time, len(instructions))
	for _, in := range instructions {
		fireAt[in.ID] = in.FireAt
	}
	for _, res := range results {
		report.Record(res.ID, res.Err)
		if res.Err != nil {
			s.logger.WithError(res.Err).WithFields(logrus.Fields{
				"reminder_id": res.ID,
				"fire_at":     fireAt[res.ID].Format(time.RFC3339),
			}).Warn("Failed to enqueue reminder")
		}
	}

	s.metrics.PlanningPasses.Inc()
	s.metrics.RemindersPlanned.Add(float64(report.Planned))
	s.metrics.EnqueueFailures.Add(float64(len(report.Failures)))

	s.logger.WithFields(logrus.Fields{
		"subjects": len(subjects),
		"planned":  report.Planned,
		"enqueued": report.Enqueued,
		"failed":   len(report.Failures),
	}).Info("Planning pass complete")

	return report, nil
}

// UpcomingBirthday is one row of the upcoming-birthdays listing.
type UpcomingBirthday struct {
	Subject          *subject.Subject
	Occurrence       recurrence.Occurrence
	IsChildMilestone bool
	IsElderMilestone bool
}

// Upcoming lists the subjects a planning pass would plan for, ordered by
// their next occurrence. A non-positive limit returns all of them.
func (s *ReminderService) Upcoming(ctx context.Context, limit int) ([]UpcomingBirthday, error) {
	subjects, err := s.subjectRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}

	now := s.now()
	rows := make([]UpcomingBirthday, 0, len(subjects))
	for _, sub := range subjects {
		occ, ok := plannable(sub, now)
		if !ok {
			continue
		}
		rows = append(rows, UpcomingBirthday{
			Subject:          sub,
			Occurrence:       occ,
			IsChildMilestone: recurrence.IsChildMilestone(occ.AgeTurning),
			IsElderMilestone: recurrence.IsElderMilestone(occ.AgeTurning),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Occurrence.Date.Equal(rows[j].Occurrence.Date) {
			return rows[i].Occurrence.Date.Before(rows[j].Occurrence.Date)
		}
		return rows[i].Subject.Name < rows[j].Subject.Name
	})

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}
