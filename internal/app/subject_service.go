package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"birthday_reminder_bot/internal/domain/subject"
)

var (
	ErrNotAuthorized    = errors.New("performing user is not the configured owner")
	ErrEmptyName        = errors.New("subject name must not be empty")
	ErrInvalidCategory  = errors.New("category must be one of Girl, Boy, Any")
	ErrInvalidBirthDate = errors.New("birth date must not be in the future")
)

// SubjectService manages tracked people on behalf of the owner.
// Every successful mutation triggers a planning pass.
type SubjectService struct {
	subjectRepo subject.Repository
	rescheduler Rescheduler
	ownerID     int64
	now         func() time.Time
	logger      *logrus.Entry
}

func NewSubjectService(sr subject.Repository, r Rescheduler, ownerID int64, now func() time.Time, logger *logrus.Entry) *SubjectService {
	if now == nil {
		now = time.Now
	}
	return &SubjectService{
		subjectRepo: sr,
		rescheduler: r,
		ownerID:     ownerID,
		now:         now,
		logger:      logger,
	}
}

// AddSubject validates and stores a new enabled subject.
func (s *SubjectService) AddSubject(ctx context.Context, performerID int64, name string, birthDate time.Time, category string, relation string) (*subject.Subject, error) {
	if performerID != s.ownerID {
		return nil, ErrNotAuthorized
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	cat, ok := subject.ParseCategory(category)
	if !ok {
		return nil, ErrInvalidCategory
	}

	now := s.now()
	birth := time.Date(birthDate.Year(), birthDate.Month(), birthDate.Day(), 0, 0, 0, 0, now.Location())
	if birth.After(now) {
		return nil, ErrInvalidBirthDate
	}

	newSubject := &subject.Subject{
		ID:        uuid.NewString(),
		Name:      name,
		BirthDate: birth,
		Relation:  strings.TrimSpace(relation),
		Category:  cat,
		Enabled:   true,
	}
	if err := s.subjectRepo.Create(ctx, newSubject); err != nil {
		return nil, fmt.Errorf("failed to create subject in repository: %w", err)
	}

	s.reschedule(ctx, "add")
	return newSubject, nil
}

// ListSubjects returns every subject, enabled or not.
func (s *SubjectService) ListSubjects(ctx context.Context, performerID int64) ([]*subject.Subject, error) {
	if performerID != s.ownerID {
		return nil, ErrNotAuthorized
	}
	subjects, err := s.subjectRepo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}
	return subjects, nil
}

// SetEnabled toggles whether a subject takes part in planning.
func (s *SubjectService) SetEnabled(ctx context.Context, performerID int64, id string, enabled bool) (*subject.Subject, error) {
	if performerID != s.ownerID {
		return nil, ErrNotAuthorized
	}

	target, err := s.subjectRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, subject.ErrNotFound) {
			return nil, subject.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subject %s: %w", id, err)
	}
	if target.Enabled == enabled {
		return target, nil
	}

	if err := s.subjectRepo.SetEnabled(ctx, id, enabled); err != nil {
		return nil, fmt.Errorf("failed to update subject %s: %w", id, err)
	}
	target.Enabled = enabled

	s.reschedule(ctx, "set_enabled")
	return target, nil
}

// RemoveSubject deletes a subject. Its reminders disappear with the next pass,
// which runs before this returns.
func (s *SubjectService) RemoveSubject(ctx context.Context, performerID int64, id string) (*subject.Subject, error) {
	if performerID != s.ownerID {
		return nil, ErrNotAuthorized
	}

	target, err := s.subjectRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, subject.ErrNotFound) {
			return nil, subject.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subject %s: %w", id, err)
	}
	if err := s.subjectRepo.Delete(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete subject %s: %w", id, err)
	}

	s.reschedule(ctx, "remove")
	return target, nil
}

func (s *SubjectService) reschedule(ctx context.Context, trigger string) {
	report, err := s.rescheduler.Reschedule(ctx)
	log := s.logger.WithField("trigger", trigger)
	if err != nil {
		log.WithError(err).Error("Reschedule after subject change failed")
		return
	}
	if !report.OK() {
		log.WithField("failed", len(report.Failures)).Warn("Reschedule after subject change left reminders unscheduled")
	}
}
