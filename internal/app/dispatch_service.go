package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"birthday_reminder_bot/internal/domain/delivery"
	"birthday_reminder_bot/internal/domain/reminder"
	domainTelegram "birthday_reminder_bot/internal/domain/telegram"
	"birthday_reminder_bot/internal/infra/metrics"
)

// DispatchService fires due pending reminders to the owner's chat.
type DispatchService struct {
	store       delivery.PendingStore
	client      domainTelegram.Client
	recipientID int64
	now         func() time.Time
	metrics     *metrics.Metrics
	logger      *logrus.Entry
}

func NewDispatchService(
	store delivery.PendingStore,
	client domainTelegram.Client,
	recipientID int64,
	now func() time.Time,
	m *metrics.Metrics,
	logger *logrus.Entry,
) *DispatchService {
	if now == nil {
		now = time.Now
	}
	return &DispatchService{
		store:       store,
		client:      client,
		recipientID: recipientID,
		now:         now,
		metrics:     m,
		logger:      logger,
	}
}

// DispatchDue sends every undelivered reminder whose fire time has passed.
// A failed send leaves the reminder pending for the next tick and does not
// stop the remaining sends, except when the chat itself is unreachable.
// Planning passes never clear due undelivered reminders, so a retry
// survives a reschedule in between.
func (s *DispatchService) DispatchDue(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.store.ListDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list due reminders: %w", err)
	}
	if len(due) == 0 {
		return 0, nil
	}

	sent := 0
	for _, p := range due {
		log := s.logger.WithFields(logrus.Fields{
			"reminder_id": p.ID,
			"fire_at":     p.FireAt.Format(time.RFC3339),
		})

		if err := s.client.SendMessage(s.recipientID, formatReminder(p), &telebot.SendOptions{DisableWebPagePreview: true}); err != nil {
			s.metrics.DispatchFailures.Inc()
			if errors.Is(err, domainTelegram.ErrRecipientUnreachable) {
				// every remaining send would fail the same way
				log.WithError(err).WithField("recipient_id", s.recipientID).Error("Reminder chat unreachable, ending tick")
				break
			}
			log.WithError(err).Error("Failed to send reminder")
			continue
		}
		if err := s.store.MarkDelivered(ctx, p.ID, now); err != nil {
			// the message went out; it may be sent again next tick
			s.metrics.DispatchFailures.Inc()
			log.WithError(err).Error("Failed to mark reminder delivered")
			continue
		}
		s.metrics.RemindersDispatched.Inc()
		sent++
		log.Info("Reminder sent")
	}

	s.logger.WithFields(logrus.Fields{"due": len(due), "sent": sent}).Info("Dispatch tick complete")
	return sent, nil
}

func formatReminder(p *reminder.Pending) string {
	return p.Title + "\n" + p.Body
}
