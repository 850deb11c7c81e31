package telegram

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"birthday_reminder_bot/internal/app"
	"birthday_reminder_bot/internal/domain/subject"
)

const upcomingLimit = 10

const msgUnauthorized = "Error: you are not allowed to use this command."

// RegisterBirthdayHandlers registers the owner's birthday management commands.
func RegisterBirthdayHandlers(
	ctx context.Context,
	b *telebot.Bot,
	subjectService *app.SubjectService,
	reminderService *app.ReminderService,
	ownerTelegramID int64,
	baseLogger *logrus.Entry,
) {
	ownerOnly := func(command string, next func(c telebot.Context, log *logrus.Entry) error) telebot.HandlerFunc {
		return func(c telebot.Context) error {
			log := baseLogger.WithFields(logrus.Fields{
				"handler":   command,
				"sender_id": c.Sender().ID,
			})
			log.Info("Command received")

			if c.Sender().ID != ownerTelegramID {
				log.Warn("Unauthorized access attempt")
				return c.Send(msgUnauthorized)
			}
			return next(c, log)
		}
	}

	b.Handle("/add_birthday", ownerOnly("/add_birthday", func(c telebot.Context, log *logrus.Entry) error {
		req, err := parseAddArgs(c.Args())
		if err != nil {
			log.WithError(err).Warn("Invalid command format")
			return c.Send(err.Error())
		}

		created, err := subjectService.AddSubject(ctx, c.Sender().ID, req.Name, req.BirthDate, req.Category, req.Relation)
		if err != nil {
			logWithError := log.WithError(err)
			switch {
			case errors.Is(err, app.ErrEmptyName), errors.Is(err, app.ErrInvalidCategory), errors.Is(err, app.ErrInvalidBirthDate):
				logWithError.Warn("Rejected subject")
				return c.Send("Error: " + err.Error())
			case errors.Is(err, app.ErrNotAuthorized):
				return c.Send(msgUnauthorized)
			default:
				logWithError.Error("Failed to add subject")
				return c.Send("An error occurred while adding the birthday.")
			}
		}

		log.WithField("subject_id", created.ID).Info("Subject added successfully")
		return c.Send("Added:\n" + formatSubject(created))
	}))

	b.Handle("/list_birthdays", ownerOnly("/list_birthdays", func(c telebot.Context, log *logrus.Entry) error {
		subjects, err := subjectService.ListSubjects(ctx, c.Sender().ID)
		if err != nil {
			log.WithError(err).Error("Failed to list subjects")
			return c.Send("An error occurred while listing birthdays.")
		}
		return c.Send(formatSubjectList(subjects))
	}))

	b.Handle("/upcoming", ownerOnly("/upcoming", func(c telebot.Context, log *logrus.Entry) error {
		rows, err := reminderService.Upcoming(ctx, upcomingLimit)
		if err != nil {
			log.WithError(err).Error("Failed to list upcoming birthdays")
			return c.Send("An error occurred while listing upcoming birthdays.")
		}
		return c.Send(formatUpcoming(rows))
	}))

	setEnabled := func(command string, enabled bool) telebot.HandlerFunc {
		return ownerOnly(command, func(c telebot.Context, log *logrus.Entry) error {
			args := c.Args()
			if len(args) != 1 {
				return c.Send(fmt.Sprintf("Usage: %s <id>", command))
			}
			log = log.WithField("subject_id", args[0])

			updated, err := subjectService.SetEnabled(ctx, c.Sender().ID, args[0], enabled)
			if err != nil {
				if errors.Is(err, subject.ErrNotFound) {
					log.Warn("Subject not found")
					return c.Send("No birthday with that id.")
				}
				log.WithError(err).Error("Failed to update subject")
				return c.Send("An error occurred while updating the birthday.")
			}
			log.WithField("enabled", enabled).Info("Subject updated")
			return c.Send("Updated:\n" + formatSubject(updated))
		})
	}
	b.Handle("/enable_birthday", setEnabled("/enable_birthday", true))
	b.Handle("/disable_birthday", setEnabled("/disable_birthday", false))

	b.Handle("/remove_birthday", ownerOnly("/remove_birthday", func(c telebot.Context, log *logrus.Entry) error {
		args := c.Args()
		if len(args) != 1 {
			return c.Send("Usage: /remove_birthday <id>")
		}
		log = log.WithField("subject_id", args[0])

		removed, err := subjectService.RemoveSubject(ctx, c.Sender().ID, args[0])
		if err != nil {
			if errors.Is(err, subject.ErrNotFound) {
				log.Warn("Subject not found")
				return c.Send("No birthday with that id.")
			}
			log.WithError(err).Error("Failed to remove subject")
			return c.Send("An error occurred while removing the birthday.")
		}
		log.Info("Subject removed")
		return c.Send(fmt.Sprintf("Removed %s.", removed.Name))
	}))

	b.Handle("/reschedule", ownerOnly("/reschedule", func(c telebot.Context, log *logrus.Entry) error {
		report, err := reminderService.Reschedule(ctx)
		if err != nil {
			log.WithError(err).Error("Explicit reschedule failed")
			return c.Send("Rescheduling failed, previously scheduled reminders are unchanged.")
		}
		return c.Send(formatReport(report))
	}))
}

// RegisterBotCommands registers /start and /help.
func RegisterBotCommands(b *telebot.Bot, ownerTelegramID int64, baseLogger *logrus.Entry) {
	log := baseLogger.WithField("handler_group", "start_help")

	b.Handle("/start", func(c telebot.Context) error {
		log.WithField("sender_id", c.Sender().ID).Info("Processing /start command")
		if c.Sender().ID != ownerTelegramID {
			return c.Send("Hi! This is a private birthday reminder bot.")
		}
		return c.Send(fmt.Sprintf("Hi %s! I will remind you about upcoming birthdays. Use /help for the command list.", c.Sender().FirstName))
	})

	b.Handle("/help", func(c telebot.Context) error {
		if c.Sender().ID != ownerTelegramID {
			return c.Send("Hi! This is a private birthday reminder bot.")
		}
		return c.Send(helpText)
	})
}

const helpText = `Commands:
/add_birthday <YYYY-MM-DD> <Girl|Boy|Any> <Name> [| Relation]
/list_birthdays - all tracked people with ids
/upcoming - next birthdays
/enable_birthday <id>
/disable_birthday <id>
/remove_birthday <id>
/reschedule - rebuild all scheduled reminders`
