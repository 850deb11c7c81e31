package telegram

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"birthday_reminder_bot/internal/app"
	"birthday_reminder_bot/internal/domain/reminder"
	"birthday_reminder_bot/internal/domain/subject"
)

const birthDateLayout = "2006-01-02"

var errAddUsage = errors.New("usage: /add_birthday <YYYY-MM-DD> <Girl|Boy|Any> <Name> [| Relation]")

type addRequest struct {
	BirthDate time.Time
	Category  string
	Name      string
	Relation  string
}

// parseAddArgs parses "/add_birthday 2021-06-15 Girl Mia Smith | Niece".
func parseAddArgs(args []string) (addRequest, error) {
	if len(args) < 3 {
		return addRequest{}, errAddUsage
	}

	birth, err := time.ParseInLocation(birthDateLayout, args[0], time.Local)
	if err != nil {
		return addRequest{}, fmt.Errorf("invalid birth date %q, expected YYYY-MM-DD", args[0])
	}

	rest := strings.Join(args[2:], " ")
	name, relation, _ := strings.Cut(rest, "|")

	return addRequest{
		BirthDate: birth,
		Category:  args[1],
		Name:      strings.TrimSpace(name),
		Relation:  strings.TrimSpace(relation),
	}, nil
}

func formatSubject(s *subject.Subject) string {
	var b strings.Builder
	b.WriteString(s.Name)
	if s.Relation != "" {
		b.WriteString(" (" + s.Relation + ")")
	}
	fmt.Fprintf(&b, ", born %s, %s", s.BirthDate.Format(birthDateLayout), s.Category)
	if !s.Enabled {
		b.WriteString(", disabled")
	}
	b.WriteString("\nid: " + s.ID)
	return b.String()
}

func formatSubjectList(subjects []*subject.Subject) string {
	if len(subjects) == 0 {
		return "No birthdays tracked yet. Add one with /add_birthday."
	}
	lines := make([]string, 0, len(subjects))
	for _, s := range subjects {
		lines = append(lines, formatSubject(s))
	}
	return strings.Join(lines, "\n\n")
}

func formatUpcoming(rows []app.UpcomingBirthday) string {
	if len(rows) == 0 {
		return "No upcoming birthdays."
	}
	var b strings.Builder
	for i, r := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: %s turning %d", r.Occurrence.Date.Format("Jan 2"), r.Subject.Name, r.Occurrence.AgeTurning)
		switch {
		case r.IsChildMilestone:
			b.WriteString(" (gift milestone)")
		case r.IsElderMilestone:
			b.WriteString(" (decade milestone)")
		}
	}
	return b.String()
}

func formatReport(r reminder.ScheduleReport) string {
	msg := fmt.Sprintf("Rescheduled: %d planned, %d scheduled.", r.Planned, r.Enqueued)
	if !r.OK() {
		msg += fmt.Sprintf(" %d failed to schedule.", len(r.Failures))
	}
	return msg
}
