package app

import (
	"fmt"
	"time"

	"birthday_reminder_bot/internal/domain/recurrence"
	"birthday_reminder_bot/internal/domain/reminder"
	"birthday_reminder_bot/internal/domain/subject"
)

// DefaultHorizon bounds how far ahead reminders are pre-scheduled.
const DefaultHorizon = 365 * 24 * time.Hour

// Planner turns a subject snapshot into reminder instructions.
// It holds no state besides its identifier prefix and is safe for concurrent use.
type Planner struct {
	prefix string
}

func NewPlanner(prefix string) *Planner {
	if prefix == "" {
		prefix = reminder.DefaultIDPrefix
	}
	return &Planner{prefix: prefix}
}

// Prefix returns the identifier namespace of every instruction this planner emits.
func (p *Planner) Prefix() string {
	return p.prefix
}

// Plan computes every reminder instruction for the enabled subjects whose fire
// time falls within [now, now+horizon]. A negative horizon yields nothing.
//
// Output is ordered by subject (input order), then rule, then offset.
func (p *Planner) Plan(subjects []*subject.Subject, now time.Time, horizon time.Duration) []reminder.Instruction {
	if horizon < 0 {
		return nil
	}
	windowEnd := now.Add(horizon)

	var out []reminder.Instruction
	for _, s := range subjects {
		occ, ok := plannable(s, now)
		if !ok {
			continue
		}

		for _, rule := range rulesFor(occ.AgeTurning) {
			for _, offset := range reminder.Offsets {
				fireAt := fireInstant(occ.Date, offset)
				if fireAt.Before(now) || fireAt.After(windowEnd) {
					continue
				}
				title, body := renderMessage(rule, s, occ, offset)
				out = append(out, reminder.Instruction{
					ID:        reminder.InstructionID(p.prefix, s.ID, rule, offset),
					SubjectID: s.ID,
					Rule:      rule,
					Offset:    offset,
					FireAt:    fireAt,
					Title:     title,
					Body:      body,
				})
			}
		}
	}
	return out
}

// plannable returns the next occurrence of an enabled subject. Nil and
// disabled subjects are skipped, as are subjects born after the occurrence
// year.
func plannable(s *subject.Subject, now time.Time) (recurrence.Occurrence, bool) {
	if s == nil || !s.Enabled {
		return recurrence.Occurrence{}, false
	}
	occ := recurrence.NextOccurrence(s.BirthDate, now)
	if occ.AgeTurning < 0 {
		return recurrence.Occurrence{}, false
	}
	return occ, true
}

func rulesFor(age int) []reminder.RuleCategory {
	rules := []reminder.RuleCategory{reminder.RuleBirthday}
	if recurrence.IsChildMilestone(age) {
		rules = append(rules, reminder.RuleGift)
	}
	if recurrence.IsElderMilestone(age) {
		rules = append(rules, reminder.RuleMilestone)
	}
	return rules
}

// fireInstant is offsetDays before the occurrence at FireHour:00 local time.
func fireInstant(occurrence time.Time, offsetDays int) time.Time {
	d := occurrence.AddDate(0, 0, -offsetDays)
	return time.Date(d.Year(), d.Month(), d.Day(), reminder.FireHour, 0, 0, 0, d.Location())
}

func renderMessage(rule reminder.RuleCategory, s *subject.Subject, occ recurrence.Occurrence, offset int) (string, string) {
	when := occ.Date.Format("Jan 2")
	switch rule {
	case reminder.RuleGift:
		return fmt.Sprintf("Gift ideas for %s", s.Name),
			fmt.Sprintf("%s turns %d on %s. %s", s.Name, occ.AgeTurning, when, giftMessage(occ.AgeTurning, s.Category))
	case reminder.RuleMilestone:
		return fmt.Sprintf("Milestone birthday: %s", s.Name),
			fmt.Sprintf("%s turns %d on %s. This is a special decade milestone, plan something memorable!", s.Name, occ.AgeTurning, when)
	default:
		return fmt.Sprintf("Upcoming birthday: %s", s.Name),
			fmt.Sprintf("%s turns %d in %d days (%s).", s.Name, occ.AgeTurning, offset, when)
	}
}
