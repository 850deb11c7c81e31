// Package recurrence computes annual birthday occurrences and milestone flags.
package recurrence

import "time"

// Occurrence is the next birthday on or after a reference day.
type Occurrence struct {
	Date       time.Time // local midnight in the reference location
	AgeTurning int
}

// NextOccurrence returns the first local midnight at or after now whose month
// and day match birthDate. Once a birthday's midnight has passed, the next
// occurrence is a year later.
//
// A Feb 29 birth date resolves to Mar 1 in non-leap years, which is the
// normalization time.Date applies to out-of-range days.
func NextOccurrence(birthDate, now time.Time) Occurrence {
	loc := now.Location()

	candidate := time.Date(now.Year(), birthDate.Month(), birthDate.Day(), 0, 0, 0, 0, loc)
	if candidate.Before(now) {
		candidate = time.Date(now.Year()+1, birthDate.Month(), birthDate.Day(), 0, 0, 0, 0, loc)
	}

	return Occurrence{
		Date:       candidate,
		AgeTurning: candidate.Year() - birthDate.Year(),
	}
}

var childMilestones = map[int]bool{3: true, 5: true, 10: true}

// IsChildMilestone reports whether age is one of the small-child gift ages.
func IsChildMilestone(age int) bool {
	return age < 12 && childMilestones[age]
}

// IsElderMilestone reports whether age is a decade birthday of 50 or later.
func IsElderMilestone(age int) bool {
	return age >= 45 && age%10 == 0
}
