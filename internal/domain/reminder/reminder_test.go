package reminder

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstructionID(t *testing.T) {
	id := InstructionID("birthday_", "abc", RuleGift, 30)
	assert.Equal(t, "birthday_abc_gift_30", id)
}

func TestScheduleReportRecord(t *testing.T) {
	var r ScheduleReport
	r.Record("a", nil)
	r.Record("b", errors.New("quota exceeded"))
	r.Record("c", nil)

	assert.Equal(t, 2, r.Enqueued)
	assert.False(t, r.OK())
	if assert.Len(t, r.Failures, 1) {
		assert.Equal(t, "b", r.Failures[0].ID)
	}
}
