package reminder

import (
	"strconv"
	"time"
)

// RuleCategory identifies which reminder rule produced an instruction.
type RuleCategory string

const (
	RuleBirthday  RuleCategory = "birthday"
	RuleGift      RuleCategory = "gift"
	RuleMilestone RuleCategory = "milestone"
)

// Offsets are the days-before-occurrence every rule fires at, in emission order.
var Offsets = []int{30, 2}

// FireHour is the local hour of day every reminder fires at.
const FireHour = 9

// DefaultIDPrefix namespaces every identifier the planner emits.
const DefaultIDPrefix = "birthday_"

// Instruction is one scheduled reminder handed to the delivery side.
type Instruction struct {
	ID        string
	SubjectID string
	Rule      RuleCategory
	Offset    int
	FireAt    time.Time
	Title     string
	Body      string
}

// InstructionID builds the stable identifier for a (subject, rule, offset) triple.
func InstructionID(prefix, subjectID string, rule RuleCategory, offsetDays int) string {
	return prefix + subjectID + "_" + string(rule) + "_" + strconv.Itoa(offsetDays)
}

// Pending is an instruction as kept by the delivery store.
type Pending struct {
	Instruction
	DeliveredAt *time.Time
}
