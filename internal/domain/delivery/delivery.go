// Package delivery defines the contract between the planner and whatever
// fires reminders at wall-clock time.
package delivery

import (
	"context"
	"time"

	"birthday_reminder_bot/internal/domain/reminder"
)

// Batch is the full output of one planning pass for a prefix namespace.
type Batch struct {
	Prefix       string
	Instructions []reminder.Instruction

	// Now is the planning instant. Undelivered reminders firing at or before
	// Now belong to the dispatcher and are not cleared.
	Now time.Time

	// PruneBefore drops delivered reminders whose delivery is older than it.
	// The zero value prunes nothing.
	PruneBefore time.Time
}

// Scheduler accepts reminder instructions for future delivery.
//
// The output of one planning pass is authoritative for its prefix namespace.
// ReplaceManaged applies it atomically: the clear and every enqueue either
// commit together or not at all, and one result is returned per instruction.
// Anything outside the namespace must not be touched.
type Scheduler interface {
	ClearAllManaged(ctx context.Context, prefix string) error
	Enqueue(ctx context.Context, in reminder.Instruction) error
	ReplaceManaged(ctx context.Context, batch Batch) ([]reminder.EnqueueResult, error)
}

// PendingStore is a Scheduler that also exposes its queue to a dispatcher.
type PendingStore interface {
	Scheduler
	ListDue(ctx context.Context, now time.Time) ([]*reminder.Pending, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) error
}
