package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"birthday_reminder_bot/internal/domain/delivery"
	"birthday_reminder_bot/internal/domain/reminder"
)

var ErrPendingReminderNotFound = fmt.Errorf("pending reminder not found")

// PostgresPendingStore implements delivery.PendingStore on the pending_reminders table.
type PostgresPendingStore struct {
	db *sql.DB
}

func NewPostgresPendingStore(db *sql.DB) *PostgresPendingStore {
	return &PostgresPendingStore{db: db}
}

// ClearAllManaged removes every undelivered reminder whose id starts with prefix.
// The prefix is compared literally; LIKE would treat '_' as a wildcard.
func (r *PostgresPendingStore) ClearAllManaged(ctx context.Context, prefix string) error {
	query := `DELETE FROM pending_reminders
               WHERE delivered_at IS NULL AND left(id, length($1)) = $1`
	if _, err := r.db.ExecContext(ctx, query, prefix); err != nil {
		return fmt.Errorf("error clearing pending reminders: %w", err)
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Upsert by id. A new fire_at (the same reminder in a later year) re-arms a
// delivered row; re-planning an unchanged row keeps its delivery.
const upsertPendingQuery = `INSERT INTO pending_reminders (id, subject_id, rule, offset_days, fire_at, title, body)
               VALUES ($1, $2, $3, $4, $5, $6, $7)
               ON CONFLICT (id) DO UPDATE
               SET subject_id = EXCLUDED.subject_id,
                   rule = EXCLUDED.rule,
                   offset_days = EXCLUDED.offset_days,
                   title = EXCLUDED.title,
                   body = EXCLUDED.body,
                   delivered_at = CASE WHEN pending_reminders.fire_at = EXCLUDED.fire_at
                                       THEN pending_reminders.delivered_at END,
                   fire_at = EXCLUDED.fire_at`

func enqueue(ctx context.Context, ex execer, in reminder.Instruction) error {
	_, err := ex.ExecContext(ctx, upsertPendingQuery, in.ID, in.SubjectID, string(in.Rule), in.Offset, in.FireAt, in.Title, in.Body)
	if err != nil {
		return fmt.Errorf("error enqueueing reminder %s: %w", in.ID, err)
	}
	return nil
}

func (r *PostgresPendingStore) Enqueue(ctx context.Context, in reminder.Instruction) error {
	return enqueue(ctx, r.db, in)
}

// ReplaceManaged swaps the namespace's pending set for batch in one
// transaction. Passes on the same prefix are serialized by an advisory lock
// held until commit. Undelivered rows already due are left to the dispatcher,
// and rows that are part of the batch are upserted in place rather than
// deleted, so a concurrent MarkDelivered always finds its row.
//
// Each instruction runs inside its own savepoint; a failed upsert is reported
// in its result and does not abort the others. Errors outside the per-row
// upserts roll the whole pass back.
func (r *PostgresPendingStore) ReplaceManaged(ctx context.Context, batch delivery.Batch) ([]reminder.EnqueueResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin replace managed reminders: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, batch.Prefix); err != nil {
		return nil, fmt.Errorf("lock reminder namespace %q: %w", batch.Prefix, err)
	}

	ids := make([]string, 0, len(batch.Instructions))
	for _, in := range batch.Instructions {
		ids = append(ids, in.ID)
	}
	clearQuery := `DELETE FROM pending_reminders
               WHERE delivered_at IS NULL
                 AND left(id, length($1)) = $1
                 AND fire_at > $2
                 AND NOT (id = ANY($3::text[]))`
	if _, err := tx.ExecContext(ctx, clearQuery, batch.Prefix, batch.Now, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("error clearing pending reminders: %w", err)
	}

	if !batch.PruneBefore.IsZero() {
		pruneQuery := `DELETE FROM pending_reminders
               WHERE delivered_at IS NOT NULL
                 AND delivered_at < $2
                 AND left(id, length($1)) = $1`
		if _, err := tx.ExecContext(ctx, pruneQuery, batch.Prefix, batch.PruneBefore); err != nil {
			return nil, fmt.Errorf("error pruning delivered reminders: %w", err)
		}
	}

	results := make([]reminder.EnqueueResult, 0, len(batch.Instructions))
	for _, in := range batch.Instructions {
		if _, err := tx.ExecContext(ctx, `SAVEPOINT enqueue_reminder`); err != nil {
			return nil, fmt.Errorf("savepoint for reminder %s: %w", in.ID, err)
		}
		enqErr := enqueue(ctx, tx, in)
		if enqErr != nil {
			if _, err := tx.ExecContext(ctx, `ROLLBACK TO SAVEPOINT enqueue_reminder`); err != nil {
				return nil, fmt.Errorf("rollback savepoint for reminder %s: %w", in.ID, err)
			}
		} else if _, err := tx.ExecContext(ctx, `RELEASE SAVEPOINT enqueue_reminder`); err != nil {
			return nil, fmt.Errorf("release savepoint for reminder %s: %w", in.ID, err)
		}
		results = append(results, reminder.EnqueueResult{ID: in.ID, Err: enqErr})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit replace managed reminders: %w", err)
	}
	return results, nil
}

func (r *PostgresPendingStore) ListDue(ctx context.Context, now time.Time) ([]*reminder.Pending, error) {
	query := `SELECT id, subject_id, rule, offset_days, fire_at, title, body
               FROM pending_reminders
               WHERE delivered_at IS NULL AND fire_at <= $1
               ORDER BY fire_at, id`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("error listing due reminders: %w", err)
	}
	defer rows.Close()

	due := make([]*reminder.Pending, 0)
	for rows.Next() {
		p := &reminder.Pending{}
		var rule string
		if err := rows.Scan(&p.ID, &p.SubjectID, &rule, &p.Offset, &p.FireAt, &p.Title, &p.Body); err != nil {
			return nil, fmt.Errorf("error scanning due reminder: %w", err)
		}
		p.Rule = reminder.RuleCategory(rule)
		due = append(due, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due reminders: %w", err)
	}
	return due, nil
}

func (r *PostgresPendingStore) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE pending_reminders SET delivered_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("error marking reminder %s delivered: %w", id, err)
	}
	return expectOneRow(res, ErrPendingReminderNotFound)
}
