package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"birthday_reminder_bot/internal/domain/subject"
)

type PostgresSubjectRepository struct {
	db *sql.DB
}

func NewPostgresSubjectRepository(db *sql.DB) *PostgresSubjectRepository {
	return &PostgresSubjectRepository{db: db}
}

const subjectColumns = `id, name, birth_date, relation, category, is_enabled, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubject(row rowScanner) (*subject.Subject, error) {
	s := &subject.Subject{}
	var category string
	if err := row.Scan(&s.ID, &s.Name, &s.BirthDate, &s.Relation, &category, &s.Enabled, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Category = subject.Category(category)
	// DATE columns come back as UTC midnight; only the calendar fields matter.
	s.BirthDate = time.Date(s.BirthDate.Year(), s.BirthDate.Month(), s.BirthDate.Day(), 0, 0, 0, 0, time.Local)
	return s, nil
}

func (r *PostgresSubjectRepository) Create(ctx context.Context, s *subject.Subject) error {
	query := `INSERT INTO subjects (id, name, birth_date, relation, category, is_enabled)
               VALUES ($1, $2, $3, $4, $5, $6)
               RETURNING created_at, updated_at`

	birth := s.BirthDate.Format("2006-01-02")
	err := r.db.QueryRowContext(ctx, query, s.ID, s.Name, birth, s.Relation, string(s.Category), s.Enabled).Scan(&s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error creating subject: %w", err)
	}
	return nil
}

func (r *PostgresSubjectRepository) GetByID(ctx context.Context, id string) (*subject.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects WHERE id = $1`
	s, err := scanSubject(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, subject.ErrNotFound
		}
		return nil, fmt.Errorf("error getting subject by ID: %w", err)
	}
	return s, nil
}

func (r *PostgresSubjectRepository) SetEnabled(ctx context.Context, id string, enabled bool) error {
	query := `UPDATE subjects SET is_enabled = $1, updated_at = NOW() WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, enabled, id)
	if err != nil {
		return fmt.Errorf("error updating subject: %w", err)
	}
	return expectOneRow(res, subject.ErrNotFound)
}

func (r *PostgresSubjectRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM subjects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("error deleting subject: %w", err)
	}
	return expectOneRow(res, subject.ErrNotFound)
}

// ListAll returns subjects in creation order so planning output is stable.
func (r *PostgresSubjectRepository) ListAll(ctx context.Context) ([]*subject.Subject, error) {
	query := `SELECT ` + subjectColumns + ` FROM subjects ORDER BY created_at, id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing subjects: %w", err)
	}
	defer rows.Close()

	subjects := make([]*subject.Subject, 0)
	for rows.Next() {
		s, err := scanSubject(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning subject: %w", err)
		}
		subjects = append(subjects, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subjects: %w", err)
	}
	return subjects, nil
}

func expectOneRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
