//go:build integration

package database_test

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"birthday_reminder_bot/internal/domain/delivery"
	"birthday_reminder_bot/internal/domain/reminder"
	"birthday_reminder_bot/internal/domain/subject"
	"birthday_reminder_bot/internal/infra/database"
)

type PostgresStoreSuite struct {
	suite.Suite
	container *tcpostgres.PostgresContainer
	db        *sql.DB
	store     *database.PostgresPendingStore
	subjects  *database.PostgresSubjectRepository
	now       time.Time
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("birthdays"),
		tcpostgres.WithUsername("bot"),
		tcpostgres.WithPassword("bot"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		s.T().Fatalf("failed to start postgres container: %v", err)
	}
	s.container = container

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		s.T().Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := database.NewPostgresConnection(dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		s.T().Fatalf("failed to connect to postgres: %v", err)
	}
	if err := database.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		s.T().Fatalf("failed to apply schema: %v", err)
	}

	s.db = db
	s.store = database.NewPostgresPendingStore(db)
	s.subjects = database.NewPostgresSubjectRepository(db)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	_, err := s.db.ExecContext(context.Background(), `TRUNCATE pending_reminders, subjects`)
	s.Require().NoError(err)
	s.now = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func instruction(id string, fireAt time.Time) reminder.Instruction {
	return reminder.Instruction{
		ID:        id,
		SubjectID: "s",
		Rule:      reminder.RuleBirthday,
		Offset:    2,
		FireAt:    fireAt,
		Title:     "Upcoming birthday: " + id,
		Body:      "body of " + id,
	}
}

func (s *PostgresStoreSuite) enqueue(id string, fireAt time.Time) {
	s.Require().NoError(s.store.Enqueue(context.Background(), instruction(id, fireAt)))
}

func (s *PostgresStoreSuite) deliver(id string, at time.Time) {
	s.Require().NoError(s.store.MarkDelivered(context.Background(), id, at))
}

func (s *PostgresStoreSuite) ids() []string {
	rows, err := s.db.QueryContext(context.Background(), `SELECT id FROM pending_reminders`)
	s.Require().NoError(err)
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		s.Require().NoError(rows.Scan(&id))
		ids = append(ids, id)
	}
	s.Require().NoError(rows.Err())
	sort.Strings(ids)
	return ids
}

func (s *PostgresStoreSuite) deliveredAt(id string) sql.NullTime {
	var at sql.NullTime
	err := s.db.QueryRowContext(context.Background(),
		`SELECT delivered_at FROM pending_reminders WHERE id = $1`, id).Scan(&at)
	s.Require().NoError(err)
	return at
}

func (s *PostgresStoreSuite) TestClearAllManagedMatchesPrefixLiterally() {
	future := s.now.AddDate(0, 1, 0)
	s.enqueue("birthday_a_birthday_2", future)
	s.enqueue("birthdayXa_birthday_2", future) // '_' must not act as a wildcard
	s.enqueue("other_app_1", future)
	s.enqueue("birthday_done_birthday_2", s.now)
	s.deliver("birthday_done_birthday_2", s.now)

	s.Require().NoError(s.store.ClearAllManaged(context.Background(), "birthday_"))

	s.Equal([]string{
		"birthdayXa_birthday_2",
		"birthday_done_birthday_2",
		"other_app_1",
	}, s.ids())
}

func (s *PostgresStoreSuite) TestEnqueueRearmsDeliveredRowForNewFireAt() {
	fireAt := time.Date(2024, time.June, 13, 9, 0, 0, 0, time.UTC)
	s.enqueue("birthday_s_birthday_2", fireAt)
	s.deliver("birthday_s_birthday_2", fireAt)

	// same occurrence planned again keeps its delivery
	s.enqueue("birthday_s_birthday_2", fireAt)
	s.True(s.deliveredAt("birthday_s_birthday_2").Valid)

	next := instruction("birthday_s_birthday_2", fireAt.AddDate(1, 0, 0))
	next.Body = "turns 41"
	s.Require().NoError(s.store.Enqueue(context.Background(), next))
	s.False(s.deliveredAt("birthday_s_birthday_2").Valid)

	due, err := s.store.ListDue(context.Background(), next.FireAt)
	s.Require().NoError(err)
	s.Require().Len(due, 1)
	s.Equal("turns 41", due[0].Body)
	s.True(next.FireAt.Equal(due[0].FireAt))
}

func (s *PostgresStoreSuite) TestListDueOrdersByFireAtThenID() {
	s.enqueue("b", s.now.Add(-time.Hour))
	s.enqueue("c", s.now.Add(-2*time.Hour))
	s.enqueue("a", s.now.Add(-time.Hour))
	s.enqueue("d", s.now.Add(time.Hour))
	s.enqueue("e", s.now.Add(-3*time.Hour))
	s.deliver("e", s.now)
	s.enqueue("edge", s.now)

	due, err := s.store.ListDue(context.Background(), s.now)
	s.Require().NoError(err)

	got := make([]string, 0, len(due))
	for _, p := range due {
		got = append(got, p.ID)
	}
	s.Equal([]string{"c", "a", "b", "edge"}, got)
	s.Equal(reminder.RuleBirthday, due[0].Rule)
	s.Equal(2, due[0].Offset)
}

func (s *PostgresStoreSuite) TestMarkDeliveredUnknownID() {
	err := s.store.MarkDelivered(context.Background(), "missing", s.now)
	s.ErrorIs(err, database.ErrPendingReminderNotFound)
}

func (s *PostgresStoreSuite) TestReplaceManagedKeepsDueAndForeignRows() {
	future := s.now.AddDate(0, 1, 0)
	s.enqueue("birthday_gone_birthday_2", s.now.Add(-time.Hour))
	s.enqueue("birthday_gone_birthday_30", future)
	s.enqueue("birthdayXz_birthday_2", future)
	s.enqueue("other_app_1", future)

	batch := delivery.Batch{
		Prefix: "birthday_",
		Now:    s.now,
		Instructions: []reminder.Instruction{
			instruction("birthday_s_birthday_30", future),
			instruction("birthday_s_birthday_2", future.AddDate(0, 0, 28)),
		},
	}
	results, err := s.store.ReplaceManaged(context.Background(), batch)
	s.Require().NoError(err)
	s.Require().Len(results, 2)
	for _, r := range results {
		s.NoError(r.Err)
	}

	s.Equal([]string{
		"birthdayXz_birthday_2",
		"birthday_gone_birthday_2",
		"birthday_s_birthday_2",
		"birthday_s_birthday_30",
		"other_app_1",
	}, s.ids())
}

func (s *PostgresStoreSuite) TestReplaceManagedPrunesOldDeliveredRows() {
	old := s.now.AddDate(-2, 0, 0)
	recent := s.now.AddDate(0, 0, -10)
	s.enqueue("birthday_old_birthday_2", old)
	s.deliver("birthday_old_birthday_2", old)
	s.enqueue("birthday_recent_birthday_2", recent)
	s.deliver("birthday_recent_birthday_2", recent)
	s.enqueue("other_app_7", old)
	s.deliver("other_app_7", old)

	_, err := s.store.ReplaceManaged(context.Background(), delivery.Batch{
		Prefix:      "birthday_",
		Now:         s.now,
		PruneBefore: s.now.AddDate(-1, 0, 0),
	})
	s.Require().NoError(err)

	s.Equal([]string{"birthday_recent_birthday_2", "other_app_7"}, s.ids())
}

func (s *PostgresStoreSuite) TestReplaceManagedReportsFailedRowAndCommitsOthers() {
	future := s.now.AddDate(0, 1, 0)
	bad := instruction("birthday_s_gift_30", future)
	bad.Body = "nul\x00byte" // rejected by the server's text encoding

	results, err := s.store.ReplaceManaged(context.Background(), delivery.Batch{
		Prefix: "birthday_",
		Now:    s.now,
		Instructions: []reminder.Instruction{
			instruction("birthday_s_birthday_30", future),
			bad,
			instruction("birthday_s_birthday_2", future.AddDate(0, 0, 28)),
		},
	})
	s.Require().NoError(err)
	s.Require().Len(results, 3)
	s.NoError(results[0].Err)
	s.Error(results[1].Err)
	s.Equal("birthday_s_gift_30", results[1].ID)
	s.NoError(results[2].Err)

	s.Equal([]string{"birthday_s_birthday_2", "birthday_s_birthday_30"}, s.ids())
}

func (s *PostgresStoreSuite) TestConcurrentReplaceManagedConverges() {
	future := s.now.AddDate(0, 1, 0)
	batch := delivery.Batch{
		Prefix: "birthday_",
		Now:    s.now,
		Instructions: []reminder.Instruction{
			instruction("birthday_s_birthday_30", future),
			instruction("birthday_s_birthday_2", future.AddDate(0, 0, 28)),
		},
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.ReplaceManaged(context.Background(), batch)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.NoError(err)
	}
	s.Equal([]string{"birthday_s_birthday_2", "birthday_s_birthday_30"}, s.ids())
}

func (s *PostgresStoreSuite) TestSubjectRepositoryRoundTrip() {
	ctx := context.Background()
	sub := &subject.Subject{
		ID:        "kid",
		Name:      "Mia",
		BirthDate: time.Date(2021, time.June, 15, 0, 0, 0, 0, time.Local),
		Relation:  "niece",
		Category:  subject.CategoryGirl,
		Enabled:   true,
	}
	s.Require().NoError(s.subjects.Create(ctx, sub))

	got, err := s.subjects.GetByID(ctx, "kid")
	s.Require().NoError(err)
	s.Equal("Mia", got.Name)
	s.Equal(subject.CategoryGirl, got.Category)
	s.Equal(time.June, got.BirthDate.Month())
	s.Equal(15, got.BirthDate.Day())

	s.Require().NoError(s.subjects.SetEnabled(ctx, "kid", false))
	all, err := s.subjects.ListAll(ctx)
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.False(all[0].Enabled)

	s.Require().NoError(s.subjects.Delete(ctx, "kid"))
	_, err = s.subjects.GetByID(ctx, "kid")
	s.ErrorIs(err, subject.ErrNotFound)
	s.ErrorIs(s.subjects.Delete(ctx, "kid"), subject.ErrNotFound)
}
