package app

import (
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/telebot.v3"

	"birthday_reminder_bot/internal/domain/delivery"
	"birthday_reminder_bot/internal/domain/reminder"
	"birthday_reminder_bot/internal/domain/subject"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

type fakeSubjectRepo struct {
	mu       sync.Mutex
	order    []string
	subjects map[string]*subject.Subject
	listErr  error
}

func newFakeSubjectRepo(subjects ...*subject.Subject) *fakeSubjectRepo {
	r := &fakeSubjectRepo{subjects: map[string]*subject.Subject{}}
	for _, s := range subjects {
		r.order = append(r.order, s.ID)
		r.subjects[s.ID] = s
	}
	return r
}

func (r *fakeSubjectRepo) Create(_ context.Context, s *subject.Subject) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = append(r.order, s.ID)
	cp := *s
	r.subjects[s.ID] = &cp
	return nil
}

func (r *fakeSubjectRepo) GetByID(_ context.Context, id string) (*subject.Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subjects[id]
	if !ok {
		return nil, subject.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSubjectRepo) SetEnabled(_ context.Context, id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.subjects[id]
	if !ok {
		return subject.ErrNotFound
	}
	s.Enabled = enabled
	return nil
}

func (r *fakeSubjectRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subjects[id]; !ok {
		return subject.ErrNotFound
	}
	delete(r.subjects, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *fakeSubjectRepo) ListAll(_ context.Context) ([]*subject.Subject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]*subject.Subject, 0, len(r.order))
	for _, id := range r.order {
		s := r.subjects[id]
		if s == nil {
			out = append(out, nil)
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

// fakeStore is an in-memory delivery.PendingStore that records call order.
type fakeStore struct {
	mu         sync.Mutex
	pending    map[string]*reminder.Pending
	calls      []string
	clearErr   error
	enqueueErr map[string]error
	markErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		pending:    map[string]*reminder.Pending{},
		enqueueErr: map[string]error{},
	}
}

func (s *fakeStore) ClearAllManaged(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "clear:"+prefix)
	if s.clearErr != nil {
		return s.clearErr
	}
	for id, p := range s.pending {
		if strings.HasPrefix(id, prefix) && p.DeliveredAt == nil {
			delete(s.pending, id)
		}
	}
	return nil
}

func (s *fakeStore) Enqueue(_ context.Context, in reminder.Instruction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(in)
}

// ReplaceManaged mirrors the Postgres store: due undelivered rows survive,
// batch ids are upserted in place, and old delivered rows are pruned.
func (s *fakeStore) ReplaceManaged(_ context.Context, batch delivery.Batch) ([]reminder.EnqueueResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, "replace:"+batch.Prefix)
	if s.clearErr != nil {
		return nil, s.clearErr
	}

	planned := make(map[string]bool, len(batch.Instructions))
	for _, in := range batch.Instructions {
		planned[in.ID] = true
	}
	for id, p := range s.pending {
		if !strings.HasPrefix(id, batch.Prefix) {
			continue
		}
		switch {
		case p.DeliveredAt == nil && p.FireAt.After(batch.Now) && !planned[id]:
			delete(s.pending, id)
		case p.DeliveredAt != nil && p.DeliveredAt.Before(batch.PruneBefore):
			delete(s.pending, id)
		}
	}

	results := make([]reminder.EnqueueResult, 0, len(batch.Instructions))
	for _, in := range batch.Instructions {
		results = append(results, reminder.EnqueueResult{ID: in.ID, Err: s.upsertLocked(in)})
	}
	return results, nil
}

func (s *fakeStore) upsertLocked(in reminder.Instruction) error {
	s.calls = append(s.calls, "enqueue:"+in.ID)
	if err := s.enqueueErr[in.ID]; err != nil {
		return err
	}
	next := &reminder.Pending{Instruction: in}
	if prev, ok := s.pending[in.ID]; ok && prev.FireAt.Equal(in.FireAt) {
		next.DeliveredAt = prev.DeliveredAt
	}
	s.pending[in.ID] = next
	return nil
}

// put stores p directly, bypassing the call log.
func (s *fakeStore) put(p *reminder.Pending) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[p.ID] = p
}

func (s *fakeStore) ListDue(_ context.Context, now time.Time) ([]*reminder.Pending, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []*reminder.Pending
	for _, p := range s.pending {
		if p.DeliveredAt == nil && !p.FireAt.After(now) {
			cp := *p
			due = append(due, &cp)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ID < due[j].ID })
	return due, nil
}

func (s *fakeStore) MarkDelivered(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.markErr != nil {
		return s.markErr
	}
	p, ok := s.pending[id]
	if !ok {
		return errors.New("unknown reminder")
	}
	p.DeliveredAt = &at
	return nil
}

func (s *fakeStore) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.pending))
	for id := range s.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type sentMessage struct {
	chatID int64
	text   string
}

type fakeTelegram struct {
	sent       []sentMessage
	failOnText string
	err        error
	attempts   int
}

func (f *fakeTelegram) SendMessage(chatID int64, text string, _ *telebot.SendOptions) error {
	f.attempts++
	if f.err != nil {
		return f.err
	}
	if f.failOnText != "" && strings.Contains(text, f.failOnText) {
		return errors.New("telegram: bot was blocked by the user")
	}
	f.sent = append(f.sent, sentMessage{chatID: chatID, text: text})
	return nil
}

type countingRescheduler struct {
	calls int
	err   error
}

func (c *countingRescheduler) Reschedule(context.Context) (reminder.ScheduleReport, error) {
	c.calls++
	return reminder.ScheduleReport{}, c.err
}
