package medication

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memStore backs the in-memory repositories. memTx snapshots it so a failed
// transaction leaves no trace, like the Postgres implementation.
type memStore struct {
	mu         sync.Mutex
	doses      map[uuid.UUID]*Dose
	templates  map[uuid.UUID]*Template
	history    []*History
	recipients map[uuid.UUID]recipient

	failCreateBatch error
	failList        error
}

type recipient struct {
	owner  string
	active bool
}

func newMemStore() *memStore {
	return &memStore{
		doses:      make(map[uuid.UUID]*Dose),
		templates:  make(map[uuid.UUID]*Template),
		recipients: make(map[uuid.UUID]recipient),
	}
}

func (s *memStore) addRecipient(owner string, active bool) uuid.UUID {
	id := uuid.New()
	s.recipients[id] = recipient{owner: owner, active: active}
	return id
}

func copyDose(d *Dose) *Dose {
	c := *d
	return &c
}

type memTx struct {
	s     *memStore
	calls int
}

func (m *memTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	m.s.mu.Lock()
	doses := make(map[uuid.UUID]*Dose, len(m.s.doses))
	for k, v := range m.s.doses {
		doses[k] = copyDose(v)
	}
	templates := make(map[uuid.UUID]*Template, len(m.s.templates))
	for k, v := range m.s.templates {
		c := *v
		templates[k] = &c
	}
	history := append([]*History(nil), m.s.history...)
	m.s.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.s.mu.Lock()
		m.s.doses, m.s.templates, m.s.history = doses, templates, history
		m.s.mu.Unlock()
		return err
	}
	return nil
}

// -- doses --

type memDoseRepo struct{ s *memStore }

func (r *memDoseRepo) CreateBatch(_ context.Context, doses []*Dose) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i, d := range doses {
		if r.s.failCreateBatch != nil && i == len(doses)-1 {
			return r.s.failCreateBatch
		}
		now := time.Now()
		d.CreatedAt, d.UpdatedAt = now, now
		r.s.doses[d.ID] = copyDose(d)
	}
	return nil
}

func (r *memDoseRepo) Get(_ context.Context, userID string, id uuid.UUID) (*Dose, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.doses[id]
	if !ok || d.UserID != userID {
		return nil, ErrDoseNotFound
	}
	return copyDose(d), nil
}

func (r *memDoseRepo) GetActiveForUpdate(ctx context.Context, userID string, id uuid.UUID) (*Dose, error) {
	d, err := r.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !d.IsActive {
		return nil, ErrDoseNotFound
	}
	return d, nil
}

func (r *memDoseRepo) List(_ context.Context, userID string, f ListFilter) ([]*Dose, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failList != nil {
		return nil, r.s.failList
	}
	active := true
	if f.IsActive != nil {
		active = *f.IsActive
	}
	var out []*Dose
	for _, d := range r.s.doses {
		switch {
		case d.UserID != userID, d.IsActive != active:
			continue
		case f.CareRecipientID != nil && d.CareRecipientID != *f.CareRecipientID:
			continue
		case f.DateFrom != nil && d.ScheduledDate < *f.DateFrom:
			continue
		case f.DateTo != nil && d.ScheduledDate > *f.DateTo:
			continue
		case f.IsCompleted != nil && d.IsCompleted != *f.IsCompleted:
			continue
		}
		out = append(out, copyDose(d))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledDate != out[j].ScheduledDate {
			return out[i].ScheduledDate < out[j].ScheduledDate
		}
		return out[i].ScheduledTime < out[j].ScheduledTime
	})
	return out, nil
}

func (r *memDoseRepo) SetCompleted(_ context.Context, d *Dose) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.doses[d.ID]
	if !ok || stored.UserID != d.UserID || !stored.IsActive {
		return ErrDoseNotFound
	}
	now := time.Now()
	stored.IsCompleted = d.IsCompleted
	stored.CompletedAt = nil
	if d.IsCompleted {
		stored.CompletedAt = &now
	}
	stored.UpdatedAt = now
	d.CompletedAt, d.UpdatedAt = stored.CompletedAt, now
	return nil
}

func (r *memDoseRepo) Update(_ context.Context, d *Dose) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.doses[d.ID]
	if !ok || stored.UserID != d.UserID || !stored.IsActive {
		return ErrDoseNotFound
	}
	c := copyDose(d)
	c.CreatedAt = stored.CreatedAt
	c.UpdatedAt = time.Now()
	r.s.doses[d.ID] = c
	return nil
}

func (r *memDoseRepo) SoftDelete(_ context.Context, userID string, id uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	d, ok := r.s.doses[id]
	if !ok || d.UserID != userID || !d.IsActive {
		return 0, nil
	}
	d.IsActive = false
	d.UpdatedAt = time.Now()
	return 1, nil
}

func (r *memDoseRepo) DeactivateMatching(_ context.Context, userID, name string, recipientID *uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, d := range r.s.doses {
		if d.UserID != userID || d.MedicationName != name || !d.IsActive {
			continue
		}
		if recipientID != nil && d.CareRecipientID != *recipientID {
			continue
		}
		d.IsActive = false
		n++
	}
	return n, nil
}

// -- templates --

type memTemplateRepo struct{ s *memStore }

func (r *memTemplateRepo) Create(_ context.Context, t *Template) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	t.ID = uuid.New()
	t.CreatedAt, t.UpdatedAt = time.Now(), time.Now()
	c := *t
	r.s.templates[t.ID] = &c
	return nil
}

func (r *memTemplateRepo) ListActive(_ context.Context, userID string) ([]*Template, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*Template
	for _, t := range r.s.templates {
		if t.UserID == userID && t.IsActive {
			c := *t
			out = append(out, &c)
		}
	}
	return out, nil
}

func (r *memTemplateRepo) DeactivateMatching(_ context.Context, userID, name string, recipientID, templateID *uuid.UUID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, t := range r.s.templates {
		if t.UserID != userID || !t.IsActive {
			continue
		}
		byTuple := t.MedicationName == name && (recipientID == nil || t.CareRecipientID == *recipientID)
		byID := templateID != nil && t.ID == *templateID
		if byTuple || byID {
			t.IsActive = false
			n++
		}
	}
	return n, nil
}

// -- history --

type memHistoryRepo struct{ s *memStore }

func (r *memHistoryRepo) Append(_ context.Context, entries ...*History) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, h := range entries {
		h.ID = uuid.New()
		h.CreatedAt = time.Now()
		r.s.history = append(r.s.history, h)
	}
	return nil
}

func (r *memHistoryRepo) ListByDose(_ context.Context, userID string, doseID uuid.UUID) ([]*History, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*History
	for i := len(r.s.history) - 1; i >= 0; i-- {
		h := r.s.history[i]
		if h.DoseID == doseID && h.UserID == userID {
			out = append(out, h)
		}
	}
	return out, nil
}

// -- recipients --

type memRecipients struct{ s *memStore }

func (r *memRecipients) ActiveOwned(_ context.Context, userID string, id uuid.UUID) (bool, error) {
	rec, ok := r.s.recipients[id]
	return ok && rec.active && rec.owner == userID, nil
}

func newTestService() (*Service, *memStore, *memTx) {
	s := newMemStore()
	tx := &memTx{s: s}
	svc := NewService(&memDoseRepo{s}, &memTemplateRepo{s}, &memHistoryRepo{s}, &memRecipients{s}, tx)
	return svc, s, tx
}
