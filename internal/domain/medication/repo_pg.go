package medication

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medtrack/medtrack/internal/platform/db"
)

// =========== Dose Repository ===========

type doseRepoPG struct{ pool *pgxpool.Pool }

func NewDoseRepoPG(pool *pgxpool.Pool) DoseRepository {
	return &doseRepoPG{pool: pool}
}

func (r *doseRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const doseCols = `id, user_id, care_recipient_id, template_id, medication_name, dosage,
	to_char(scheduled_date, 'YYYY-MM-DD'), scheduled_time, is_completed, completed_at,
	is_active, notes, created_at, updated_at`

func (r *doseRepoPG) scanDose(row pgx.Row) (*Dose, error) {
	var d Dose
	err := row.Scan(&d.ID, &d.UserID, &d.CareRecipientID, &d.TemplateID, &d.MedicationName, &d.Dosage,
		&d.ScheduledDate, &d.ScheduledTime, &d.IsCompleted, &d.CompletedAt,
		&d.IsActive, &d.Notes, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrDoseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateBatch inserts all doses in one round trip. Callers wanting
// all-or-nothing semantics run it inside a transaction.
func (r *doseRepoPG) CreateBatch(ctx context.Context, doses []*Dose) error {
	if len(doses) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, d := range doses {
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		b.Queue(`
			INSERT INTO medication_doses (id, user_id, care_recipient_id, template_id, medication_name, dosage,
				scheduled_date, scheduled_time, is_completed, is_active, notes)
			VALUES ($1,$2,$3,$4,$5,$6,$7::date,$8,$9,$10,$11)
			RETURNING created_at, updated_at`,
			d.ID, d.UserID, d.CareRecipientID, d.TemplateID, d.MedicationName, d.Dosage,
			d.ScheduledDate, d.ScheduledTime, d.IsCompleted, d.IsActive, d.Notes)
	}

	br := r.conn(ctx).SendBatch(ctx, b)
	for i, d := range doses {
		if err := br.QueryRow().Scan(&d.CreatedAt, &d.UpdatedAt); err != nil {
			br.Close()
			return fmt.Errorf("insert dose %d of %d: %w", i+1, len(doses), err)
		}
	}
	return br.Close()
}

func (r *doseRepoPG) Get(ctx context.Context, userID string, id uuid.UUID) (*Dose, error) {
	return r.scanDose(r.conn(ctx).QueryRow(ctx,
		`SELECT `+doseCols+` FROM medication_doses WHERE id = $1 AND user_id = $2`, id, userID))
}

func (r *doseRepoPG) GetActiveForUpdate(ctx context.Context, userID string, id uuid.UUID) (*Dose, error) {
	return r.scanDose(r.conn(ctx).QueryRow(ctx,
		`SELECT `+doseCols+` FROM medication_doses WHERE id = $1 AND user_id = $2 AND is_active = TRUE FOR UPDATE`, id, userID))
}

func (r *doseRepoPG) List(ctx context.Context, userID string, f ListFilter) ([]*Dose, error) {
	where := []string{"user_id = $1"}
	args := []interface{}{userID}
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	active := true
	if f.IsActive != nil {
		active = *f.IsActive
	}
	add("is_active = $%d", active)
	if f.CareRecipientID != nil {
		add("care_recipient_id = $%d", *f.CareRecipientID)
	}
	if f.DateFrom != nil {
		add("scheduled_date >= $%d::date", *f.DateFrom)
	}
	if f.DateTo != nil {
		add("scheduled_date <= $%d::date", *f.DateTo)
	}
	if f.IsCompleted != nil {
		add("is_completed = $%d", *f.IsCompleted)
	}

	rows, err := r.conn(ctx).Query(ctx, `SELECT `+doseCols+` FROM medication_doses WHERE `+
		strings.Join(where, " AND ")+` ORDER BY scheduled_date ASC, scheduled_time ASC, created_at ASC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Dose
	for rows.Next() {
		d, err := r.scanDose(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *doseRepoPG) SetCompleted(ctx context.Context, d *Dose) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE medication_doses
		SET is_completed = $3,
			completed_at = CASE WHEN $3 THEN NOW() ELSE NULL END,
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND is_active = TRUE
		RETURNING completed_at, updated_at`,
		d.ID, d.UserID, d.IsCompleted).Scan(&d.CompletedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrDoseNotFound
	}
	return err
}

func (r *doseRepoPG) Update(ctx context.Context, d *Dose) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE medication_doses SET medication_name=$3, care_recipient_id=$4, scheduled_date=$5::date,
			scheduled_time=$6, dosage=$7, is_completed=$8, completed_at=$9, notes=$10, template_id=$11,
			updated_at=NOW()
		WHERE id = $1 AND user_id = $2 AND is_active = TRUE`,
		d.ID, d.UserID, d.MedicationName, d.CareRecipientID, d.ScheduledDate,
		d.ScheduledTime, d.Dosage, d.IsCompleted, d.CompletedAt, d.Notes, d.TemplateID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDoseNotFound
	}
	return nil
}

func (r *doseRepoPG) SoftDelete(ctx context.Context, userID string, id uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE medication_doses SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND is_active = TRUE`, id, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *doseRepoPG) DeactivateMatching(ctx context.Context, userID, name string, recipientID *uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE medication_doses SET is_active = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND medication_name = $2 AND is_active = TRUE
			AND ($3::uuid IS NULL OR care_recipient_id = $3)`, userID, name, recipientID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// =========== Template Repository ===========

type templateRepoPG struct{ pool *pgxpool.Pool }

func NewTemplateRepoPG(pool *pgxpool.Pool) TemplateRepository {
	return &templateRepoPG{pool: pool}
}

func (r *templateRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const templateCols = `id, user_id, care_recipient_id, medication_name, dosage, time_of_day,
	recurrence_type, recurrence_days, to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'),
	is_active, created_at, updated_at`

func (r *templateRepoPG) Create(ctx context.Context, t *Template) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medication_templates (id, user_id, care_recipient_id, medication_name, dosage,
			time_of_day, recurrence_type, recurrence_days, start_date, end_date, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9::date,$10::date,$11)
		RETURNING created_at, updated_at`,
		t.ID, t.UserID, t.CareRecipientID, t.MedicationName, t.Dosage,
		t.TimeOfDay, string(t.RecurrenceType), t.RecurrenceDays, t.StartDate, t.EndDate, t.IsActive,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
}

func (r *templateRepoPG) ListActive(ctx context.Context, userID string) ([]*Template, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+templateCols+` FROM medication_templates
		WHERE user_id = $1 AND is_active = TRUE ORDER BY medication_name, start_date`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Template
	for rows.Next() {
		var t Template
		var rt string
		if err := rows.Scan(&t.ID, &t.UserID, &t.CareRecipientID, &t.MedicationName, &t.Dosage, &t.TimeOfDay,
			&rt, &t.RecurrenceDays, &t.StartDate, &t.EndDate,
			&t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.RecurrenceType = RecurrenceType(rt)
		items = append(items, &t)
	}
	return items, rows.Err()
}

func (r *templateRepoPG) DeactivateMatching(ctx context.Context, userID, name string, recipientID, templateID *uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE medication_templates SET is_active = FALSE, updated_at = NOW()
		WHERE user_id = $1 AND is_active = TRUE
			AND ((medication_name = $2 AND ($3::uuid IS NULL OR care_recipient_id = $3))
				OR id = $4::uuid)`, userID, name, recipientID, templateID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// =========== History Repository ===========

type historyRepoPG struct{ pool *pgxpool.Pool }

func NewHistoryRepoPG(pool *pgxpool.Pool) HistoryRepository {
	return &historyRepoPG{pool: pool}
}

func (r *historyRepoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

func jsonParam(b []byte) *string {
	if len(b) == 0 {
		return nil
	}
	s := string(b)
	return &s
}

func (r *historyRepoPG) Append(ctx context.Context, entries ...*History) error {
	if len(entries) == 0 {
		return nil
	}
	b := &pgx.Batch{}
	for _, h := range entries {
		if h.ID == uuid.Nil {
			h.ID = uuid.New()
		}
		b.Queue(`
			INSERT INTO medication_history (id, dose_id, user_id, action, old_values, new_values)
			VALUES ($1,$2,$3,$4,$5::jsonb,$6::jsonb)
			RETURNING created_at`,
			h.ID, h.DoseID, h.UserID, string(h.Action), jsonParam(h.OldValues), jsonParam(h.NewValues))
	}

	br := r.conn(ctx).SendBatch(ctx, b)
	for _, h := range entries {
		if err := br.QueryRow().Scan(&h.CreatedAt); err != nil {
			br.Close()
			return fmt.Errorf("insert history: %w", err)
		}
	}
	return br.Close()
}

func (r *historyRepoPG) ListByDose(ctx context.Context, userID string, doseID uuid.UUID) ([]*History, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, dose_id, user_id, action, old_values, new_values, created_at
		FROM medication_history WHERE dose_id = $1 AND user_id = $2
		ORDER BY created_at DESC, id`, doseID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*History
	for rows.Next() {
		var h History
		var action string
		var oldV, newV []byte
		if err := rows.Scan(&h.ID, &h.DoseID, &h.UserID, &action, &oldV, &newV, &h.CreatedAt); err != nil {
			return nil, err
		}
		h.Action = HistoryAction(action)
		h.OldValues = oldV
		h.NewValues = newV
		items = append(items, &h)
	}
	return items, rows.Err()
}
