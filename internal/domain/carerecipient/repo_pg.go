package carerecipient

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medtrack/medtrack/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Querier {
	return db.Conn(ctx, r.pool)
}

const cols = `id, user_id, name, to_char(date_of_birth, 'YYYY-MM-DD'), relationship, is_active, created_at, updated_at`

func scan(row pgx.Row) (*CareRecipient, error) {
	var c CareRecipient
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.DateOfBirth, &c.Relationship, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repoPG) ListActive(ctx context.Context, userID string) ([]*CareRecipient, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+cols+` FROM care_recipients
		WHERE user_id = $1 AND is_active = TRUE ORDER BY name, created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*CareRecipient
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

func (r *repoPG) Get(ctx context.Context, userID string, id uuid.UUID) (*CareRecipient, error) {
	return scan(r.conn(ctx).QueryRow(ctx, `SELECT `+cols+` FROM care_recipients WHERE id = $1 AND user_id = $2`, id, userID))
}

func (r *repoPG) Create(ctx context.Context, c *CareRecipient) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO care_recipients (id, user_id, name, date_of_birth, relationship, is_active)
		VALUES ($1, $2, $3, $4::date, $5, $6)
		RETURNING created_at, updated_at`,
		c.ID, c.UserID, c.Name, c.DateOfBirth, c.Relationship, c.IsActive,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *repoPG) Update(ctx context.Context, c *CareRecipient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE care_recipients SET name = $3, date_of_birth = $4::date, relationship = $5,
			is_active = $6, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`,
		c.ID, c.UserID, c.Name, c.DateOfBirth, c.Relationship, c.IsActive,
	).Scan(&c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *repoPG) SoftDelete(ctx context.Context, userID string, id uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE care_recipients SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND is_active = TRUE`, id, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *repoPG) ActiveOwned(ctx context.Context, userID string, id uuid.UUID) (bool, error) {
	var ok bool
	err := r.conn(ctx).QueryRow(ctx, `SELECT EXISTS (
		SELECT 1 FROM care_recipients WHERE id = $1 AND user_id = $2 AND is_active = TRUE)`,
		id, userID).Scan(&ok)
	return ok, err
}
