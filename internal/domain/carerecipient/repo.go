package carerecipient

import (
	"context"

	"github.com/google/uuid"

	"github.com/medtrack/medtrack/internal/platform/errs"
)

// ErrNotFound covers recipients that are absent or owned by another user.
var ErrNotFound = errs.NotFound("care recipient")

type Repository interface {
	ListActive(ctx context.Context, userID string) ([]*CareRecipient, error)
	Get(ctx context.Context, userID string, id uuid.UUID) (*CareRecipient, error)
	Create(ctx context.Context, r *CareRecipient) error
	Update(ctx context.Context, r *CareRecipient) error
	SoftDelete(ctx context.Context, userID string, id uuid.UUID) (int64, error)
	ActiveOwned(ctx context.Context, userID string, id uuid.UUID) (bool, error)
}
