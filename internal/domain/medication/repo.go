package medication

import (
	"context"

	"github.com/google/uuid"

	"github.com/medtrack/medtrack/internal/platform/errs"
)

// ErrDoseNotFound is returned for doses that are absent, owned by another
// user or, where the operation requires it, already inactive.
var ErrDoseNotFound = errs.NotFound("medication dose")

// DoseRepository reads and writes medication_doses. Every method is scoped
// to userID.
type DoseRepository interface {
	CreateBatch(ctx context.Context, doses []*Dose) error
	Get(ctx context.Context, userID string, id uuid.UUID) (*Dose, error)
	// GetActiveForUpdate locks the row for the rest of the transaction.
	GetActiveForUpdate(ctx context.Context, userID string, id uuid.UUID) (*Dose, error)
	List(ctx context.Context, userID string, f ListFilter) ([]*Dose, error)
	SetCompleted(ctx context.Context, d *Dose) error
	Update(ctx context.Context, d *Dose) error
	SoftDelete(ctx context.Context, userID string, id uuid.UUID) (int64, error)
	// DeactivateMatching deactivates the user's active doses with the given
	// name, restricted to one care recipient when recipientID is set.
	DeactivateMatching(ctx context.Context, userID, name string, recipientID *uuid.UUID) (int64, error)
}

type TemplateRepository interface {
	Create(ctx context.Context, t *Template) error
	ListActive(ctx context.Context, userID string) ([]*Template, error)
	// DeactivateMatching deactivates active templates matching the name (and
	// recipient when set), plus the template with templateID when set.
	DeactivateMatching(ctx context.Context, userID, name string, recipientID, templateID *uuid.UUID) (int64, error)
}

type HistoryRepository interface {
	Append(ctx context.Context, entries ...*History) error
	ListByDose(ctx context.Context, userID string, doseID uuid.UUID) ([]*History, error)
}

// RecipientChecker reports whether a care recipient exists, is active and
// belongs to userID.
type RecipientChecker interface {
	ActiveOwned(ctx context.Context, userID string, id uuid.UUID) (bool, error)
}
