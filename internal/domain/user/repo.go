package user

import (
	"context"

	"github.com/medtrack/medtrack/internal/platform/errs"
)

var ErrNotFound = errs.NotFound("user")

type Repository interface {
	// Ensure returns the stored profile, creating it from the token claims
	// on first sight.
	Ensure(ctx context.Context, p *Profile) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
}
