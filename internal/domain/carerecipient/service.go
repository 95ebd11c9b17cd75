package carerecipient

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medtrack/medtrack/internal/platform/errs"
)

var timeNow = time.Now

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func validDate(s *string) error {
	if s == nil || *s == "" {
		return nil
	}
	dob, err := time.Parse(dateLayout, *s)
	if err != nil {
		return errs.Validation("dateOfBirth must be YYYY-MM-DD")
	}
	if dob.After(timeNow()) {
		return errs.Validation("dateOfBirth must not be in the future")
	}
	return nil
}

// emptyToNil treats "" as clearing an optional column.
func emptyToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func (s *Service) List(ctx context.Context, userID string) ([]*CareRecipient, error) {
	items, err := s.repo.ListActive(ctx, userID)
	if err != nil {
		return nil, errs.Storage("list care recipients", err)
	}
	if items == nil {
		items = []*CareRecipient{}
	}
	today := timeNow()
	for _, r := range items {
		r.fillAge(today)
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, userID string, id uuid.UUID) (*CareRecipient, error) {
	r, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, errs.Storage("get care recipient", err)
	}
	r.fillAge(timeNow())
	return r, nil
}

func (s *Service) Create(ctx context.Context, userID string, req *CreateRequest) (*CareRecipient, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errs.Validation("name is required")
	}
	if err := validDate(req.DateOfBirth); err != nil {
		return nil, err
	}

	r := &CareRecipient{
		ID:           uuid.New(),
		UserID:       userID,
		Name:         name,
		DateOfBirth:  emptyToNil(req.DateOfBirth),
		Relationship: emptyToNil(req.Relationship),
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return nil, s.fail(ctx, "create care recipient", r.ID, err)
	}
	r.fillAge(timeNow())
	zerolog.Ctx(ctx).Info().Str("care_recipient_id", r.ID.String()).Msg("care recipient created")
	return r, nil
}

func (s *Service) Update(ctx context.Context, userID string, id uuid.UUID, req *UpdateRequest) (*CareRecipient, error) {
	r, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, errs.Storage("get care recipient", err)
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, errs.Validation("name must not be empty")
		}
		r.Name = name
	}
	if req.DateOfBirth != nil {
		if err := validDate(req.DateOfBirth); err != nil {
			return nil, err
		}
		r.DateOfBirth = emptyToNil(req.DateOfBirth)
	}
	if req.Relationship != nil {
		r.Relationship = emptyToNil(req.Relationship)
	}
	if req.IsActive != nil {
		r.IsActive = *req.IsActive
	}

	if err := s.repo.Update(ctx, r); err != nil {
		return nil, s.fail(ctx, "update care recipient", id, err)
	}
	r.fillAge(timeNow())
	return r, nil
}

// Delete soft-deletes an active recipient. Their doses are left untouched.
func (s *Service) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	n, err := s.repo.SoftDelete(ctx, userID, id)
	if err != nil {
		return s.fail(ctx, "delete care recipient", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ActiveOwned lets the scheduling service check recipient ownership.
func (s *Service) ActiveOwned(ctx context.Context, userID string, id uuid.UUID) (bool, error) {
	return s.repo.ActiveOwned(ctx, userID, id)
}

func (s *Service) fail(ctx context.Context, op string, id uuid.UUID, err error) error {
	err = errs.Storage(op, err)
	zerolog.Ctx(ctx).Error().Err(err).Str("op", op).Str("care_recipient_id", id.String()).Msg("care recipient operation failed")
	return err
}
