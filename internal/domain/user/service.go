package user

import (
	"context"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"

	"github.com/medtrack/medtrack/internal/platform/auth"
	"github.com/medtrack/medtrack/internal/platform/errs"
)

var phonePattern = regexp.MustCompile(`^\+?[0-9 ()\-]{5,20}$`)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// GetProfile returns the caller's profile, seeding it from the token's email
// and name claims when the user has never been seen.
func (s *Service) GetProfile(ctx context.Context, id auth.Identity) (*Profile, error) {
	p, err := s.repo.Ensure(ctx, &Profile{ID: id.UserID, Email: id.Email, Name: optional(id.Name)})
	if err != nil {
		err = errs.Storage("ensure user", err)
		zerolog.Ctx(ctx).Error().Err(err).Str("op", "ensure user").Msg("load profile failed")
		return nil, err
	}
	return p, nil
}

func (s *Service) UpdateProfile(ctx context.Context, id auth.Identity, req *UpdateRequest) (*Profile, error) {
	p, err := s.GetProfile(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, errs.Validation("name must not be empty")
		}
		p.Name = &name
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		if phone != "" && !phonePattern.MatchString(phone) {
			return nil, errs.Validation("phone is not a valid phone number")
		}
		p.Phone = optional(phone)
	}
	if req.Timezone != nil {
		tz := strings.TrimSpace(*req.Timezone)
		if tz != "" {
			if _, err := time.LoadLocation(tz); err != nil || tz == "Local" {
				return nil, errs.Validation("timezone must be an IANA time zone name")
			}
		}
		p.Timezone = optional(tz)
	}

	if err := s.repo.Update(ctx, p); err != nil {
		err = errs.Storage("update user", err)
		zerolog.Ctx(ctx).Error().Err(err).Str("op", "update user").Msg("update profile failed")
		return nil, err
	}
	return p, nil
}
