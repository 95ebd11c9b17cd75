package medication

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medtrack/medtrack/internal/platform/db"
	"github.com/medtrack/medtrack/internal/platform/errs"
)

// timeNow is replaced in tests.
var timeNow = time.Now

type Service struct {
	doses      DoseRepository
	templates  TemplateRepository
	history    HistoryRepository
	recipients RecipientChecker
	tx         db.Transactor
	metrics    *Metrics
}

func NewService(
	doses DoseRepository,
	templates TemplateRepository,
	history HistoryRepository,
	recipients RecipientChecker,
	tx db.Transactor,
) *Service {
	return &Service{
		doses:      doses,
		templates:  templates,
		history:    history,
		recipients: recipients,
		tx:         tx,
	}
}

// SetMetrics attaches optional domain counters.
func (s *Service) SetMetrics(m *Metrics) {
	s.metrics = m
}

func storageErr(op string, err error) error {
	return errs.Storage(op, err)
}

func snapshot(d *Dose) json.RawMessage {
	b, _ := json.Marshal(d)
	return b
}

func (s *Service) requireRecipient(ctx context.Context, userID string, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errs.Validation("careRecipientId must be a valid id")
	}
	ok, err := s.recipients.ActiveOwned(ctx, userID, id)
	if err != nil {
		return uuid.Nil, errs.Internal("check care recipient", err)
	}
	if !ok {
		return uuid.Nil, errs.Validation("care recipient not found or inactive")
	}
	return id, nil
}

// -- Scheduling --

type createPlan struct {
	recipientID uuid.UUID
	recurrence  RecurrenceType
	dates       []string
	endDate     *string
}

func (s *Service) planCreate(ctx context.Context, userID string, req *CreateRequest) (*createPlan, error) {
	req.MedicationName = strings.TrimSpace(req.MedicationName)
	if req.MedicationName == "" {
		return nil, errs.Validation("medicationName is required")
	}
	if req.CareRecipientID == "" {
		return nil, errs.Validation("careRecipientId is required")
	}
	start, err := ParseDate(req.ScheduledDate)
	if err != nil {
		return nil, errs.Validation("scheduledDate must be YYYY-MM-DD")
	}
	if !ValidTimeOfDay(req.ScheduledTime) {
		return nil, errs.Validation("scheduledTime must be HH:MM")
	}

	rt := RecurrenceType(req.RecurrenceType)
	if rt == "" {
		rt = RecurrenceNone
	}
	plan := &createPlan{recurrence: rt}

	var dates []string
	switch rt {
	case RecurrenceNone:
		dates = []string{FormatDate(start)}
	case RecurrenceDaily, RecurrenceWeekly:
		if req.RecurrenceEndDate == nil || *req.RecurrenceEndDate == "" {
			return nil, errs.Validation("recurrenceEndDate is required for %s recurrence", rt)
		}
		end, err := ParseDate(*req.RecurrenceEndDate)
		if err != nil {
			return nil, errs.Validation("recurrenceEndDate must be YYYY-MM-DD")
		}
		expanded, err := Expand(start, end, rt)
		if err != nil {
			return nil, errs.Validation("%v", err)
		}
		for _, d := range expanded {
			dates = append(dates, FormatDate(d))
		}
		endStr := FormatDate(end)
		plan.endDate = &endStr
	default:
		return nil, errs.Validation("recurrenceType must be one of none, daily, weekly")
	}
	plan.dates = dates

	plan.recipientID, err = s.requireRecipient(ctx, userID, req.CareRecipientID)
	if err != nil {
		return nil, err
	}
	return plan, nil
}

// CreateMedication writes one dose, or a template plus one dose per
// occurrence for daily and weekly requests. Everything is written in a
// single transaction.
func (s *Service) CreateMedication(ctx context.Context, userID string, req *CreateRequest) (*CreateResult, error) {
	plan, err := s.planCreate(ctx, userID, req)
	if err != nil {
		return nil, err
	}

	result := &CreateResult{Doses: make([]*Dose, 0, len(plan.dates))}

	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		var templateID *uuid.UUID
		if plan.recurrence != RecurrenceNone {
			t := &Template{
				UserID:          userID,
				CareRecipientID: plan.recipientID,
				MedicationName:  req.MedicationName,
				Dosage:          req.Dosage,
				TimeOfDay:       req.ScheduledTime,
				RecurrenceType:  plan.recurrence,
				StartDate:       req.ScheduledDate,
				EndDate:         plan.endDate,
				IsActive:        true,
			}
			if err := s.templates.Create(ctx, t); err != nil {
				return storageErr("create template", err)
			}
			templateID = &t.ID
		}

		for _, date := range plan.dates {
			result.Doses = append(result.Doses, &Dose{
				ID:              uuid.New(),
				UserID:          userID,
				CareRecipientID: plan.recipientID,
				TemplateID:      templateID,
				MedicationName:  req.MedicationName,
				Dosage:          req.Dosage,
				ScheduledDate:   date,
				ScheduledTime:   req.ScheduledTime,
				IsActive:        true,
				Notes:           req.Notes,
			})
		}
		if err := s.doses.CreateBatch(ctx, result.Doses); err != nil {
			return storageErr("create doses", err)
		}

		entries := make([]*History, 0, len(result.Doses))
		for _, d := range result.Doses {
			entries = append(entries, &History{DoseID: d.ID, UserID: userID, Action: ActionCreated, NewValues: snapshot(d)})
		}
		if err := s.history.Append(ctx, entries...); err != nil {
			return storageErr("append history", err)
		}

		result.TemplateID = templateID
		return nil
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("op", "create_medication").
			Str("care_recipient_id", plan.recipientID.String()).Int("planned_doses", len(plan.dates)).
			Msg("create medication failed")
		return nil, storageErr("create medication", err)
	}

	result.Message = fmt.Sprintf("Created %d medication dose(s)", len(result.Doses))
	s.metrics.created(len(result.Doses), result.TemplateID != nil)
	zerolog.Ctx(ctx).Info().Str("op", "create_medication").
		Str("recurrence", string(plan.recurrence)).Int("doses", len(result.Doses)).
		Msg("medication created")
	return result, nil
}

// -- Lifecycle --

func validateFilter(f ListFilter) error {
	if (f.DateFrom == nil) != (f.DateTo == nil) {
		return errs.Validation("dateFrom and dateTo must be supplied together")
	}
	if f.DateFrom != nil {
		from, err := ParseDate(*f.DateFrom)
		if err != nil {
			return errs.Validation("dateFrom must be YYYY-MM-DD")
		}
		to, err := ParseDate(*f.DateTo)
		if err != nil {
			return errs.Validation("dateTo must be YYYY-MM-DD")
		}
		if to.Before(from) {
			return errs.Validation("dateTo must not be before dateFrom")
		}
	}
	return nil
}

func (s *Service) ListMedications(ctx context.Context, userID string, f ListFilter) ([]*Dose, error) {
	if err := validateFilter(f); err != nil {
		return nil, err
	}
	items, err := s.doses.List(ctx, userID, f)
	if err != nil {
		return nil, storageErr("list doses", err)
	}
	if items == nil {
		items = []*Dose{}
	}
	return items, nil
}

func (s *Service) GetMedication(ctx context.Context, userID string, id uuid.UUID) (*Dose, error) {
	d, err := s.doses.Get(ctx, userID, id)
	if err != nil {
		return nil, storageErr("get dose", err)
	}
	return d, nil
}

// ToggleCompletion negates the stored completion flag under a row lock.
func (s *Service) ToggleCompletion(ctx context.Context, userID string, id uuid.UUID) (*ToggleResult, error) {
	var result *ToggleResult
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		d, err := s.doses.GetActiveForUpdate(ctx, userID, id)
		if err != nil {
			return storageErr("lock dose", err)
		}
		before := snapshot(d)

		d.IsCompleted = !d.IsCompleted
		if err := s.doses.SetCompleted(ctx, d); err != nil {
			return storageErr("set completion", err)
		}

		action := ActionUncompleted
		if d.IsCompleted {
			action = ActionCompleted
		}
		if err := s.history.Append(ctx, &History{DoseID: d.ID, UserID: userID, Action: action, OldValues: before, NewValues: snapshot(d)}); err != nil {
			return storageErr("append history", err)
		}

		result = &ToggleResult{ID: d.ID, IsCompleted: d.IsCompleted, UpdatedAt: d.UpdatedAt}
		return nil
	})
	if err != nil {
		return nil, s.logFailure(ctx, "toggle_completion", id, err)
	}
	s.metrics.toggled(result.IsCompleted)
	return result, nil
}

// applyUpdate mutates d in place. A dose whose name or recipient changes no
// longer belongs to the series it was expanded from and drops its template.
func (s *Service) applyUpdate(ctx context.Context, userID string, d *Dose, req *UpdateRequest) error {
	name, recipient := d.MedicationName, d.CareRecipientID
	if req.MedicationName != nil {
		name := strings.TrimSpace(*req.MedicationName)
		if name == "" {
			return errs.Validation("medicationName must not be empty")
		}
		d.MedicationName = name
	}
	if req.ScheduledDate != nil {
		if _, err := ParseDate(*req.ScheduledDate); err != nil {
			return errs.Validation("scheduledDate must be YYYY-MM-DD")
		}
		d.ScheduledDate = *req.ScheduledDate
	}
	if req.ScheduledTime != nil {
		if !ValidTimeOfDay(*req.ScheduledTime) {
			return errs.Validation("scheduledTime must be HH:MM")
		}
		d.ScheduledTime = *req.ScheduledTime
	}
	if req.Dosage != nil {
		d.Dosage = *req.Dosage
	}
	if req.Notes != nil {
		d.Notes = req.Notes
	}
	if req.IsCompleted != nil && *req.IsCompleted != d.IsCompleted {
		d.IsCompleted = *req.IsCompleted
		if d.IsCompleted {
			now := timeNow().UTC()
			d.CompletedAt = &now
		} else {
			d.CompletedAt = nil
		}
	}
	if req.CareRecipientID != nil {
		rid, err := s.requireRecipient(ctx, userID, *req.CareRecipientID)
		if err != nil {
			return err
		}
		d.CareRecipientID = rid
	}
	if d.MedicationName != name || d.CareRecipientID != recipient {
		d.TemplateID = nil
	}
	return nil
}

// UpdateMedication applies a partial update to an active dose and returns
// the row as stored afterwards.
func (s *Service) UpdateMedication(ctx context.Context, userID string, id uuid.UUID, req *UpdateRequest) (*Dose, error) {
	var updated *Dose
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		d, err := s.doses.GetActiveForUpdate(ctx, userID, id)
		if err != nil {
			return storageErr("lock dose", err)
		}
		before := snapshot(d)

		if err := s.applyUpdate(ctx, userID, d, req); err != nil {
			return err
		}
		if err := s.doses.Update(ctx, d); err != nil {
			return storageErr("update dose", err)
		}

		updated, err = s.doses.Get(ctx, userID, id)
		if err != nil {
			return storageErr("reload dose", err)
		}
		if err := s.history.Append(ctx, &History{DoseID: id, UserID: userID, Action: ActionUpdated, OldValues: before, NewValues: snapshot(updated)}); err != nil {
			return storageErr("append history", err)
		}
		return nil
	})
	if err != nil {
		return nil, s.logFailure(ctx, "update_medication", id, err)
	}
	return updated, nil
}

// DeleteMedication soft-deletes an active dose. Deleting an inactive dose is
// NotFound, not a silent success.
func (s *Service) DeleteMedication(ctx context.Context, userID string, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		d, err := s.doses.GetActiveForUpdate(ctx, userID, id)
		if err != nil {
			return storageErr("lock dose", err)
		}
		n, err := s.doses.SoftDelete(ctx, userID, id)
		if err != nil {
			return storageErr("soft delete dose", err)
		}
		if n == 0 {
			return ErrDoseNotFound
		}
		before := snapshot(d)
		d.IsActive = false
		return storageErr("append history", s.history.Append(ctx, &History{DoseID: id, UserID: userID, Action: ActionDeleted, OldValues: before, NewValues: snapshot(d)}))
	})
	if err != nil {
		return s.logFailure(ctx, "delete_medication", id, err)
	}
	s.metrics.deactivatedDoses("delete", 1)
	return nil
}

// ParseScope maps the request value onto a Scope. Empty means single.
func ParseScope(raw string) (Scope, error) {
	switch Scope(raw) {
	case "", ScopeSingle:
		return ScopeSingle, nil
	case ScopeAll:
		return ScopeAll, nil
	}
	return "", errs.Validation("scope must be single or all")
}

// MarkInactive deactivates every active dose sharing the target dose's
// medication name, for its care recipient (single) or for all of the user's
// care recipients (all), together with the matching templates.
func (s *Service) MarkInactive(ctx context.Context, userID string, id uuid.UUID, scope Scope) (*MarkInactiveResult, error) {
	if scope != ScopeSingle && scope != ScopeAll {
		return nil, errs.Validation("scope must be single or all")
	}

	var result *MarkInactiveResult
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		target, err := s.doses.GetActiveForUpdate(ctx, userID, id)
		if err != nil {
			return storageErr("lock dose", err)
		}

		var recipient *uuid.UUID
		if scope == ScopeSingle {
			rid := target.CareRecipientID
			recipient = &rid
		}

		n, err := s.doses.DeactivateMatching(ctx, userID, target.MedicationName, recipient)
		if err != nil {
			return storageErr("deactivate doses", err)
		}
		templates, err := s.templates.DeactivateMatching(ctx, userID, target.MedicationName, recipient, target.TemplateID)
		if err != nil {
			return storageErr("deactivate templates", err)
		}

		result = &MarkInactiveResult{AffectedRows: n, MedicationName: target.MedicationName, Scope: scope}
		details, _ := json.Marshal(map[string]interface{}{
			"scope":                scope,
			"affectedRows":         n,
			"deactivatedTemplates": templates,
		})
		if err := s.history.Append(ctx, &History{DoseID: id, UserID: userID, Action: ActionDeactivated, OldValues: snapshot(target), NewValues: details}); err != nil {
			return storageErr("append history", err)
		}

		zerolog.Ctx(ctx).Info().Str("op", "mark_inactive").Str("dose_id", id.String()).
			Str("scope", string(scope)).Int64("doses", n).Int64("templates", templates).
			Msg("medication marked inactive")
		return nil
	})
	if err != nil {
		return nil, s.logFailure(ctx, "mark_inactive", id, err)
	}
	s.metrics.deactivatedDoses("mark_inactive_"+string(scope), result.AffectedRows)
	return result, nil
}

// ListHistory returns a dose's audit trail, newest first.
func (s *Service) ListHistory(ctx context.Context, userID string, doseID uuid.UUID) ([]*History, error) {
	if _, err := s.doses.Get(ctx, userID, doseID); err != nil {
		return nil, storageErr("get dose", err)
	}
	items, err := s.history.ListByDose(ctx, userID, doseID)
	if err != nil {
		return nil, storageErr("list history", err)
	}
	if items == nil {
		items = []*History{}
	}
	return items, nil
}

func (s *Service) ListTemplates(ctx context.Context, userID string) ([]*Template, error) {
	items, err := s.templates.ListActive(ctx, userID)
	if err != nil {
		return nil, storageErr("list templates", err)
	}
	if items == nil {
		items = []*Template{}
	}
	return items, nil
}

func (s *Service) logFailure(ctx context.Context, op string, id uuid.UUID, err error) error {
	err = storageErr(op, err)
	if errors.Is(err, errs.ErrInternal) {
		zerolog.Ctx(ctx).Error().Err(err).Str("op", op).Str("dose_id", id.String()).Msg("medication operation failed")
	}
	return err
}
