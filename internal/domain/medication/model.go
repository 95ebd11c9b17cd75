package medication

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type RecurrenceType string

const (
	RecurrenceNone    RecurrenceType = "none"
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
)

// Dose maps to the medication_doses table. ScheduledDate is YYYY-MM-DD and
// ScheduledTime is HH:MM, both in the care recipient's local calendar.
type Dose struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	UserID          string     `db:"user_id" json:"userId"`
	CareRecipientID uuid.UUID  `db:"care_recipient_id" json:"careRecipientId"`
	TemplateID      *uuid.UUID `db:"template_id" json:"templateId,omitempty"`
	MedicationName  string     `db:"medication_name" json:"medicationName"`
	Dosage          string     `db:"dosage" json:"dosage"`
	ScheduledDate   string     `db:"scheduled_date" json:"scheduledDate"`
	ScheduledTime   string     `db:"scheduled_time" json:"scheduledTime"`
	IsCompleted     bool       `db:"is_completed" json:"isCompleted"`
	CompletedAt     *time.Time `db:"completed_at" json:"completedAt,omitempty"`
	IsActive        bool       `db:"is_active" json:"isActive"`
	Notes           *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`
}

// Template maps to the medication_templates table: the recurrence rule a
// series of doses was expanded from.
type Template struct {
	ID              uuid.UUID      `db:"id" json:"id"`
	UserID          string         `db:"user_id" json:"userId"`
	CareRecipientID uuid.UUID      `db:"care_recipient_id" json:"careRecipientId"`
	MedicationName  string         `db:"medication_name" json:"medicationName"`
	Dosage          string         `db:"dosage" json:"dosage"`
	TimeOfDay       string         `db:"time_of_day" json:"timeOfDay"`
	RecurrenceType  RecurrenceType `db:"recurrence_type" json:"recurrenceType"`
	RecurrenceDays  *string        `db:"recurrence_days" json:"recurrenceDays,omitempty"`
	StartDate       string         `db:"start_date" json:"startDate"`
	EndDate         *string        `db:"end_date" json:"endDate,omitempty"`
	IsActive        bool           `db:"is_active" json:"isActive"`
	CreatedAt       time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updatedAt"`
}

type HistoryAction string

const (
	ActionCreated     HistoryAction = "created"
	ActionUpdated     HistoryAction = "updated"
	ActionCompleted   HistoryAction = "completed"
	ActionUncompleted HistoryAction = "uncompleted"
	ActionDeleted     HistoryAction = "deleted"
	ActionDeactivated HistoryAction = "deactivated"
)

// History maps to the medication_history table. Old and new values are JSON
// snapshots of the dose around the transition.
type History struct {
	ID        uuid.UUID       `db:"id" json:"id"`
	DoseID    uuid.UUID       `db:"dose_id" json:"medicationDoseId"`
	UserID    string          `db:"user_id" json:"userId"`
	Action    HistoryAction   `db:"action" json:"action"`
	OldValues json.RawMessage `db:"old_values" json:"oldValues,omitempty"`
	NewValues json.RawMessage `db:"new_values" json:"newValues,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"createdAt"`
}

type CreateRequest struct {
	MedicationName    string  `json:"medicationName"`
	CareRecipientID   string  `json:"careRecipientId"`
	ScheduledDate     string  `json:"scheduledDate"`
	ScheduledTime     string  `json:"scheduledTime"`
	Dosage            string  `json:"dosage"`
	RecurrenceType    string  `json:"recurrenceType"`
	RecurrenceEndDate *string `json:"recurrenceEndDate"`
	Notes             *string `json:"notes"`
}

type CreateResult struct {
	Doses      []*Dose    `json:"doses"`
	TemplateID *uuid.UUID `json:"templateId"`
	Message    string     `json:"message"`
}

// UpdateRequest is a partial update: nil fields keep the stored value.
type UpdateRequest struct {
	MedicationName  *string `json:"medicationName"`
	CareRecipientID *string `json:"careRecipientId"`
	ScheduledDate   *string `json:"scheduledDate"`
	ScheduledTime   *string `json:"scheduledTime"`
	Dosage          *string `json:"dosage"`
	IsCompleted     *bool   `json:"isCompleted"`
	Notes           *string `json:"notes"`
}

// ListFilter narrows ListMedications. IsActive defaults to true when nil.
type ListFilter struct {
	CareRecipientID *uuid.UUID
	DateFrom        *string
	DateTo          *string
	IsCompleted     *bool
	IsActive        *bool
}

type Scope string

const (
	ScopeSingle Scope = "single"
	ScopeAll    Scope = "all"
)

type ToggleResult struct {
	ID          uuid.UUID `json:"id"`
	IsCompleted bool      `json:"isCompleted"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type MarkInactiveResult struct {
	AffectedRows   int64  `json:"affectedRows"`
	MedicationName string `json:"medicationName"`
	Scope          Scope  `json:"scope"`
}
