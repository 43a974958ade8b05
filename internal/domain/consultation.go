package domain

import (
	"regexp"
	"strings"
	"time"
)

type ConsultationStatus string

const (
	StatusPending   ConsultationStatus = "pending"
	StatusContacted ConsultationStatus = "contacted"
	StatusConverted ConsultationStatus = "converted"
	StatusCancelled ConsultationStatus = "cancelled"
)

func ParseConsultationStatus(s string) (ConsultationStatus, bool) {
	switch ConsultationStatus(s) {
	case StatusPending, StatusContacted, StatusConverted, StatusCancelled:
		return ConsultationStatus(s), true
	default:
		return "", false
	}
}

type Consultation struct {
	ID          int64              `json:"id"`
	UserID      *int64             `json:"user_id,omitempty"`
	Name        string             `json:"name"`
	Phone       string             `json:"phone"`
	Email       string             `json:"email,omitempty"`
	FirmID      int64              `json:"firm_id"`
	FirmName    string             `json:"firm_name"`
	ServiceID   int64              `json:"service_id"`
	ServiceName string             `json:"service_name"`
	Message     string             `json:"message,omitempty"`
	PreferredAt time.Time          `json:"preferred_at"`
	Status      ConsultationStatus `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// mobileRe is the CN mobile pattern the original market uses.
var mobileRe = regexp.MustCompile(`^1[3-9]\d{9}$`)

func IsValidMobile(phone string) bool {
	return mobileRe.MatchString(phone)
}

type CreateConsultationRequest struct {
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Email     string `json:"email,omitempty"`
	FirmID    int64  `json:"firm_id"`
	LawFirmID int64  `json:"law_firm_id,omitempty"` // legacy alias for firm_id
	ServiceID int64  `json:"service_id"`
	Message   string `json:"message,omitempty"`
	Time      string `json:"time"`
	// PreferredTime is the legacy name for Time; reconciled in Normalize.
	PreferredTime string `json:"preferred_time,omitempty"`

	// FirmEmail lets the caller add a firm-specific broadcast recipient.
	FirmEmail string `json:"-"`

	preferredAt time.Time
}

func (r *CreateConsultationRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Email = NormalizeEmail(r.Email)
	r.Message = strings.TrimSpace(r.Message)
	if r.FirmID == 0 {
		r.FirmID = r.LawFirmID
	}
	if r.Time == "" {
		r.Time = r.PreferredTime
	}
}

// Validate checks all fields locally, before any database access. now is
// injected so tests can pin the clock.
func (r *CreateConsultationRequest) Validate(now time.Time) error {
	if r.Name == "" {
		return NewValidationError("name", "is required")
	}
	if !IsValidMobile(r.Phone) {
		return NewValidationError("phone", "must be a valid mobile number")
	}
	if r.Email != "" && !IsValidEmail(r.Email) {
		return NewValidationError("email", "must be a valid email address")
	}
	if r.FirmID == 0 {
		return NewValidationError("firm_id", "is required")
	}
	if r.ServiceID == 0 {
		return NewValidationError("service_id", "is required")
	}
	if r.Time == "" {
		return NewValidationError("time", "is required")
	}
	t, err := time.Parse(time.RFC3339, r.Time)
	if err != nil {
		return NewValidationError("time", "must be an RFC 3339 timestamp")
	}
	if !t.After(now) {
		return NewValidationError("time", "must be in the future")
	}
	r.preferredAt = t
	return nil
}

// PreferredAt returns the parsed instant. Valid only after Validate.
func (r *CreateConsultationRequest) PreferredAt() time.Time {
	return r.preferredAt
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type ConsultationPage struct {
	Items []Consultation `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Size  int            `json:"size"`
	Pages int            `json:"pages"`
}
