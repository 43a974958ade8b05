package domain

import (
	"sort"
	"strings"
	"time"
)

type Firm struct {
	ID             int64       `json:"id"`
	Name           string      `json:"name"`
	Slug           string      `json:"slug"`
	Address        string      `json:"address,omitempty"`
	City           string      `json:"city,omitempty"`
	Phone          string      `json:"phone,omitempty"`
	Email          string      `json:"email,omitempty"`
	Tags           []string    `json:"tags,omitempty"`
	PracticeAreas  []string    `json:"practice_areas,omitempty"`
	Staff          []string    `json:"staff,omitempty"`
	AvailableTimes []time.Time `json:"available_times,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type Service struct {
	ID             int64       `json:"id"`
	FirmID         int64       `json:"firm_id"`
	Title          string      `json:"title"`
	Description    string      `json:"description,omitempty"`
	Category       string      `json:"category,omitempty"`
	Price          float64     `json:"price"`
	AvailableTimes []time.Time `json:"available_times,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

type UpsertFirmRequest struct {
	Name           string      `json:"name"`
	Slug           string      `json:"slug,omitempty"`
	Address        string      `json:"address,omitempty"`
	City           string      `json:"city,omitempty"`
	Phone          string      `json:"phone,omitempty"`
	Email          string      `json:"email,omitempty"`
	Tags           []string    `json:"tags,omitempty"`
	PracticeAreas  []string    `json:"practice_areas,omitempty"`
	Staff          []string    `json:"staff,omitempty"`
	AvailableTimes []time.Time `json:"available_times,omitempty"`
}

func (r *UpsertFirmRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Slug = strings.TrimSpace(strings.ToLower(r.Slug))
	if r.Slug == "" {
		r.Slug = strings.ToLower(strings.Join(strings.Fields(r.Name), "-"))
	}
	r.Email = NormalizeEmail(r.Email)
	r.AvailableTimes = DedupInstants(r.AvailableTimes)
}

func (r *UpsertFirmRequest) Validate() error {
	if r.Name == "" {
		return NewValidationError("name", "is required")
	}
	if r.Email != "" && !IsValidEmail(r.Email) {
		return NewValidationError("email", "must be a valid email address")
	}
	return nil
}

type UpsertServiceRequest struct {
	FirmID         int64       `json:"firm_id"`
	LawFirmID      int64       `json:"law_firm_id,omitempty"` // legacy alias for firm_id
	Title          string      `json:"title"`
	Description    string      `json:"description,omitempty"`
	Category       string      `json:"category,omitempty"`
	Price          float64     `json:"price"`
	AvailableTimes []time.Time `json:"available_times,omitempty"`
}

func (r *UpsertServiceRequest) Normalize() {
	if r.FirmID == 0 {
		r.FirmID = r.LawFirmID
	}
	r.Title = strings.TrimSpace(r.Title)
	r.AvailableTimes = DedupInstants(r.AvailableTimes)
}

func (r *UpsertServiceRequest) Validate() error {
	if r.FirmID == 0 {
		return NewValidationError("firm_id", "is required")
	}
	if r.Title == "" {
		return NewValidationError("title", "is required")
	}
	if r.Price < 0 {
		return NewValidationError("price", "must not be negative")
	}
	return nil
}

// DedupInstants collapses duplicate timestamps (exact equality) and returns
// the inventory in ascending order.
func DedupInstants(ts []time.Time) []time.Time {
	if len(ts) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ts))
	out := make([]time.Time, 0, len(ts))
	for _, t := range ts {
		key := t.UnixNano()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// FutureInstants drops inventory entries that are not strictly after now.
func FutureInstants(ts []time.Time, now time.Time) []time.Time {
	out := ts[:0]
	for _, t := range ts {
		if t.After(now) {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ContainsInstant reports whether the inventory holds the exact instant.
func ContainsInstant(ts []time.Time, t time.Time) bool {
	for _, x := range ts {
		if x.Equal(t) {
			return true
		}
	}
	return false
}
