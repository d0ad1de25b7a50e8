package shared

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Timestamps carries the common creation and modification times of a stored document
type Timestamps struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTimestamps stamps both fields with the given time
func NewTimestamps(now time.Time) Timestamps {
	now = now.UTC()
	return Timestamps{
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch moves UpdatedAt forward
func (t *Timestamps) Touch(now time.Time) {
	t.UpdatedAt = now.UTC()
}

// NewID returns a fresh random identifier
func NewID() string {
	return uuid.NewString()
}

// RoundMoney rounds an amount to 2 decimal places. All stored money passes through here.
func RoundMoney(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// Clock abstracts time for deterministic tests
type Clock func() time.Time

// SystemClock returns the current UTC time
func SystemClock() time.Time {
	return time.Now().UTC()
}
