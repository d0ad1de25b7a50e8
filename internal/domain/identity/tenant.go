package identity

import (
	"strings"
	"time"
	_ "time/tzdata" // tenant timezones must resolve in minimal containers

	"github.com/ledger/backend/internal/domain/shared"
)

// TenantStatus represents the status of a tenant
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "ACTIVE"
	TenantStatusSuspended TenantStatus = "SUSPENDED" // Suspended by tenant administration
)

// IsValid returns true if the status is a known value
func (s TenantStatus) IsValid() bool {
	switch s.normalize() {
	case TenantStatusActive, TenantStatusSuspended:
		return true
	}
	return false
}

func (s TenantStatus) normalize() TenantStatus {
	return TenantStatus(strings.ToUpper(strings.TrimSpace(string(s))))
}

const (
	DefaultTimezone = "UTC"
	DefaultCurrency = "USD"
)

// Tenant is an isolated business account. Every product, invoice, customer and
// movement is scoped under one. Tenants are provisioned by administration; the
// ledger only reads them.
type Tenant struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Status    TenantStatus `json:"status"`
	Timezone  string       `json:"timezone,omitempty"`
	Currency  string       `json:"currency,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// NewTenant creates a new active tenant
func NewTenant(id, name string) (*Tenant, error) {
	if err := validateTenantID(id); err != nil {
		return nil, err
	}
	if err := validateTenantName(name); err != nil {
		return nil, err
	}

	return &Tenant{
		ID:        strings.TrimSpace(id),
		Name:      strings.TrimSpace(name),
		Status:    TenantStatusActive,
		Timezone:  DefaultTimezone,
		Currency:  DefaultCurrency,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// IsActive returns true if the tenant may use the ledger.
// Stored status values are compared case-insensitively.
func (t *Tenant) IsActive() bool {
	return t.Status.normalize() == TenantStatusActive
}

// Suspend blocks every ledger operation for the tenant
func (t *Tenant) Suspend() error {
	if t.Status.normalize() == TenantStatusSuspended {
		return shared.NewValidationError("ALREADY_SUSPENDED", "Tenant is already suspended")
	}
	t.Status = TenantStatusSuspended
	return nil
}

// Activate re-enables a suspended tenant
func (t *Tenant) Activate() error {
	if t.IsActive() {
		return shared.NewValidationError("ALREADY_ACTIVE", "Tenant is already active")
	}
	t.Status = TenantStatusActive
	return nil
}

// SetTimezone sets the IANA timezone used for calendar based reports
func (t *Tenant) SetTimezone(tz string) error {
	if _, err := time.LoadLocation(tz); err != nil {
		return shared.NewValidationError("INVALID_TIMEZONE", "Unknown timezone: "+tz)
	}
	t.Timezone = tz
	return nil
}

// Location returns the tenant's time zone, falling back to UTC when the
// stored value is empty or unknown.
func (t *Tenant) Location() *time.Location {
	if t.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func validateTenantID(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return shared.NewValidationError("INVALID_TENANT_ID", "Tenant ID cannot be empty")
	}
	if len(id) > 64 {
		return shared.NewValidationError("INVALID_TENANT_ID", "Tenant ID cannot exceed 64 characters")
	}
	if strings.ContainsAny(id, "/\\ ") {
		return shared.NewValidationError("INVALID_TENANT_ID", "Tenant ID cannot contain slashes or spaces")
	}
	return nil
}

func validateTenantName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewValidationError("INVALID_TENANT_NAME", "Tenant name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewValidationError("INVALID_TENANT_NAME", "Tenant name cannot exceed 200 characters")
	}
	return nil
}

// ValidateTenantID checks that id is usable as a key segment
func ValidateTenantID(id string) error {
	return validateTenantID(id)
}
