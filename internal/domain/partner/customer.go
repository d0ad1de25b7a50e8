package partner

import (
	"regexp"
	"strings"
	"time"

	"github.com/ledger/backend/internal/domain/shared"
)

var (
	validPhone   = regexp.MustCompile(`^[\d\s\-\(\)\+]+$`)
	validPincode = regexp.MustCompile(`^[A-Za-z0-9\- ]{3,12}$`)
)

// CustomerProfile holds the editable customer attributes
type CustomerProfile struct {
	Name    string
	Phone   string
	TaxID   string
	Address string
	Pincode string
}

// Customer is a tenant-scoped customer profile. Invoices copy the name and tax
// id at creation and never follow later edits.
type Customer struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	TaxID    string `json:"tax_id,omitempty"`
	Address  string `json:"address,omitempty"`
	Pincode  string `json:"pincode,omitempty"`
	shared.Timestamps
}

// NewCustomer creates a customer with a generated ID
func NewCustomer(tenantID string, profile CustomerProfile, now time.Time) (*Customer, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, shared.NewValidationError("INVALID_TENANT", "Tenant ID cannot be empty")
	}
	if err := validateProfile(profile); err != nil {
		return nil, err
	}

	return &Customer{
		ID:         shared.NewID(),
		TenantID:   tenantID,
		Name:       strings.TrimSpace(profile.Name),
		Phone:      strings.TrimSpace(profile.Phone),
		TaxID:      strings.TrimSpace(profile.TaxID),
		Address:    strings.TrimSpace(profile.Address),
		Pincode:    strings.TrimSpace(profile.Pincode),
		Timestamps: shared.NewTimestamps(now),
	}, nil
}

// Update replaces the profile. Invoices already issued keep their snapshot.
func (c *Customer) Update(profile CustomerProfile, now time.Time) error {
	if err := validateProfile(profile); err != nil {
		return err
	}
	c.Name = strings.TrimSpace(profile.Name)
	c.Phone = strings.TrimSpace(profile.Phone)
	c.TaxID = strings.TrimSpace(profile.TaxID)
	c.Address = strings.TrimSpace(profile.Address)
	c.Pincode = strings.TrimSpace(profile.Pincode)
	c.Touch(now)
	return nil
}

// Profile returns the editable attributes
func (c *Customer) Profile() CustomerProfile {
	return CustomerProfile{
		Name:    c.Name,
		Phone:   c.Phone,
		TaxID:   c.TaxID,
		Address: c.Address,
		Pincode: c.Pincode,
	}
}

func validateProfile(p CustomerProfile) error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return shared.NewValidationError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}
	if len(name) > 200 {
		return shared.NewValidationError("INVALID_CUSTOMER_NAME", "Customer name cannot exceed 200 characters")
	}

	phone := strings.TrimSpace(p.Phone)
	if phone == "" {
		return shared.NewValidationError("INVALID_PHONE", "Phone number cannot be empty")
	}
	if len(phone) > 50 {
		return shared.NewValidationError("INVALID_PHONE", "Phone number cannot exceed 50 characters")
	}
	// Basic phone validation - allow digits, spaces, hyphens, parentheses, and plus sign
	if !validPhone.MatchString(phone) {
		return shared.NewValidationError("INVALID_PHONE", "Invalid phone number format")
	}

	if len(p.TaxID) > 50 {
		return shared.NewValidationError("INVALID_TAX_ID", "Tax ID cannot exceed 50 characters")
	}
	if len(p.Address) > 500 {
		return shared.NewValidationError("INVALID_ADDRESS", "Address cannot exceed 500 characters")
	}
	if pin := strings.TrimSpace(p.Pincode); pin != "" && !validPincode.MatchString(pin) {
		return shared.NewValidationError("INVALID_PINCODE", "Invalid pincode format")
	}
	return nil
}
