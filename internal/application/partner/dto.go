package partner

import "github.com/ledger/backend/internal/domain/partner"

// CreateCustomerRequest represents a request to create a new customer
type CreateCustomerRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=200"`
	Phone   string `json:"phone" binding:"required,max=50"`
	TaxID   string `json:"tax_id" binding:"max=50"`
	Address string `json:"address" binding:"max=500"`
	Pincode string `json:"pincode" binding:"max=12"`
}

func (r CreateCustomerRequest) profile() partner.CustomerProfile {
	return partner.CustomerProfile{
		Name:    r.Name,
		Phone:   r.Phone,
		TaxID:   r.TaxID,
		Address: r.Address,
		Pincode: r.Pincode,
	}
}

// UpdateCustomerRequest represents a request to update a customer.
// Nil fields keep their current value.
type UpdateCustomerRequest struct {
	Name    *string `json:"name" binding:"omitempty,min=1,max=200"`
	Phone   *string `json:"phone" binding:"omitempty,max=50"`
	TaxID   *string `json:"tax_id" binding:"omitempty,max=50"`
	Address *string `json:"address" binding:"omitempty,max=500"`
	Pincode *string `json:"pincode" binding:"omitempty,max=12"`
}

func (r UpdateCustomerRequest) applyTo(p partner.CustomerProfile) partner.CustomerProfile {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Phone != nil {
		p.Phone = *r.Phone
	}
	if r.TaxID != nil {
		p.TaxID = *r.TaxID
	}
	if r.Address != nil {
		p.Address = *r.Address
	}
	if r.Pincode != nil {
		p.Pincode = *r.Pincode
	}
	return p
}
