package middleware

import (
	"errors"
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type validationItem struct {
	SKU      string `json:"sku" binding:"required"`
	Quantity int64  `json:"quantity" binding:"required,gt=0"`
}

type validationPayload struct {
	Name   string           `json:"name" binding:"required,min=2"`
	Status string           `json:"status" binding:"omitempty,oneof=PAID UNPAID"`
	Items  []validationItem `json:"items" binding:"required,min=1,dive"`
	Note   string           `form:"note" binding:"max=3"`
}

func TestValidationDetails(t *testing.T) {
	SetupValidator()

	err := binding.Validator.ValidateStruct(&validationPayload{
		Name:   "x",
		Status: "LATE",
		Items:  []validationItem{{SKU: "A", Quantity: 1}, {SKU: "", Quantity: 0}},
		Note:   "too long",
	})
	require.Error(t, err)

	details := ValidationDetails(err)
	got := make(map[string]string, len(details))
	for _, d := range details {
		got[d.Field] = d.Message
	}

	assert.Equal(t, "Must be at least 2 characters", got["name"])
	assert.Equal(t, "Must be one of: PAID UNPAID", got["status"])
	assert.Equal(t, "This field is required", got["items[1].sku"])
	assert.Equal(t, "This field is required", got["items[1].quantity"])
	assert.Equal(t, "Must be at most 3 characters", got["note"])
	assert.NotContains(t, got, "items[0].sku")
}

func TestValidationDetails_NotValidatorError(t *testing.T) {
	assert.Nil(t, ValidationDetails(errors.New("boom")))
}
