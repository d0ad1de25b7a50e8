package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/interfaces/http/dto"
	"github.com/ledger/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

func newTestContext(method, body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Set(middleware.RequestIDKey, "req-1")
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestBaseHandler_HandleError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", shared.NewValidationError("INVALID_QUANTITY", "Quantity must be positive"), http.StatusBadRequest, "INVALID_QUANTITY"},
		{"not found", shared.NewNotFoundError("NOT_FOUND", "Product not found: X"), http.StatusNotFound, "NOT_FOUND"},
		{"conflict", shared.NewConflictError("OVERPAYMENT", "Payment exceeds outstanding amount"), http.StatusConflict, "OVERPAYMENT"},
		{"forbidden", shared.NewForbiddenError("TENANT_SUSPENDED", "Tenant acme is SUSPENDED"), http.StatusForbidden, "TENANT_SUSPENDED"},
		{"retryable storage", shared.NewStorageError("STORE_TIMEOUT", "timeout", nil, true), http.StatusServiceUnavailable, "STORE_TIMEOUT"},
		{"storage", shared.NewStorageError("CORRUPT_DOCUMENT", "corrupt", nil, false), http.StatusInternalServerError, "CORRUPT_DOCUMENT"},
		{"wrapped", fmt.Errorf("cancel: %w", shared.NewConflictError("INSUFFICIENT_STOCK", "no")), http.StatusConflict, "INSUFFICIENT_STOCK"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}

	h := &BaseHandler{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext(http.MethodGet, "")
			h.HandleError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, "req-1", resp.RequestID)
		})
	}
}

func TestBaseHandler_BindJSON(t *testing.T) {
	type payload struct {
		Name     string `json:"name" binding:"required"`
		Quantity int64  `json:"quantity" binding:"gt=0"`
	}

	tests := []struct {
		name   string
		body   string
		ok     bool
		code   string
		fields []string
	}{
		{"valid", `{"name":"a","quantity":1}`, true, "", nil},
		{"empty body", ``, false, dto.ErrCodeInvalidJSON, nil},
		{"truncated", `{"name":`, false, dto.ErrCodeInvalidJSON, nil},
		{"wrong type", `{"name":"a","quantity":"many"}`, false, dto.ErrCodeInvalidJSON, nil},
		{"invalid fields", `{"quantity":0}`, false, dto.ErrCodeValidation, []string{"name", "quantity"}},
	}

	h := &BaseHandler{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext(http.MethodPost, tt.body)
			var p payload
			ok := h.BindJSON(c, &p)

			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				return
			}
			assert.Equal(t, http.StatusBadRequest, w.Code)
			resp := decodeResponse(t, w)
			assert.Equal(t, tt.code, resp.Error.Code)
			for _, f := range tt.fields {
				found := false
				for _, d := range resp.Error.Details {
					found = found || d.Field == f
				}
				assert.True(t, found, "missing detail for %s", f)
			}
		})
	}
}
