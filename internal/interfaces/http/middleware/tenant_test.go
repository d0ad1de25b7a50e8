package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ledger/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
)

func TestTenantMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestID(), TenantMiddleware())
	router.GET("/api/v1/products", func(c *gin.Context) {
		c.String(http.StatusOK, GetTenantID(c)+"|"+logger.GetTenantID(c.Request.Context()))
	})
	router.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	tests := []struct {
		name   string
		path   string
		tenant string
		status int
		body   string
	}{
		{"tenant stored in both contexts", "/api/v1/products", "acme", http.StatusOK, "acme|acme"},
		{"surrounding spaces trimmed", "/api/v1/products", "  acme ", http.StatusOK, "acme|acme"},
		{"missing header", "/api/v1/products", "", http.StatusBadRequest, "Tenant identification required"},
		{"slash in tenant", "/api/v1/products", "a/b", http.StatusBadRequest, "Invalid tenant ID format"},
		{"health skipped", "/health", "", http.StatusOK, "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.tenant != "" {
				req.Header.Set(TenantHeaderKey, tt.tenant)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), tt.body)
		})
	}
}
