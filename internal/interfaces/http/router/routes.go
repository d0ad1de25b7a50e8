package router

import (
	"github.com/gin-gonic/gin"
	"github.com/ledger/backend/internal/infrastructure/logger"
	"github.com/ledger/backend/internal/interfaces/http/handler"
	"github.com/ledger/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Handlers bundles every HTTP handler of the ledger API
type Handlers struct {
	Health    *handler.HealthHandler
	Products  *handler.ProductHandler
	Inventory *handler.InventoryHandler
	Invoices  *handler.InvoiceHandler
	Customers *handler.CustomerHandler
	Reports   *handler.ReportHandler
}

// EngineConfig holds the settings of the HTTP engine
type EngineConfig struct {
	Logger       *zap.Logger
	ServiceName  string
	Tracing      bool
	CORSOrigins  []string
	CORSMethods  []string
	CORSHeaders  []string
	MaxBodyBytes int64

	// TrustedProxies is handed to gin as is; nil trusts no proxy
	TrustedProxies []string
}

// NewEngine builds the gin engine with the global middleware chain and all
// ledger routes under /api/v1.
func NewEngine(cfg EngineConfig, h Handlers) *gin.Engine {
	middleware.SetupValidator()

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		log.Warn("Ignoring invalid trusted proxies", zap.Strings("proxies", cfg.TrustedProxies), zap.Error(err))
		_ = engine.SetTrustedProxies(nil)
	}
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.TracingWithConfig(middleware.TracingConfig{ServiceName: cfg.ServiceName, Enabled: cfg.Tracing}),
		middleware.Secure(),
	)

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORSOrigins
	if len(cfg.CORSMethods) > 0 {
		cors.AllowMethods = cfg.CORSMethods
	}
	if len(cfg.CORSHeaders) > 0 {
		cors.AllowHeaders = cfg.CORSHeaders
	}
	engine.Use(middleware.CORSWithConfig(cors), middleware.BodyLimit(cfg.MaxBodyBytes))

	engine.GET("/health", h.Health.Health)

	NewAPI("v1", middleware.TenantMiddleware(), middleware.SpanEnricher()).
		Add(ledgerGroups(h)...).
		Mount(engine)

	return engine
}

func ledgerGroups(h Handlers) []*RouteGroup {
	products := NewRouteGroup("catalog", "/products").
		POST("", h.Products.Create).
		GET("", h.Products.List).
		GET("/:sku", h.Products.Get).
		PUT("/:sku", h.Products.Update).
		DELETE("/:sku", h.Products.Delete).
		POST("/:sku/stock-in", h.Inventory.StockIn).
		POST("/:sku/stock-out", h.Inventory.StockOut).
		POST("/:sku/adjustments", h.Inventory.Adjust).
		GET("/:sku/movements", h.Inventory.ProductMovements)

	movements := NewRouteGroup("inventory", "/movements").
		GET("", h.Inventory.AllMovements)

	invoices := NewRouteGroup("trade", "/invoices").
		POST("", h.Invoices.Create).
		GET("", h.Invoices.List).
		GET("/:number", h.Invoices.Get).
		POST("/:number/cancel", h.Invoices.Cancel).
		POST("/:number/payments", h.Invoices.RecordPayment)

	customers := NewRouteGroup("partner", "/customers").
		POST("", h.Customers.Create).
		GET("", h.Customers.List).
		GET("/:id", h.Customers.Get).
		PUT("/:id", h.Customers.Update)

	reports := NewRouteGroup("report", "/reports").
		GET("/dashboard", h.Reports.Dashboard).
		GET("/valuation", h.Reports.Valuation).
		GET("/export/invoices.xlsx", h.Reports.ExportInvoices).
		GET("/export/valuation.xlsx", h.Reports.ExportValuation)

	return []*RouteGroup{products, movements, invoices, customers, reports}
}
