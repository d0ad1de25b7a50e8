package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName names the tracer and meter used by ledger code
const TracerName = "ledger-backend"

// Span attribute keys used by the ledger services
const (
	SpanAttrTenantID      = "tenant_id"
	SpanAttrSKU           = "sku"
	SpanAttrQuantity      = "quantity"
	SpanAttrInvoiceNumber = "invoice_number"
	SpanAttrAmount        = "amount"
	SpanAttrLineCount     = "line_count"
	SpanAttrStoreKey      = "store.key"
)

// SpanOption tweaks a span before it starts
type SpanOption func(kind *trace.SpanKind, attrs *[]attribute.KeyValue)

// WithAttribute attaches key=value at span start
func WithAttribute(key string, value any) SpanOption {
	return func(_ *trace.SpanKind, attrs *[]attribute.KeyValue) {
		*attrs = append(*attrs, attr(key, value))
	}
}

// WithSpanKind overrides the default internal kind
func WithSpanKind(kind trace.SpanKind) SpanOption {
	return func(k *trace.SpanKind, _ *[]attribute.KeyValue) {
		*k = kind
	}
}

// StartSpan opens a span on the global tracer provider. The caller ends it:
//
//	ctx, span := telemetry.StartSpan(ctx, "invoice.create")
//	defer span.End()
func StartSpan(ctx context.Context, name string, opts ...SpanOption) (context.Context, trace.Span) {
	kind := trace.SpanKindInternal
	var attrs []attribute.KeyValue
	for _, opt := range opts {
		opt(&kind, &attrs)
	}
	return otel.Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(kind),
		trace.WithAttributes(attrs...),
	)
}

// StartServiceSpan opens a span named "service.method", e.g. "valuation.stock_in"
func StartServiceSpan(ctx context.Context, service, method string, opts ...SpanOption) (context.Context, trace.Span) {
	return StartSpan(ctx, service+"."+method, opts...)
}

// SetAttributes sets alternating key, value pairs on span. Pairs whose key
// is not a string and a trailing key without value are ignored.
func SetAttributes(span trace.Span, kv ...any) {
	if span == nil {
		return
	}
	var attrs []attribute.KeyValue
	for len(kv) >= 2 {
		if key, ok := kv[0].(string); ok {
			attrs = append(attrs, attr(key, kv[1]))
		}
		kv = kv[2:]
	}
	span.SetAttributes(attrs...)
}

// RecordError marks span as failed with err. A nil err is a no-op.
func RecordError(span trace.Span, err error, opts ...trace.EventOption) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err, opts...)
	span.SetStatus(codes.Error, err.Error())
}

// GetTraceID returns the hex trace id of the span in ctx, or "" without one
func GetTraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}

func attr(key string, value any) attribute.KeyValue {
	k := attribute.Key(key)
	switch v := value.(type) {
	case string:
		return k.String(v)
	case bool:
		return k.Bool(v)
	case int:
		return k.Int(v)
	case int64:
		return k.Int64(v)
	case float64:
		return k.Float64(v)
	case []string:
		return k.StringSlice(v)
	case fmt.Stringer:
		// decimal.Decimal and friends
		return k.String(v.String())
	}
	return k.String(fmt.Sprint(value))
}
