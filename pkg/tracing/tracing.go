// Package tracing wraps the process tracer. Every helper is a no-op until
// SetTracer (or Setup) installs one, so library code can always call them.
package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer trace.Tracer

func SetTracer(t trace.Tracer) {
	tracer = t
}

// GetActiveSpan returns the recording span on ctx, or nil
func GetActiveSpan(ctx context.Context) trace.Span {
	if tracer == nil {
		return nil
	}
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() {
		return nil
	}
	return span
}

func StartSpan(ctx context.Context, spanName string) (context.Context, trace.Span) {
	if tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return tracer.Start(ctx, spanName)
}

// SetAttributes copies fields onto the active span. Values that are not
// strings, bools or numbers are rendered with %v.
func SetAttributes(ctx context.Context, fields map[string]any) {
	span := GetActiveSpan(ctx)
	if span == nil {
		return
	}
	span.SetAttributes(Attributes(fields)...)
}

// Attributes converts log style fields into span attributes
func Attributes(fields map[string]any) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(fields))
	for k, v := range fields {
		switch t := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, t))
		case bool:
			attrs = append(attrs, attribute.Bool(k, t))
		case int:
			attrs = append(attrs, attribute.Int(k, t))
		case int64:
			attrs = append(attrs, attribute.Int64(k, t))
		case float64:
			attrs = append(attrs, attribute.Float64(k, t))
		case []string:
			attrs = append(attrs, attribute.StringSlice(k, t))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", v)))
		}
	}
	return attrs
}

// RecordError marks the active span failed. A nil err does nothing.
func RecordError(ctx context.Context, err error) {
	if err == nil {
		return
	}
	span := GetActiveSpan(ctx)
	if span == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// GetTraceID returns the trace ID of the active span, or ""
func GetTraceID(ctx context.Context) string {
	span := GetActiveSpan(ctx)
	if span == nil {
		return ""
	}
	return span.SpanContext().TraceID().String()
}
