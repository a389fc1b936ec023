package tracing

import (
	"context"
	"testing"

	"guardline-hq/bastion/pkg/config"
)

func TestDisabledTracerIsNoop(t *testing.T) {
	tracer, err := New(config.TracingConfig{Enabled: false})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if tracer.Enabled() {
		t.Error("disabled config must yield a disabled tracer")
	}

	ctx, span := tracer.Start(context.Background(), "test")
	if span.SpanContext().IsValid() {
		t.Error("noop tracer must not produce valid span contexts")
	}
	span.End()

	if err := tracer.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown of noop tracer: %v", err)
	}
}
