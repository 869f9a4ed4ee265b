package observability

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStageSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, span := StartStage(context.Background(), "link")
	EndStage(span, nil, map[string]int{"added": 4})
	_, span = StartStage(context.Background(), "bridge")
	EndStage(span, errors.New("boom"), nil)

	ended := rec.Ended()
	if len(ended) != 2 {
		t.Fatalf("expected 2 spans, got %d", len(ended))
	}
	if ended[0].Name() != "kg.link" || ended[0].Status().Code != codes.Ok {
		t.Fatalf("unexpected first span: %s %v", ended[0].Name(), ended[0].Status())
	}
	var sawAdded bool
	for _, a := range ended[0].Attributes() {
		if string(a.Key) == "kg.added" && a.Value.AsInt64() == 4 {
			sawAdded = true
		}
	}
	if !sawAdded {
		t.Fatalf("count attribute missing")
	}
	if ended[1].Status().Code != codes.Error {
		t.Fatalf("error status not set")
	}
}

func TestInitOTelDisabledIsNoop(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "false")
	shutdown := InitOTel(context.Background(), nil, OtelConfig{})
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
