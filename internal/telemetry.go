package internal

import (
	"context"
	"strconv"
	"sync"
)

// Telemetry hooks for the validation and view paths. The default emitter
// drops everything; service wiring may register a metrics backend and tests
// a recording stub.

type telemetryEmitter func(ctx context.Context, name string, labels map[string]string, value any)

var (
	teleMu   sync.Mutex
	teleImpl telemetryEmitter = func(ctx context.Context, name string, labels map[string]string, value any) {}
)

// RegisterTelemetryEmitter replaces the emitter. nil restores the no-op.
func RegisterTelemetryEmitter(fn telemetryEmitter) {
	teleMu.Lock()
	defer teleMu.Unlock()
	if fn == nil {
		teleImpl = func(ctx context.Context, name string, labels map[string]string, value any) {}
		return
	}
	teleImpl = fn
}

func emit(ctx context.Context, name string, labels map[string]string, value any) {
	teleMu.Lock()
	fn := teleImpl
	teleMu.Unlock()
	fn(ctx, name, labels, value)
}

// EmitLatency records a latency measure (milliseconds) for a named stage.
// name: "formview_latency_ms" with label {"stage": "<validate|materialize|backfill>"}
func EmitLatency(ctx context.Context, stage string, ms int64) {
	emit(ctx, "formview_latency_ms", map[string]string{"stage": stage}, ms)
}

// EmitRowCount records how many rows a view produced.
// name: "formview_view_rows" with label {"mode": "anchored"|"flat"}
func EmitRowCount(ctx context.Context, anchored bool, rows int64) {
	mode := "flat"
	if anchored {
		mode = "anchored"
	}
	emit(ctx, "formview_view_rows", map[string]string{"mode": mode}, rows)
}

// EmitValidationFailure counts rejected payloads.
// name: "formview_validation_failures" with label {"kind": "validation"|"reference"}
func EmitValidationFailure(ctx context.Context, kind string) {
	emit(ctx, "formview_validation_failures", map[string]string{"kind": kind}, int64(1))
}

// EmitTruncation counts views cut off at their row cap.
// name: "formview_view_truncated" with label {"clamped": "true"|"false"}
func EmitTruncation(ctx context.Context, maxRows int, clamped bool) {
	emit(ctx, "formview_view_truncated", map[string]string{"clamped": strconv.FormatBool(clamped)}, int64(maxRows))
}
