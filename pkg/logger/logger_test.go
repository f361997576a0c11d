package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	appctx "arriendos/internal/core/context"
)

func TestFromContext_AddsTraceFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	l := &Logger{zap.New(core).Sugar()}

	ctx := WithLogger(context.Background(), l)
	ctx = appctx.WithTrace(ctx, &appctx.TraceContext{TraceID: "t-1", RequestID: "r-1", Operation: "settle"})

	Info(ctx, "settlement computed", "tenant_id", "abc")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "t-1", fields["trace_id"])
		assert.Equal(t, "r-1", fields["request_id"])
		assert.Equal(t, "settle", fields["operation"])
		assert.Equal(t, "abc", fields["tenant_id"])
	}
}

func TestFromContext_WithoutTrace(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := &Logger{zap.New(core).Sugar()}

	Debug(WithLogger(context.Background(), l.WithComponent("seed")), "loaded")

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "seed", entries[0].ContextMap()["component"])
		assert.NotContains(t, entries[0].ContextMap(), "trace_id")
	}
}
