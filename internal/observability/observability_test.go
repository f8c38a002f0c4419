package observability

import (
	"context"
	"os"
	"testing"

	"maintenance-ledger/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "debug", Encoding: "console"}, false)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	_, err = NewLogger(config.LoggerConfig{Level: "loud", Encoding: "json"}, false)
	assert.Error(t, err)

	_, err = NewLogger(config.LoggerConfig{Level: "info", Encoding: "xml"}, false)
	assert.Error(t, err)
}

func TestNewLogger_Output(t *testing.T) {
	_, err := NewLogger(config.LoggerConfig{Level: "error", Output: "stderr"}, false)
	require.NoError(t, err)

	_, err = NewLogger(config.LoggerConfig{Level: "error", Output: "/var/log/ledger"}, false)
	assert.Error(t, err)
}

func TestOutputSink(t *testing.T) {
	sink, err := outputSink("stderr")
	require.NoError(t, err)
	assert.Equal(t, zapcore.Lock(os.Stderr), sink)

	sink, err = outputSink("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.Lock(os.Stdout), sink)
}

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	ctx := context.Background()

	logShutdown, err := SetupLoggingSDK(ctx, config.OtelConfig{})
	require.NoError(t, err)

	tp, traceShutdown, err := SetupTracingSDK(ctx, config.OtelConfig{})
	require.NoError(t, err)
	_, span := tp.Tracer("test").Start(ctx, "noop")
	assert.False(t, span.SpanContext().IsValid())
	span.End()

	assert.NoError(t, Shutdown(ctx, logShutdown, traceShutdown, nil))
}
