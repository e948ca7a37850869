package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campaignpulse/internal/config"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogger_InjectsTraceID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "info", false)

	ctx := WithTraceID(context.Background(), "trace-123")
	logger.InfoContext(ctx, "with trace")
	logger.InfoContext(context.Background(), "without trace")
	WithComponent(logger, "ingester").InfoContext(ctx, "component")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "trace-123", lines[0]["trace_id"])
	assert.NotContains(t, lines[1], "trace_id")
	assert.Equal(t, "ingester", lines[2]["component"])
	assert.Equal(t, "trace-123", lines[2]["trace_id"])
}

func TestLogger_Level(t *testing.T) {
	tests := []struct {
		level     string
		wantDebug bool
		wantInfo  bool
	}{
		{"debug", true, true},
		{"info", false, true},
		{"warn", false, false},
		{"nonsense", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLoggerWithWriter(&buf, tt.level, false)

			logger.Debug("debug")
			logger.Info("info")

			out := buf.String()
			assert.Equal(t, tt.wantDebug, strings.Contains(out, `"msg":"debug"`))
			assert.Equal(t, tt.wantInfo, strings.Contains(out, `"msg":"info"`))
		})
	}
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")

	logger, closer, err := NewLogger(config.LoggingConfig{Level: "info", Output: "file", FilePath: path})
	require.NoError(t, err)

	logger.Info("to file", "rows", 3)
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
}

func TestNewLogger_Console(t *testing.T) {
	logger, closer, err := NewLogger(config.LoggingConfig{Level: "info", Output: "console"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
	assert.NoError(t, closer.Close())
}

func TestEnsureTraceID(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	id := GetTraceID(ctx)
	assert.Len(t, id, 36)

	assert.Equal(t, id, GetTraceID(EnsureTraceID(ctx)), "existing IDs are kept")
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(&buf, "info", false)

	WithError(logger, errors.New("boom")).Info("failed")
	WithError(logger, nil).Info("fine")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "boom", lines[0]["error"])
	assert.NotContains(t, lines[1], "error")
}

func TestInitializeOTel_Metrics(t *testing.T) {
	logger := NewLoggerWithWriter(io.Discard, "error", false)

	providers, err := InitializeOTel(OTelConfig{
		ServiceName:    "campaignpulse-test",
		ServiceVersion: "test",
		Environment:    "test",
		TraceExporter:  "none",
		EnableMetrics:  true,
		SampleRatio:    1,
	}, logger)
	require.NoError(t, err)
	defer providers.Shutdown(context.Background())

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)
	require.NoError(t, RegisterSessionGauge(providers.Meter, func() int { return 4 }))

	metrics.UploadsTotal.Add(context.Background(), 2)

	rec := httptest.NewRecorder()
	providers.PrometheusHTTP.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "campaign_uploads_total")
	assert.Contains(t, body, "campaign_active_sessions")
	assert.Contains(t, body, "go_goroutines")
}

func TestInitializeOTel_Disabled(t *testing.T) {
	providers, err := InitializeOTel(OTelConfig{TraceExporter: "none"}, nil)
	require.NoError(t, err)

	assert.Nil(t, providers.PrometheusHTTP)
	assert.NotNil(t, providers.Tracer)

	metrics, err := CreateBusinessMetrics(providers.Meter)
	require.NoError(t, err)
	metrics.ExportsTotal.Add(context.Background(), 1)

	assert.NoError(t, providers.Shutdown(context.Background()))
}

func TestInitializeOTel_UnknownExporter(t *testing.T) {
	_, err := InitializeOTel(OTelConfig{TraceExporter: "zipkin"}, nil)
	assert.Error(t, err)
}
