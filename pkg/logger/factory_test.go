package logger_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/dmitrymomot/accessgate/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	return entry
}

func TestNew_DefaultsToJSONAtInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(logger.WithOutput(buf))

	log.Debug("hidden")
	assert.Zero(t, buf.Len())

	log.Info("gateway ready")
	entry := decodeLine(t, buf)
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "gateway ready", entry["msg"])
}

func TestNew_NilOutputIgnored(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(logger.WithOutput(buf), logger.WithOutput(nil))
	log.Info("still here")
	assert.Contains(t, buf.String(), "still here")
}

func TestWithLevel_OverridesEnvironmentDefault(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(
		logger.WithEnvironment("production", "accessgate"),
		logger.WithLevel(slog.LevelWarn),
		logger.WithOutput(buf),
	)

	log.Info("api call denied")
	assert.Zero(t, buf.Len())

	log.Warn("capability denied")
	entry := decodeLine(t, buf)
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "production", entry["env"])
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    logger.Format
		wantErr bool
	}{
		{"json", logger.FormatJSON, false},
		{"TEXT", logger.FormatText, false},
		{" text ", logger.FormatText, false},
		{"xml", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := logger.ParseFormat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWithFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(
		logger.WithEnvironment("production", "accessgate"),
		logger.WithFormat(logger.FormatText),
		logger.WithOutput(buf),
	)
	log.Info("seed applied", logger.PlanID("pro"))
	out := buf.String()
	assert.Contains(t, out, "msg=\"seed applied\"")
	assert.Contains(t, out, "plan_id=pro")

	assert.Panics(t, func() {
		logger.New(logger.WithFormat(logger.Format("xml")))
	})
}

func TestWithAttr_TagsEveryRecord(t *testing.T) {
	buf := &bytes.Buffer{}
	log := logger.New(
		logger.WithOutput(buf),
		logger.WithAttr(slog.String("version", "v1.2.3")),
		logger.WithAttr(),
	)
	log.Info("gateway ready")
	assert.Equal(t, "v1.2.3", decodeLine(t, buf)["version"])
}

func TestSetAsDefault(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	buf := &bytes.Buffer{}
	logger.SetAsDefault(logger.New(logger.WithOutput(buf)))
	slog.Info("default")
	assert.Equal(t, "default", decodeLine(t, buf)["msg"])
}
