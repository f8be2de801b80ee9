package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/accessgate/pkg/logger"
)

func TestLoggerOptions(t *testing.T) {
	t.Run("level and format override APP_ENV", func(t *testing.T) {
		opts, err := loggerOptions(appConfig{Env: "development", AppName: "accessgate", LogLevel: "warn", LogFormat: "json"})
		require.NoError(t, err)

		buf := &bytes.Buffer{}
		log := logger.New(append(opts, logger.WithOutput(buf))...)
		log.Info("skipped")
		assert.Zero(t, buf.Len())

		log.Warn("kept")
		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "kept", entry["msg"])
		assert.Equal(t, "development", entry["env"])
		assert.Equal(t, version, entry["version"])
	})

	t.Run("bad level", func(t *testing.T) {
		_, err := loggerOptions(appConfig{LogLevel: "loud"})
		assert.ErrorContains(t, err, "LOG_LEVEL")
	})

	t.Run("bad format", func(t *testing.T) {
		_, err := loggerOptions(appConfig{LogFormat: "xml"})
		assert.ErrorContains(t, err, "LOG_FORMAT")
	})
}

func TestBackendsCloseLogsFailures(t *testing.T) {
	buf := &bytes.Buffer{}
	b := &backends{log: logger.New(logger.WithOutput(buf))}
	var order []string
	b.closers = append(b.closers,
		func() error { order = append(order, "redis"); return assert.AnError },
		func() error { order = append(order, "mongo"); return nil },
	)
	b.close()

	assert.Equal(t, []string{"mongo", "redis"}, order)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "closing backends", entry["msg"])
	assert.Contains(t, entry["errors"], "1")

	buf.Reset()
	(&backends{log: logger.New(logger.WithOutput(buf))}).close()
	assert.Zero(t, buf.Len())
}
