package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup(t *testing.T) {
	t.Run("json output at debug", func(t *testing.T) {
		var buf bytes.Buffer
		l := logrus.New()

		require.NoError(t, Setup(l, LoggerConfig{Level: "debug", JSON: true, Output: &buf}))
		assert.Equal(t, logrus.DebugLevel, l.GetLevel())

		l.WithField("symbol", "BTC-USD").Debug("bar processed")

		var record map[string]interface{}
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "bar processed", record["msg"])
		assert.Equal(t, "BTC-USD", record["symbol"])
	})

	t.Run("defaults to info", func(t *testing.T) {
		var buf bytes.Buffer
		l := logrus.New()

		require.NoError(t, Setup(l, LoggerConfig{Output: &buf}))
		assert.Equal(t, logrus.InfoLevel, l.GetLevel())

		l.Debug("hidden")
		assert.Empty(t, buf.String())
	})

	t.Run("otel hook", func(t *testing.T) {
		l := logrus.New()

		require.NoError(t, Setup(l, LoggerConfig{OtelHook: true, Output: &bytes.Buffer{}}))
		assert.Len(t, l.Hooks[logrus.WarnLevel], 1)
		assert.Empty(t, l.Hooks[logrus.InfoLevel])
	})

	t.Run("bad level", func(t *testing.T) {
		assert.Error(t, Setup(logrus.New(), LoggerConfig{Level: "loud"}))
	})
}
