package logger

import (
	"testing"

	"pixelbridge/internal/config"

	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	log, err := NewLogger(config.LogConf{Level: "debug"})
	require.NoError(t, err)
	require.Equal(t, "debug", log.GetLevel())

	log, err = NewLogger(config.LogConf{Level: "warn", Format: "json"})
	require.NoError(t, err)
	require.Equal(t, "warning", log.GetLevel())
}

func TestNewLoggerErrors(t *testing.T) {
	_, err := NewLogger(config.LogConf{Level: "loud"})
	require.Error(t, err)

	_, err = NewLogger(config.LogConf{Level: "info", Format: "xml"})
	require.Error(t, err)
}

func TestWith(t *testing.T) {
	log := NewDiscard()
	entry := log.With(Fields{"module": "ingest"})
	require.Equal(t, "ingest", entry.Data["module"])
	require.NotContains(t, log.Data, "module")
}
