package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_JSONCarriesServiceAndEnv(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{ServiceName: "shipment-api", Env: "docker", Output: &buf})
	require.NoError(t, err)

	logger.Info("hello")
	logger.Debug("hidden")
	Sync(logger)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec))
	require.Equal(t, "hello", rec["msg"])
	require.Equal(t, "info", rec["level"])
	require.Equal(t, "shipment-api", rec["service"])
	require.Equal(t, "docker", rec["env"])
	require.NotContains(t, rec, "caller")
}

func TestNew_DebugLevelConsole(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{ServiceName: "s", Env: "local", Level: "DEBUG", Output: &buf})
	require.NoError(t, err)

	logger.Debug("visible")
	require.Contains(t, buf.String(), "visible")
	require.Contains(t, buf.String(), "debug")
}

func TestNew_Invalid(t *testing.T) {
	_, err := New(Config{Level: "verbose"})
	require.Error(t, err)

	_, err = New(Config{Format: "xml"})
	require.Error(t, err)
}
