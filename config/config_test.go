package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `dispatch:
  offer_timeout_seconds: 45
  retention_days: 14
logging:
  level: "warn"
  pretty: true
mqtt:
  enabled: true
  client:
    broker: "tcp://localhost:1883"
    client_id: "kurir"
    topic_prefix: "hub"
metrics:
  prometheus_port: ":9100"
  influx:
    enabled: false
snapshot:
  path: "/var/lib/kurir/state.json"
api:
  addr: ":8080"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 45, cfg.Dispatch.OfferTimeoutSeconds)
	assert.Equal(t, 14, cfg.Dispatch.RetentionDays)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Pretty)
	assert.True(t, cfg.MQTT.Enabled)
	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Client.Broker)
	assert.Equal(t, "hub", cfg.MQTT.Client.TopicPrefix)
	assert.Equal(t, ":9100", cfg.Metrics.PrometheusPort)
	assert.Equal(t, "/var/lib/kurir/state.json", cfg.Snapshot.Path)
	assert.Equal(t, 60, cfg.Snapshot.IntervalSeconds, "interval default applied")
	assert.Equal(t, ":8080", cfg.API.Addr)
}

func TestLoad_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"dispatch": {"offer_timeout_seconds": 30}}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 30, cfg.Dispatch.OfferTimeoutSeconds)
	assert.Equal(t, 30, cfg.Dispatch.RetentionDays, "retention default applied")
}

func TestLoad_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  addr: \"\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Dispatch.OfferTimeoutSeconds)
	assert.Equal(t, 30, cfg.Dispatch.RetentionDays)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Pretty)
	assert.Equal(t, 5, cfg.Metrics.ReadTimeoutSeconds)
	assert.Equal(t, 5, cfg.Metrics.ShutdownGraceSeconds)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dispatch:\n  offer_timeout_seconds: 45\n"), 0o644))

	t.Setenv("KURIR_DISPATCH__OFFER_TIMEOUT_SECONDS", "90")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.Dispatch.OfferTimeoutSeconds)
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate_MQTTWithoutBroker(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mqtt:\n  enabled: true\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestValidate_InfluxWithoutURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("metrics:\n  influx:\n    enabled: true\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}
