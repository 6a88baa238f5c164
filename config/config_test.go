package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), *cfg)
}

func TestLoad_File(t *testing.T) {
	name := filepath.Join(t.TempDir(), "hpglaser.yaml")
	err := os.WriteFile(name, []byte(`
serial:
  port: /dev/ttyUSB0
  reset_delay: 500ms
job:
  timeout: 3s
  park_on_finish: true
  initial_power: 128
workarea:
  width: 900
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(name)
	require.NoError(t, err)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.Serial.ResetDelay)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, 3*time.Second, cfg.Job.Timeout)
	assert.True(t, cfg.Job.ParkOnFinish)
	assert.Equal(t, 128, cfg.Job.InitialPower)
	assert.Equal(t, 900, cfg.WorkArea.Width)
	assert.Equal(t, 1800, cfg.WorkArea.Height)

	opt := cfg.MachineOptions(cfg.Log.Logger(nil))
	assert.Equal(t, 3*time.Second, opt.Timeout)
	assert.Equal(t, 128, opt.InitialPower)
	assert.True(t, opt.ParkOnFinish)
	assert.Equal(t, 36, opt.Parse.Segments)

	dev := cfg.Serial.Device()
	assert.Equal(t, "/dev/ttyUSB0", dev.Port)
	assert.Equal(t, 500*time.Millisecond, dev.ResetDelay)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("HPGLASER_JOB_PARK_ON_FINISH", "true")
	t.Setenv("HPGLASER_SERVER_DATA_DIR", "/srv/hpgl")
	t.Setenv("HPGLASER_LOG_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.True(t, cfg.Job.ParkOnFinish)
	assert.Equal(t, "/srv/hpgl", cfg.Server.DataDir)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate())

	cfg.Job.Timeout = 0
	cfg.Log.Level = "loud"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job.timeout")
	assert.Contains(t, err.Error(), "log.level")
}

func TestLogConfig_Logger(t *testing.T) {
	var buf bytes.Buffer
	log := LogConfig{Level: "warn", Format: "json"}.Logger(&buf)
	log.Info().Msg("hidden")
	log.Warn().Str("port", "x").Msg("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"message":"shown"`)
	assert.Contains(t, buf.String(), `"port":"x"`)
}
