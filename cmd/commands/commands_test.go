package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"pixelbridge/internal/config"
	"pixelbridge/internal/printer"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	color.NoColor = true
	var stdout, stderr bytes.Buffer
	printer.SetOutput(&stdout, &stderr)
	t.Cleanup(func() { printer.SetOutput(os.Stdout, os.Stderr) })
	return &stdout, &stderr
}

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestCheck(t *testing.T) {
	t.Run("valid toml", func(t *testing.T) {
		stdout, _ := capture(t)
		path := writeConfig(t, "conf.toml", `
[input]
protocol = "e131"
universe = 3
channel_count = 700

[effects]
idle_enabled = true
name = "Chase"

[pwm]
enabled = true

[[pwm.gpio]]
pin = 4
enabled = true
channel = 0
digital = true

[[pwm.gpio]]
pin = 2
enabled = true
channel = 1
`)
		require.NoError(t, check(path))
		out := stdout.String()
		require.Contains(t, out, "239.255.0.3, 239.255.0.4")
		require.Contains(t, out, "Chase after 10s")
		require.Contains(t, out, "channel 0, digital")
		require.Contains(t, out, "gpio2 is not usable")
		require.Contains(t, out, "is valid")
	})

	t.Run("invalid config", func(t *testing.T) {
		_, stderr := capture(t)
		path := writeConfig(t, "conf.yaml", "input:\n  channel_count: 0\n")
		require.EqualError(t, check(path), "Invalid configuration")
		require.Contains(t, stderr.String(), config.ErrInvalidChannelCount.Error())
	})

	t.Run("unknown idle effect warns", func(t *testing.T) {
		stdout, _ := capture(t)
		path := writeConfig(t, "conf.toml", "[effects]\nname = \"Plasma\"\n")
		require.NoError(t, check(path))
		require.Contains(t, stdout.String(), `unknown idle effect "Plasma"`)
	})
}

func TestRunReportsStartupErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, stderr := capture(t)
		path := filepath.Join(t.TempDir(), "missing.toml")
		require.EqualError(t, run(path), "Invalid configuration")
		require.Contains(t, stderr.String(), path)
	})

	t.Run("invalid config", func(t *testing.T) {
		_, stderr := capture(t)
		path := writeConfig(t, "conf.toml", "[input]\nprotocol = \"dmx\"\n")
		require.EqualError(t, run(path), "Invalid configuration")
		require.Contains(t, stderr.String(), config.ErrInvalidProtocol.Error())
	})

	t.Run("bad logger settings", func(t *testing.T) {
		_, stderr := capture(t)
		path := writeConfig(t, "conf.toml", "[logger]\nlog-level = \"loud\"\n")
		require.EqualError(t, run(path), "Failed to create a logger")
		require.Contains(t, stderr.String(), "loud")
	})

	t.Run("through the root command", func(t *testing.T) {
		_, stderr := capture(t)
		path := writeConfig(t, "conf.yaml", "input:\n  channel_count: 0\n")
		rootCmd.SetArgs([]string{"run", "--config", path})
		require.Error(t, Execute())
		require.Contains(t, stderr.String(), "Invalid configuration")
	})
}

func TestGammaCommand(t *testing.T) {
	stdout, _ := capture(t)
	rootCmd.SetArgs([]string{"gamma", "--gamma", "1", "--brightness", "1"})
	require.NoError(t, Execute())

	out := stdout.String()
	require.Contains(t, out, "gamma 1.00, brightness 1.00")
	require.Contains(t, out, "255:65535/1023")
	require.Contains(t, out, "  0:    0/   0")

	_, stderr := capture(t)
	rootCmd.SetArgs([]string{"gamma", "--gamma", "0"})
	require.Error(t, Execute())
	require.Contains(t, stderr.String(), "Invalid gamma parameters")
}

func TestConvertConfigClientMQTT(t *testing.T) {
	cfg := config.Default().MQTT
	cfg.Host = "broker"
	cfg.Qos = 1
	c := ConvertConfigClientMQTT(cfg)
	require.Equal(t, "tcp", c.Schema)
	require.Equal(t, "broker", c.Host)
	require.Equal(t, "pixelbridge", c.Topic)
	require.Equal(t, byte(1), c.Qos)
	require.Equal(t, "30s", c.StatusInterval.String())
}
