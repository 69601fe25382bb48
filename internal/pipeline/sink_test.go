package pipeline

import (
	"net"
	"testing"

	"pixelbridge/internal/config"
	"pixelbridge/internal/e131"
	"pixelbridge/internal/ingest"
	"pixelbridge/internal/logger"
	"pixelbridge/internal/output"

	"github.com/stretchr/testify/require"
)

func TestPolicies(t *testing.T) {
	cfg := testConfig()
	cfg.PWM.GPIO = []config.GPIOConf{
		{Pin: 4, Enabled: true, Channel: 10, Digital: true},
		{Pin: 12, Enabled: false, Channel: -1, Invert: true},
	}
	require.Nil(t, Policies(cfg))

	cfg.PWM.Enabled = true
	ps := Policies(cfg)
	require.Len(t, ps, 2)
	require.Equal(t, uint16(10), ps[0].Channel)
	require.True(t, ps[0].Digital)
	require.True(t, ps[0].Enabled)
	require.Equal(t, uint16(output.Unassigned), ps[1].Channel)
	require.False(t, ps[1].Enabled)
	require.True(t, ps[1].Invert)
}

func TestGPIOMask(t *testing.T) {
	cfg := testConfig()
	require.Equal(t, output.PixelGPIOMask, GPIOMask(cfg))
	cfg.PWM.SerialTX = true
	require.Equal(t, output.SerialGPIOMask, GPIOMask(cfg))
}

func TestOpenSinkWithoutHardware(t *testing.T) {
	cfg := testConfig()
	cfg.PWM.Enabled = true
	s, closeFn, err := OpenSink(logger.NewDiscard(), cfg)
	require.NoError(t, err)
	require.NoError(t, s.Emit(4, 100))
	require.NoError(t, s.EmitSerial([]byte{1}))
	require.NoError(t, closeFn())

	cfg.Serial.Enabled = true
	cfg.Serial.Device = "/dev/does-not-exist"
	_, _, err = OpenSink(logger.NewDiscard(), cfg)
	require.Error(t, err)
}

func TestListenerConfs(t *testing.T) {
	t.Run("e131 joins one group per universe", func(t *testing.T) {
		cfg := testConfig()
		cfg.Input.Universe = 7
		cfg.Input.ChannelCount = 600

		confs, err := listenerConfs(logger.NewDiscard(), cfg)
		require.NoError(t, err)
		require.Len(t, confs, 1)
		require.Equal(t, ingest.KindE131, confs[0].Kind)
		require.Equal(t, e131.Port, confs[0].Port)
		require.Len(t, confs[0].Groups, 2)
		require.True(t, confs[0].Groups[0].Equal(net.IPv4(239, 255, 0, 7)))
		require.True(t, confs[0].Groups[1].Equal(net.IPv4(239, 255, 0, 8)))
	})

	t.Run("unicast e131 has no groups", func(t *testing.T) {
		cfg := testConfig()
		cfg.Input.Multicast = false
		confs, err := listenerConfs(logger.NewDiscard(), cfg)
		require.NoError(t, err)
		require.Empty(t, confs[0].Groups)
	})

	t.Run("raw listener", func(t *testing.T) {
		cfg := testConfig()
		cfg.Raw.Enabled = true
		cfg.Raw.MulticastGroup = "239.0.0.5"
		confs, err := listenerConfs(logger.NewDiscard(), cfg)
		require.NoError(t, err)
		require.Len(t, confs, 2)
		require.Equal(t, ingest.KindRaw, confs[1].Kind)
		require.Equal(t, ingest.RawPort, confs[1].Port)
		require.Equal(t, ingest.RawBufferSize, confs[1].BufSize)

		cfg.Raw.MulticastGroup = "10.0.0.1"
		_, err = listenerConfs(logger.NewDiscard(), cfg)
		require.Error(t, err)
	})

	t.Run("art-net with bad network", func(t *testing.T) {
		cfg := testConfig()
		cfg.Input.Protocol = config.ProtocolArtNet
		cfg.Input.Network = "not-a-cidr"
		_, err := listenerConfs(logger.NewDiscard(), cfg)
		require.Error(t, err)
	})
}
