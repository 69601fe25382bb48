package output

import (
	"errors"
	"testing"

	"pixelbridge/internal/channels"
	"pixelbridge/internal/gamma"
	"pixelbridge/internal/logger"

	"github.com/stretchr/testify/require"
)

type emission struct {
	pin   int
	level uint16
}

type fakePins struct {
	emitted []emission
	err     error
}

func (f *fakePins) Emit(pin int, level uint16) error {
	f.emitted = append(f.emitted, emission{pin, level})
	return f.err
}

const allPins = uint32(1<<NumGPIO - 1)

func TestLevel(t *testing.T) {
	linear := gamma.New(1.0, 1.0)

	tests := []struct {
		name     string
		useGamma bool
		policy   Policy
		raw      uint8
		want     int
	}{
		{"plain scaling", false, Policy{}, 100, 400},
		{"plain full", false, Policy{}, 255, 1020},
		{"gamma full", true, Policy{}, 255, 1023},
		{"gamma half", true, Policy{}, 128, 514},
		{"digital below threshold", false, Policy{Digital: true}, 127, 0},
		{"digital at threshold", false, Policy{Digital: true}, 128, MaxLevel},
		{"invert", false, Policy{Invert: true}, 100, MaxLevel - 400},
		{"invert zero", true, Policy{Invert: true}, 0, MaxLevel},
		{"digital then invert", false, Policy{Digital: true, Invert: true}, 200, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMapper(logger.NewDiscard(), &fakePins{}, linear, tt.useGamma, allPins, nil)
			require.Equal(t, tt.want, m.Level(tt.policy, tt.raw))
		})
	}
}

func TestTickSuppressesUnchanged(t *testing.T) {
	pins := &fakePins{}
	buf := channels.NewBuffer(4)
	m := NewMapper(logger.NewDiscard(), pins, gamma.New(2.2, 1), false, allPins, []Policy{
		NewPolicy(4, 0, false, false),
		NewPolicy(5, 1, false, false),
	})

	buf.SetValue(0, 10)
	require.Equal(t, 2, m.Tick(buf))
	require.Equal(t, []emission{{4, 40}, {5, 0}}, pins.emitted)

	// Same values: nothing emitted.
	require.Zero(t, m.Tick(buf))
	require.Len(t, pins.emitted, 2)

	buf.SetValue(1, 1)
	require.Equal(t, 1, m.Tick(buf))
	require.Equal(t, emission{5, 4}, pins.emitted[2])
	require.Equal(t, 4, m.Policies()[1].LastEmitted)
}

func TestTickSkips(t *testing.T) {
	pins := &fakePins{}
	buf := channels.NewBuffer(2)
	buf.Fill(0, 2, 255)

	disabled := NewPolicy(0, 0, false, false)
	disabled.Enabled = false

	m := NewMapper(logger.NewDiscard(), pins, gamma.New(1, 1), false, PixelGPIOMask, []Policy{
		disabled,
		NewPolicy(1, 0, false, false),          // valid pin
		NewPolicy(2, 0, false, false),          // pixel data pin, not in mask
		NewPolicy(3, 7, false, false),          // channel past the buffer
		NewPolicy(4, Unassigned, true, false),  // forced to 0 then inverted
		NewPolicy(8, 0, false, false),          // flash chip pin
		NewPolicy(12, Unassigned, false, true), // forced to 0
	})

	m.Tick(buf)
	require.Equal(t, []emission{{1, 1020}, {4, MaxLevel}, {12, 0}}, pins.emitted)
}

func TestTickSinkError(t *testing.T) {
	pins := &fakePins{err: errors.New("busy")}
	buf := channels.NewBuffer(1)
	m := NewMapper(logger.NewDiscard(), pins, gamma.New(1, 1), false, allPins, []Policy{NewPolicy(0, 0, false, false)})

	require.Zero(t, m.Tick(buf))
	// The level is remembered even though the write failed.
	require.Zero(t, m.Tick(buf))
	require.Len(t, pins.emitted, 1)
}

func TestSerialMaskFreesGPIO2(t *testing.T) {
	require.NotZero(t, SerialGPIOMask&(1<<2))
	require.Zero(t, SerialGPIOMask&(1<<1))
	require.Zero(t, PixelGPIOMask&(1<<2))
	require.NotZero(t, PixelGPIOMask&(1<<1))
}
