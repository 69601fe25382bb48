package artnet

import (
	"bytes"
	"testing"

	"github.com/Haba1234/go-artnet"
	"github.com/stretchr/testify/require"
)

func TestUniverseAddress(t *testing.T) {
	tests := []struct {
		universe uint16
		addr     artnet.Address
	}{
		{0, artnet.Address{Net: 0, SubUni: 0}},
		{1, artnet.Address{Net: 0, SubUni: 1}},
		{0x0110, artnet.Address{Net: 1, SubUni: 0x10}},
		{0x7fff, artnet.Address{Net: 0x7f, SubUni: 0xff}},
	}
	for _, tt := range tests {
		require.Equal(t, tt.addr, UniverseToAddress(tt.universe))
		require.Equal(t, tt.universe, AddressToUniverse(tt.addr))
	}
}

func TestDecode(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 512)
	f, err := Decode(Encode(&DMXFrame{Universe: 0x0102, Sequence: 9, Data: data}))
	require.NoError(t, err)
	require.Equal(t, uint16(0x0102), f.Universe)
	require.Equal(t, uint8(9), f.Sequence)
	require.True(t, f.Sequenced())
	require.Equal(t, data, f.Data)
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode([]byte("Art-Net"))
	require.ErrorIs(t, err, ErrTooShort)

	_, err = Decode(bytes.Repeat([]byte{0xff}, 40))
	require.Error(t, err)
}

func TestDecodeIgnoresOtherOpcodes(t *testing.T) {
	poll := make([]byte, 14)
	copy(poll, "Art-Net\x00")
	poll[9] = 0x20 // OpPoll
	poll[11] = 14

	_, err := Decode(poll)
	require.ErrorIs(t, err, ErrTooShort)

	poll = append(poll, make([]byte, 8)...)
	_, err = Decode(poll)
	require.ErrorIs(t, err, ErrNotDMX)
}
