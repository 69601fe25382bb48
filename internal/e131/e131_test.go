package e131

import (
	"bytes"
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	data := bytes.Repeat([]byte{0x80}, MaxSlots)
	pkt := Encode(&Frame{SourceName: "console", Priority: 100, Sequence: 5, Universe: 1, Data: data})
	require.Len(t, pkt, MaxPacketLength)

	f, err := Decode(pkt)
	require.NoError(t, err)
	require.Equal(t, uint16(1), f.Universe)
	require.Equal(t, uint8(5), f.Sequence)
	require.Equal(t, uint8(100), f.Priority)
	require.Equal(t, "console", f.SourceName)
	require.Equal(t, data, f.Data)
	require.False(t, f.Preview())
	require.False(t, f.Terminated())
}

func TestDecodeShortUniverse(t *testing.T) {
	pkt := Encode(&Frame{Universe: 7, Sequence: 1, Data: []byte{1, 2, 3}})
	f, err := Decode(pkt)
	require.NoError(t, err)
	require.Equal(t, []byte{1, 2, 3}, f.Data)
}

func TestDecodeOptions(t *testing.T) {
	pkt := Encode(&Frame{Universe: 1, Options: optionPreview | optionTerminated, Data: []byte{1}})
	f, err := Decode(pkt)
	require.NoError(t, err)
	require.True(t, f.Preview())
	require.True(t, f.Terminated())
}

func TestDecodeErrors(t *testing.T) {
	good := func() []byte {
		return Encode(&Frame{Universe: 1, Data: []byte{1, 2}})
	}

	tests := []struct {
		name   string
		mutate func([]byte) []byte
		err    error
	}{
		{"too short", func(b []byte) []byte { return b[:100] }, ErrTooShort},
		{"bad identifier", func(b []byte) []byte { b[4] = 'X'; return b }, ErrBadIdentifier},
		{"bad root vector", func(b []byte) []byte { b[21] = 9; return b }, ErrBadVector},
		{"bad framing vector", func(b []byte) []byte { b[43] = 9; return b }, ErrBadVector},
		{"bad dmp vector", func(b []byte) []byte { b[117] = 1; return b }, ErrBadDMPLayer},
		{"slot count overruns", func(b []byte) []byte { b[124] = 200; return b }, ErrBadSlotCount},
		{"universe zero", func(b []byte) []byte { b[113], b[114] = 0, 0; return b }, ErrBadUniverseNum},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.mutate(good()))
			require.ErrorIs(t, err, tt.err)
		})
	}
}

func TestMulticastAddr(t *testing.T) {
	require.True(t, net.IPv4(239, 255, 0, 1).Equal(MulticastAddr(1)))
	require.True(t, net.IPv4(239, 255, 1, 2).Equal(MulticastAddr(258)))
}
