package ingest

import (
	"context"
	"net"
	"testing"
	"time"

	"pixelbridge/internal/channels"
	"pixelbridge/internal/logger"

	"github.com/stretchr/testify/require"
)

func TestRawAdapter(t *testing.T) {
	tests := []struct {
		name    string
		zeroPad bool
		packet  []byte
		want    []byte
		short   uint64
		long    uint64
	}{
		{"short packet zero padded", true, []byte{1, 2}, []byte{1, 2, 0, 0, 0, 0}, 1, 0},
		{"short packet holds tail", false, []byte{1, 2}, []byte{1, 2, 0xaa, 0xaa, 0xaa, 0xaa}, 1, 0},
		{"exact packet", true, []byte{1, 2, 3, 4, 5, 6}, []byte{1, 2, 3, 4, 5, 6}, 0, 0},
		{"long packet truncated", false, []byte{1, 2, 3, 4, 5, 6, 7, 8}, []byte{1, 2, 3, 4, 5, 6}, 0, 1},
		{"empty packet", true, nil, make([]byte, 6), 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRawAdapter(tt.zeroPad)
			buf := channels.NewBuffer(6)
			buf.Fill(0, 6, 0xaa)

			require.True(t, r.Receive(buf, tt.packet, "192.168.1.9", t0, always))
			require.Equal(t, tt.want, buf.Bytes())

			st := r.Stats()
			require.Equal(t, uint64(1), st.Packets)
			require.Equal(t, tt.short, st.ShortPackets)
			require.Equal(t, tt.long, st.LongPackets)
			require.Equal(t, "192.168.1.9", st.LastClient)
		})
	}
}

func TestRawAdapterRefusedClaim(t *testing.T) {
	r := NewRawAdapter(true)
	buf := channels.NewBuffer(3)
	buf.Fill(0, 3, 4)

	refuse := ClaimFunc(func(time.Time) bool { return false })
	require.False(t, r.Receive(buf, []byte{9}, "h", t0, refuse))
	require.Equal(t, []byte{4, 4, 4}, buf.Bytes())
	require.Equal(t, uint64(1), r.Stats().Dropped)
	require.Equal(t, uint64(1), r.Stats().Packets)
}

func TestListenerLoopback(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan Datagram, 4)
	l := NewListener(logger.NewDiscard(), ListenerConf{Kind: KindRaw, Address: "127.0.0.1", Port: 0})
	require.NoError(t, l.Start(ctx, out))
	defer l.Stop()

	conn, err := net.DialUDP("udp4", nil, l.Addr().(*net.UDPAddr))
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte{1, 2, 3})
	require.NoError(t, err)

	select {
	case d := <-out:
		require.Equal(t, KindRaw, d.Kind)
		require.Equal(t, []byte{1, 2, 3}, d.Data)
		require.Equal(t, "127.0.0.1", d.From)
	case <-time.After(2 * time.Second):
		t.Fatal("datagram not delivered")
	}
}

func TestListenerBadAddress(t *testing.T) {
	l := NewListener(logger.NewDiscard(), ListenerConf{Kind: KindE131, Address: "not-an-ip"})
	require.Error(t, l.Start(context.Background(), make(chan Datagram)))
	require.Nil(t, l.Addr())
	l.Stop()
}
