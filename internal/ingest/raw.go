package ingest

import (
	"time"

	"pixelbridge/internal/channels"
)

const (
	// RawPort is the default port of the raw packet listener.
	RawPort = 2801

	// RawBufferSize is the largest raw datagram read.
	RawBufferSize = 1600
)

// RawAdapter maps raw datagrams byte for byte onto the first channels.
// Raw packets carry no header and no sequence number.
type RawAdapter struct {
	zeroPad bool
	stats   Stats
}

// NewRawAdapter конструктор.
func NewRawAdapter(zeroPad bool) *RawAdapter {
	return &RawAdapter{zeroPad: zeroPad}
}

// Receive counts the packet and writes it into buf when claim grants network
// ownership. Channels past the packet end are zeroed only under the
// zero-pad policy.
func (r *RawAdapter) Receive(buf *channels.Buffer, data []byte, from string, now time.Time, claim Claimer) bool {
	r.stats.Packets++
	r.stats.LastSeen = now
	r.stats.LastClient = from

	count := buf.Len()
	switch {
	case len(data) < count:
		r.stats.ShortPackets++
	case len(data) > count:
		r.stats.LongPackets++
	}

	if !claim.ClaimNetwork(now) {
		r.stats.Dropped++
		return false
	}

	n := buf.Write(0, data)
	if r.zeroPad {
		buf.Fill(n, count, 0)
	}
	return true
}

// Stats returns a copy of the adapter counters.
func (r *RawAdapter) Stats() Stats {
	return r.stats
}
