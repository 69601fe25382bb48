package ingest

import (
	"errors"
	"fmt"
	"time"

	"pixelbridge/internal/artnet"
	"pixelbridge/internal/channels"
	"pixelbridge/internal/e131"
	"pixelbridge/internal/logger"
)

// Subscription describes which universes feed the channel buffer.
type Subscription struct {
	Universe      uint16 // Universe - первый универс.
	ChannelStart  int    // ChannelStart - первый слот в первом универсе, с 1.
	ChannelCount  int    // ChannelCount - число каналов в буфере.
	UniverseLimit int    // UniverseLimit - слотов на универс.
}

func (s Subscription) limit() int {
	if s.UniverseLimit <= 0 || s.UniverseLimit > e131.MaxSlots {
		return e131.MaxSlots
	}
	return s.UniverseLimit
}

func (s Subscription) offset() int {
	if s.ChannelStart < 1 {
		return 0
	}
	return s.ChannelStart - 1
}

// LastUniverse is the highest universe needed to fill ChannelCount channels.
func (s Subscription) LastUniverse() uint16 {
	limit := s.limit()
	span := s.ChannelCount + s.offset()
	n := (span + limit - 1) / limit
	if n < 1 {
		n = 1
	}
	return s.Universe + uint16(n-1)
}

// Universes lists every subscribed universe.
func (s Subscription) Universes() []uint16 {
	var out []uint16
	for u := int(s.Universe); u <= int(s.LastUniverse()); u++ {
		out = append(out, uint16(u))
	}
	return out
}

// Region maps universe u onto the buffer: frame slots starting at dataStart go
// to buffer channels starting at bufLoc, for slots channels.
func (s Subscription) Region(u uint16) (bufLoc, dataStart, slots int, ok bool) {
	if u < s.Universe || u > s.LastUniverse() {
		return 0, 0, 0, false
	}
	k := int(u - s.Universe)
	limit := s.limit()
	if k == 0 {
		dataStart = s.offset()
	} else {
		bufLoc = k*limit - s.offset()
	}
	slots = limit - dataStart
	if rest := s.ChannelCount - bufLoc; rest < slots {
		slots = rest
	}
	if slots < 0 {
		slots = 0
	}
	return bufLoc, dataStart, slots, true
}

// UniverseAdapter stages lighting-control frames into the channel buffer.
type UniverseAdapter struct {
	log     logger.Logger
	sub     Subscription
	zeroPad bool
	states  map[uint16]*UniverseState
	stats   Stats
}

// NewUniverseAdapter конструктор. Sequence state is created for every
// subscribed universe.
func NewUniverseAdapter(log logger.Logger, sub Subscription, zeroPad bool) *UniverseAdapter {
	a := &UniverseAdapter{
		log:     log,
		sub:     sub,
		zeroPad: zeroPad,
		states:  map[uint16]*UniverseState{},
	}
	for _, u := range sub.Universes() {
		a.states[u] = &UniverseState{Universe: u}
	}
	return a
}

// Subscription returns the subscribed range.
func (a *UniverseAdapter) Subscription() Subscription {
	return a.sub
}

// DecodeE131 turns a datagram into a frame. Preview and non-zero start code
// frames are not errors but carry nothing to apply; ok is false for them.
func (a *UniverseAdapter) DecodeE131(b []byte) (f Frame, ok bool) {
	p, err := e131.Decode(b)
	if err != nil {
		a.packetError(err)
		return Frame{}, false
	}
	if p.Preview() || p.StartCode != 0 {
		return Frame{}, false
	}
	if p.Terminated() {
		a.log.With(logger.Fields{"module": "e131"}).Infof("source %q terminated universe %d", p.SourceName, p.Universe)
		return Frame{}, false
	}
	return Frame{Universe: p.Universe, Sequence: p.Sequence, Sequenced: true, Data: p.Data}, true
}

// DecodeArtNet turns an Art-Net datagram into a frame. Non-DMX opcodes are
// silently ignored.
func (a *UniverseAdapter) DecodeArtNet(b []byte) (f Frame, ok bool) {
	p, err := artnet.Decode(b)
	if errors.Is(err, artnet.ErrNotDMX) {
		return Frame{}, false
	}
	if err != nil {
		a.packetError(err)
		return Frame{}, false
	}
	return Frame{Universe: p.Universe, Sequence: p.Sequence, Sequenced: p.Sequenced(), SkipZero: true, Data: p.Data}, true
}

func (a *UniverseAdapter) packetError(err error) {
	a.stats.PacketErrors++
	a.log.With(logger.Fields{"module": "ingest"}).Debugf("bad packet: %v", err)
}

// Receive validates a frame and writes it into buf when claim grants network
// ownership. It reports whether the buffer was written.
func (a *UniverseAdapter) Receive(buf *channels.Buffer, f Frame, from string, now time.Time, claim Claimer) bool {
	state, ok := a.states[f.Universe]
	if !ok {
		a.log.With(logger.Fields{"module": "ingest"}).Debugf("universe %d not subscribed", f.Universe)
		return false
	}
	bufLoc, dataStart, slots, _ := a.sub.Region(f.Universe)

	a.stats.Packets++
	a.stats.LastSeen = now
	a.stats.LastClient = from

	if f.Sequenced {
		expected := state.LastSequence + 1
		if expected == 0 && f.SkipZero {
			expected = 1
		}
		if state.Seen && f.Sequence != expected {
			state.Errors++
			a.log.With(logger.Fields{"module": "ingest"}).Debugf(
				"universe %d: sequence %d, expected %d", f.Universe, f.Sequence, expected)
		}
		state.LastSequence = f.Sequence
		state.Seen = true
	}

	need := dataStart + slots
	switch {
	case len(f.Data) < need:
		a.stats.ShortPackets++
	case len(f.Data) > need:
		a.stats.LongPackets++
	}

	if !claim.ClaimNetwork(now) {
		a.stats.Dropped++
		return false
	}

	var payload []byte
	if len(f.Data) > dataStart {
		end := need
		if end > len(f.Data) {
			end = len(f.Data)
		}
		payload = f.Data[dataStart:end]
	}
	n := buf.Write(bufLoc, payload)
	if n < slots && a.zeroPad {
		buf.Fill(bufLoc+n, bufLoc+slots, 0)
	}
	return true
}

// Stats returns a copy of the adapter counters.
func (a *UniverseAdapter) Stats() Stats {
	return a.stats
}

// UniverseStates returns a copy of the per-universe sequence state, ordered by universe.
func (a *UniverseAdapter) UniverseStates() []UniverseState {
	out := make([]UniverseState, 0, len(a.states))
	for _, u := range a.sub.Universes() {
		out = append(out, *a.states[u])
	}
	return out
}

// SequenceErrors sums the sequence errors of all subscribed universes.
func (a *UniverseAdapter) SequenceErrors() uint64 {
	var total uint64
	for _, s := range a.states {
		total += s.Errors
	}
	return total
}

func (s Subscription) String() string {
	return fmt.Sprintf("universes %d-%d, start %d, %d channels", s.Universe, s.LastUniverse(), s.ChannelStart, s.ChannelCount)
}
