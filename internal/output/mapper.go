package output

import (
	"pixelbridge/internal/channels"
	"pixelbridge/internal/gamma"
	"pixelbridge/internal/logger"
)

const (
	// NumGPIO covers GPIO 0..16.
	NumGPIO = 17

	// MaxLevel is the full-scale PWM level (10 bit).
	MaxLevel = 1023

	// halfLevel is the digital on/off threshold.
	halfLevel = 512

	// Unassigned marks a pin without a source channel; it is driven at 0.
	Unassigned = 0xffff

	// noValue seeds LastEmitted so the first tick always writes.
	noValue = -1
)

// Valid GPIO masks. GPIO 6-11 belong to the flash chip; GPIO 2 carries pixel
// data, or GPIO 1 serial TX when the serial output uses UART0.
const (
	PixelGPIOMask  uint32 = 0b11111000000111011
	SerialGPIOMask uint32 = 0b11111000000111101
)

// Policy drives one physical pin from one channel.
type Policy struct {
	Pin         int
	Enabled     bool
	Channel     uint16 // Channel - канал с 0 или Unassigned.
	Invert      bool
	Digital     bool
	LastEmitted int
}

// NewPolicy returns an enabled policy with change tracking reset.
func NewPolicy(pin int, channel uint16, invert, digital bool) Policy {
	return Policy{Pin: pin, Enabled: true, Channel: channel, Invert: invert, Digital: digital, LastEmitted: noValue}
}

// Mapper turns channel values into PWM levels once per output tick.
type Mapper struct {
	log      logger.Logger
	sink     PinWriter
	table    *gamma.Table
	useGamma bool
	mask     uint32
	policies []Policy
}

// NewMapper конструктор. Policies for pins outside mask are kept but never driven.
func NewMapper(log logger.Logger, sink PinWriter, table *gamma.Table, useGamma bool, mask uint32, policies []Policy) *Mapper {
	ps := make([]Policy, len(policies))
	copy(ps, policies)
	for i := range ps {
		ps[i].LastEmitted = noValue
	}
	return &Mapper{
		log:      log,
		sink:     sink,
		table:    table,
		useGamma: useGamma,
		mask:     mask,
		policies: ps,
	}
}

// Level computes the PWM level of one raw channel value.
func (m *Mapper) Level(p Policy, raw uint8) int {
	var v int
	if m.useGamma {
		v = int(m.table.Value(raw) >> 6)
	} else {
		v = int(raw) << 2
	}

	// relays dont like pwm, force output high or low if "digital"
	if p.Digital {
		if v >= halfLevel {
			v = MaxLevel
		} else {
			v = 0
		}
	}

	if p.Invert {
		v = MaxLevel - v
	}
	return v
}

// Tick maps every enabled policy and emits changed levels. It returns the
// number of pins written.
func (m *Mapper) Tick(buf *channels.Buffer) int {
	written := 0
	for i := range m.policies {
		p := &m.policies[i]
		if !p.Enabled || m.mask&(1<<uint(p.Pin)) == 0 {
			continue
		}

		var raw uint8
		switch {
		case p.Channel == Unassigned:
			raw = 0
		case int(p.Channel) < buf.Len():
			raw = buf.Get(int(p.Channel))
		default:
			continue
		}

		v := m.Level(*p, raw)
		if v == p.LastEmitted {
			continue
		}
		p.LastEmitted = v
		if err := m.sink.Emit(p.Pin, uint16(v)); err != nil {
			m.log.With(logger.Fields{"module": "pwm"}).Errorf("gpio%d: %v", p.Pin, err)
			continue
		}
		written++
	}
	return written
}

// Policies returns a copy of the current policies.
func (m *Mapper) Policies() []Policy {
	out := make([]Policy, len(m.policies))
	copy(out, m.policies)
	return out
}
