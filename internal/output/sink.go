package output

import (
	"pixelbridge/internal/logger"
)

// PinWriter sets the PWM level of one GPIO.
type PinWriter interface {
	Emit(pin int, level uint16) error
}

// FrameWriter pushes the whole channel buffer out of a serial protocol.
type FrameWriter interface {
	EmitSerial(data []byte) error
}

// Sink is the hardware the pipeline drives.
type Sink interface {
	PinWriter
	FrameWriter
}

type sink struct {
	PinWriter
	FrameWriter
}

// NewSink combines a pin driver and a frame driver. Either may be nil.
func NewSink(pins PinWriter, frames FrameWriter) Sink {
	if pins == nil {
		pins = Nop{}
	}
	if frames == nil {
		frames = Nop{}
	}
	return sink{PinWriter: pins, FrameWriter: frames}
}

// Nop discards everything.
type Nop struct{}

func (Nop) Emit(int, uint16) error { return nil }

func (Nop) EmitSerial([]byte) error { return nil }

// LogSink writes every emission to the debug log. It stands in for hardware
// on development machines.
type LogSink struct {
	log logger.Logger
}

// NewLogSink конструктор.
func NewLogSink(log logger.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Emit(pin int, level uint16) error {
	s.log.With(logger.Fields{"module": "pwm"}).Debugf("gpio%d = %d", pin, level)
	return nil
}

func (s *LogSink) EmitSerial(data []byte) error {
	s.log.With(logger.Fields{"module": "serial"}).Tracef("frame of %d channels", len(data))
	return nil
}
