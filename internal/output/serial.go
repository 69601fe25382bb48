package output

import (
	"fmt"
	"io"
	"time"

	"pixelbridge/internal/config"
	"pixelbridge/internal/logger"

	"go.bug.st/serial"
)

const (
	dmxBreak     = 100 * time.Microsecond
	dmxMaxSlots  = 512
	renardSync   = 0x7e
	renardCmd    = 0x80
	renardPad    = 0x7d
	renardEscape = 0x7f
)

// breaker is the part of serial.Port the sink needs.
type breaker interface {
	io.WriteCloser
	Break(time.Duration) error
}

// SerialSink streams the channel buffer over a UART as DMX512 or Renard.
type SerialSink struct {
	log  logger.Logger
	port breaker
	kind string
	out  []byte
}

// OpenSerial opens the named serial device for the given protocol.
func OpenSerial(log logger.Logger, cfg config.SerialConf) (*SerialSink, error) {
	mode := &serial.Mode{BaudRate: cfg.Baud, DataBits: 8, Parity: serial.NoParity, StopBits: serial.OneStopBit}
	if cfg.Type == config.SerialDMX512 {
		mode.StopBits = serial.TwoStopBits
	}
	p, err := serial.Open(cfg.Device, mode)
	if err != nil {
		return nil, fmt.Errorf("serial: failed to open %s: %w", cfg.Device, err)
	}
	log.With(logger.Fields{"module": "serial"}).Infof("port %s opened at %d baud (%s)", cfg.Device, cfg.Baud, cfg.Type)
	return NewSerialSink(log, p, cfg.Type), nil
}

// NewSerialSink wraps an already opened port.
func NewSerialSink(log logger.Logger, port breaker, kind string) *SerialSink {
	return &SerialSink{log: log, port: port, kind: kind}
}

// EmitSerial encodes and writes one frame.
func (s *SerialSink) EmitSerial(data []byte) error {
	switch s.kind {
	case config.SerialRenard:
		s.out = EncodeRenard(s.out[:0], data)
	default:
		if err := s.port.Break(dmxBreak); err != nil {
			return fmt.Errorf("serial: break: %w", err)
		}
		s.out = EncodeDMX(s.out[:0], data)
	}
	if _, err := s.port.Write(s.out); err != nil {
		return fmt.Errorf("serial: write: %w", err)
	}
	return nil
}

// Close closes the underlying port.
func (s *SerialSink) Close() error {
	s.log.With(logger.Fields{"module": "serial"}).Info("closing port")
	return s.port.Close()
}

// EncodeDMX appends a DMX512 packet (start code 0, up to 512 slots) to dst.
func EncodeDMX(dst, data []byte) []byte {
	if len(data) > dmxMaxSlots {
		data = data[:dmxMaxSlots]
	}
	dst = append(dst, 0x00)
	return append(dst, data...)
}

// EncodeRenard appends a Renard packet to dst: sync, command, then the
// values with the three reserved bytes escaped.
func EncodeRenard(dst, data []byte) []byte {
	dst = append(dst, renardSync, renardCmd)
	for _, v := range data {
		switch v {
		case renardPad:
			dst = append(dst, renardEscape, 0x2f)
		case renardSync:
			dst = append(dst, renardEscape, 0x30)
		case renardEscape:
			dst = append(dst, renardEscape, 0x31)
		default:
			dst = append(dst, v)
		}
	}
	return dst
}
