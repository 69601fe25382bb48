package pipeline

import (
	"pixelbridge/internal/config"
	"pixelbridge/internal/logger"
	"pixelbridge/internal/output"
)

// OpenSink builds the hardware sink described by cfg. The returned close
// function releases the serial port, if any.
func OpenSink(log logger.Logger, cfg *config.Config) (output.Sink, func() error, error) {
	var pins output.PinWriter
	if cfg.PWM.Enabled {
		switch cfg.PWM.Driver {
		case config.DriverSysfs:
			pins = output.NewSysfsPWM(log, output.SysfsRoot, cfg.PWM.Chip, cfg.PWM.Freq)
		default:
			pins = output.NewLogSink(log)
		}
	}

	closer := func() error { return nil }
	var frames output.FrameWriter
	if cfg.Serial.Enabled {
		s, err := output.OpenSerial(log, cfg.Serial)
		if err != nil {
			return nil, nil, err
		}
		frames, closer = s, s.Close
	}
	return output.NewSink(pins, frames), closer, nil
}

// GPIOMask returns the pins that may be driven. GPIO1 is lost when the
// serial output transmits on it.
func GPIOMask(cfg *config.Config) uint32 {
	if cfg.PWM.SerialTX {
		return output.SerialGPIOMask
	}
	return output.PixelGPIOMask
}

// Policies converts the configured GPIO table. Nothing is driven while PWM is
// disabled.
func Policies(cfg *config.Config) []output.Policy {
	if !cfg.PWM.Enabled {
		return nil
	}
	ps := make([]output.Policy, 0, len(cfg.PWM.GPIO))
	for _, g := range cfg.PWM.GPIO {
		ch := uint16(output.Unassigned)
		if g.Channel >= 0 {
			ch = uint16(g.Channel)
		}
		p := output.NewPolicy(g.Pin, ch, g.Invert, g.Digital)
		p.Enabled = g.Enabled
		ps = append(ps, p)
	}
	return ps
}
