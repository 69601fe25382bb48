package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"pixelbridge/internal/logger"
)

// SysfsRoot is where the kernel exposes PWM chips.
const SysfsRoot = "/sys/class/pwm"

// SysfsPWM drives GPIO levels through the Linux PWM class. Pin n maps to
// channel n of the configured chip.
type SysfsPWM struct {
	log      logger.Logger
	dir      string
	period   time.Duration
	exported map[int]bool
}

// NewSysfsPWM конструктор. Frequencies outside 100..1000 Hz fall back to 1 kHz.
func NewSysfsPWM(log logger.Logger, root string, chip, freq int) *SysfsPWM {
	if freq < 100 || freq > 1000 {
		freq = 1000
	}
	return &SysfsPWM{
		log:      log,
		dir:      filepath.Join(root, fmt.Sprintf("pwmchip%d", chip)),
		period:   time.Second / time.Duration(freq),
		exported: map[int]bool{},
	}
}

// Emit sets the duty cycle for level 0..MaxLevel.
func (s *SysfsPWM) Emit(pin int, level uint16) error {
	if err := s.setup(pin); err != nil {
		return err
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	duty := int64(s.period) * int64(level) / MaxLevel
	return s.write(pin, "duty_cycle", strconv.FormatInt(duty, 10))
}

func (s *SysfsPWM) setup(pin int) error {
	if s.exported[pin] {
		return nil
	}
	if _, err := os.Stat(s.channelDir(pin)); os.IsNotExist(err) {
		if err := os.WriteFile(filepath.Join(s.dir, "export"), []byte(strconv.Itoa(pin)), 0o200); err != nil {
			return fmt.Errorf("pwm: export %d: %w", pin, err)
		}
	}
	if err := s.write(pin, "period", strconv.FormatInt(int64(s.period), 10)); err != nil {
		return err
	}
	if err := s.write(pin, "enable", "1"); err != nil {
		return err
	}
	s.exported[pin] = true
	s.log.With(logger.Fields{"module": "pwm"}).Debugf("gpio%d exported, period %s", pin, s.period)
	return nil
}

func (s *SysfsPWM) channelDir(pin int) string {
	return filepath.Join(s.dir, fmt.Sprintf("pwm%d", pin))
}

func (s *SysfsPWM) write(pin int, attr, value string) error {
	if err := os.WriteFile(filepath.Join(s.channelDir(pin), attr), []byte(value), 0o644); err != nil {
		return fmt.Errorf("pwm: gpio%d %s: %w", pin, attr, err)
	}
	return nil
}
