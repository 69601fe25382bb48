package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

const (
	// MaxChannels is the largest channel buffer accepted.
	MaxChannels = 512 * 32

	ProtocolE131   = "e131"
	ProtocolArtNet = "artnet"

	DriverLog   = "log"
	DriverSysfs = "sysfs"

	SerialDMX512 = "dmx512"
	SerialRenard = "renard"
)

var (
	ErrInvalidChannelCount = errors.New("invalid channel count")
	ErrInvalidUniverse     = errors.New("invalid universe")
	ErrInvalidProtocol     = errors.New("invalid input protocol")
	ErrInvalidGamma        = errors.New("invalid gamma settings")
	ErrInvalidPin          = errors.New("invalid pwm gpio")
	ErrInvalidSerial       = errors.New("invalid serial settings")
	ErrInvalidTick         = errors.New("invalid output tick")
)

// Config структура конфигурации.
type Config struct {
	Logger  LogConf     `toml:"logger" yaml:"logger"`   // Logger - конфигурация регистратора.
	Device  DeviceConf  `toml:"device" yaml:"device"`   // Device - идентификация устройства.
	Input   InputConf   `toml:"input" yaml:"input"`     // Input - E1.31 / Art-Net приём.
	Raw     RawConf     `toml:"raw" yaml:"raw"`         // Raw - приём сырых UDP пакетов.
	MQTT    MQTTConf    `toml:"mqtt" yaml:"mqtt"`       // MQTT - конфигурация MQTT клиента.
	Effects EffectsConf `toml:"effects" yaml:"effects"` // Effects - эффекты и тайм-аут простоя.
	Gamma   GammaConf   `toml:"gamma" yaml:"gamma"`     // Gamma - гамма-коррекция.
	PWM     PWMConf     `toml:"pwm" yaml:"pwm"`         // PWM - выходы GPIO.
	Serial  SerialConf  `toml:"serial" yaml:"serial"`   // Serial - последовательный выход.
	Output  OutputConf  `toml:"output" yaml:"output"`   // Output - такт вывода.
}

// LogConf структура конфигурации.
type LogConf struct {
	Level  string `toml:"log-level" yaml:"log-level"` // Level - уровень логирования.
	Format string `toml:"format" yaml:"format"`       // Format - text или json.
}

// DeviceConf структура конфигурации.
type DeviceConf struct {
	ID string `toml:"id" yaml:"id"` // ID - имя устройства.
}

// InputConf структура конфигурации.
type InputConf struct {
	Protocol      string `toml:"protocol" yaml:"protocol"`             // Protocol - e131 или artnet.
	Universe      uint16 `toml:"universe" yaml:"universe"`             // Universe - первый универс.
	ChannelStart  int    `toml:"channel_start" yaml:"channel_start"`   // ChannelStart - первый канал, с 1.
	ChannelCount  int    `toml:"channel_count" yaml:"channel_count"`   // ChannelCount - число каналов.
	UniverseLimit int    `toml:"universe_limit" yaml:"universe_limit"` // UniverseLimit - каналов на универс.
	Multicast     bool   `toml:"multicast" yaml:"multicast"`           // Multicast - подписка на multicast группы.
	Interface     string `toml:"interface" yaml:"interface"`           // Interface - интерфейс для multicast.
	Network       string `toml:"network" yaml:"network"`               // Network - CIDR для поиска адреса Art-Net.
	ZeroPad       bool   `toml:"zero_pad" yaml:"zero_pad"`             // ZeroPad - обнулять хвост коротких кадров.
}

// RawConf структура конфигурации.
type RawConf struct {
	Enabled        bool   `toml:"enabled" yaml:"enabled"`                 // Enabled - включить приём.
	Port           int    `toml:"port" yaml:"port"`                       // Port - UDP порт.
	MulticastGroup string `toml:"multicast_group" yaml:"multicast_group"` // MulticastGroup - группа, пустая для unicast.
}

// MQTTConf структура конфигурации.
type MQTTConf struct {
	Enabled        bool   `toml:"enabled" yaml:"enabled"`                 // Enabled - включить MQTT.
	ClientID       string `toml:"clientID" yaml:"clientID"`               // ClientID - имя клиента.
	Host           string `toml:"server" yaml:"server"`                   // Host - адрес MQTT сервера.
	Port           string `toml:"port" yaml:"port"`                       // Port - порт MQTT сервера.
	User           string `toml:"user" yaml:"user"`                       // User - логин для подключения к MQTT серверу.
	Password       string `toml:"password" yaml:"password"`               // Password - пароль для подключения к MQTT серверу.
	Qos            byte   `toml:"qos" yaml:"qos"`                         // Qos - качество обслуживания.
	Topic          string `toml:"topic" yaml:"topic"`                     // Topic - корневой топик устройства.
	ShareControl   bool   `toml:"share_control" yaml:"share_control"`     // ShareControl - MQTT данные в группе сети.
	StatusInterval int    `toml:"status_interval" yaml:"status_interval"` // StatusInterval - период публикации статуса, с.
}

// ColorConf структура конфигурации.
type ColorConf struct {
	R uint8 `toml:"r" yaml:"r"`
	G uint8 `toml:"g" yaml:"g"`
	B uint8 `toml:"b" yaml:"b"`
}

// EffectsConf структура конфигурации.
type EffectsConf struct {
	IdleEnabled bool      `toml:"idle_enabled" yaml:"idle_enabled"` // IdleEnabled - эффект при отсутствии данных.
	IdleTimeout int       `toml:"idle_timeout" yaml:"idle_timeout"` // IdleTimeout - тайм-аут простоя, с.
	Name        string    `toml:"name" yaml:"name"`                 // Name - эффект простоя.
	Color       ColorConf `toml:"color" yaml:"color"`
	Brightness  float64   `toml:"brightness" yaml:"brightness"`
	Speed       int       `toml:"speed" yaml:"speed"`
	Reverse     bool      `toml:"reverse" yaml:"reverse"`
	Mirror      bool      `toml:"mirror" yaml:"mirror"`
	AllLeds     bool      `toml:"allleds" yaml:"allleds"`
}

// GammaConf структура конфигурации.
type GammaConf struct {
	Gamma      float64 `toml:"gamma" yaml:"gamma"`
	Brightness float64 `toml:"brightness" yaml:"brightness"`
}

// GPIOConf структура конфигурации.
type GPIOConf struct {
	Pin     int  `toml:"pin" yaml:"pin"`         // Pin - номер GPIO.
	Enabled bool `toml:"enabled" yaml:"enabled"` // Enabled - вывод включён.
	Channel int  `toml:"channel" yaml:"channel"` // Channel - канал с 0, отрицательный - не назначен.
	Invert  bool `toml:"invert" yaml:"invert"`   // Invert - инверсия.
	Digital bool `toml:"digital" yaml:"digital"` // Digital - только вкл/выкл (реле).
}

// PWMConf структура конфигурации.
type PWMConf struct {
	Enabled  bool       `toml:"enabled" yaml:"enabled"`
	Driver   string     `toml:"driver" yaml:"driver"` // Driver - log или sysfs.
	Chip     int        `toml:"chip" yaml:"chip"`     // Chip - номер pwmchip для sysfs.
	Freq     int        `toml:"freq" yaml:"freq"`     // Freq - частота ШИМ, 100..1000 Гц.
	Gamma    bool       `toml:"gamma" yaml:"gamma"`
	SerialTX bool       `toml:"serial_tx" yaml:"serial_tx"` // SerialTX - GPIO1 занят передачей.
	GPIO     []GPIOConf `toml:"gpio" yaml:"gpio"`
}

// SerialConf структура конфигурации.
type SerialConf struct {
	Enabled bool   `toml:"enabled" yaml:"enabled"`
	Device  string `toml:"device" yaml:"device"` // Device - например /dev/ttyUSB0.
	Baud    int    `toml:"baud" yaml:"baud"`
	Type    string `toml:"type" yaml:"type"` // Type - dmx512 или renard.
}

// OutputConf структура конфигурации.
type OutputConf struct {
	Tick int `toml:"tick" yaml:"tick"` // Tick - период вывода, мс.
}

// Default returns a configuration with every default filled in.
func Default() Config {
	return Config{
		Logger: LogConf{Level: "info", Format: "text"},
		Device: DeviceConf{ID: "pixelbridge"},
		Input: InputConf{
			Protocol:      ProtocolE131,
			Universe:      1,
			ChannelStart:  1,
			ChannelCount:  512,
			UniverseLimit: 512,
			Multicast:     true,
			ZeroPad:       true,
		},
		Raw:  RawConf{Port: 2801},
		MQTT: MQTTConf{Port: "1883", Topic: "pixelbridge", StatusInterval: 30},
		Effects: EffectsConf{
			IdleTimeout: 10,
			Name:        "Rainbow",
			Color:       ColorConf{R: 255, G: 255, B: 255},
			Brightness:  1.0,
			Speed:       6,
		},
		Gamma:  GammaConf{Gamma: 2.2, Brightness: 1.0},
		PWM:    PWMConf{Driver: DriverLog, Freq: 1000, Gamma: true},
		Serial: SerialConf{Baud: 250000, Type: SerialDMX512},
		Output: OutputConf{Tick: 25},
	}
}

// NewConfig конструктор. TOML is the default format; .yaml and .yml files
// are decoded as YAML.
func NewConfig(path string) (*Config, error) {
	// default values
	cfg := Default()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return &cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return &cfg, fmt.Errorf("yaml: %w", err)
		}
	default:
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return &cfg, err
		}
	}

	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = fmt.Sprintf("%s-%s", cfg.Device.ID, uuid.NewString()[:8])
	}

	if err := cfg.Validate(); err != nil {
		return &cfg, err
	}
	return &cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	in := c.Input
	if in.ChannelCount < 1 || in.ChannelCount > MaxChannels {
		return fmt.Errorf("%w: %d (1..%d)", ErrInvalidChannelCount, in.ChannelCount, MaxChannels)
	}
	switch in.Protocol {
	case ProtocolE131:
		if in.Universe < 1 || in.Universe > 63999 {
			return fmt.Errorf("%w: e131 universe %d (1..63999)", ErrInvalidUniverse, in.Universe)
		}
	case ProtocolArtNet:
		if in.Universe > 0x7fff {
			return fmt.Errorf("%w: art-net universe %d (0..32767)", ErrInvalidUniverse, in.Universe)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidProtocol, in.Protocol)
	}
	if in.UniverseLimit < 1 || in.UniverseLimit > 512 {
		return fmt.Errorf("%w: universe_limit %d (1..512)", ErrInvalidChannelCount, in.UniverseLimit)
	}
	if in.ChannelStart < 1 || in.ChannelStart > in.UniverseLimit {
		return fmt.Errorf("%w: channel_start %d (1..%d)", ErrInvalidChannelCount, in.ChannelStart, in.UniverseLimit)
	}
	if n := (in.ChannelCount + in.ChannelStart - 1 + in.UniverseLimit - 1) / in.UniverseLimit; int(in.Universe)+n-1 > 63999 {
		return fmt.Errorf("%w: %d universes from %d", ErrInvalidUniverse, n, in.Universe)
	}

	if c.Gamma.Gamma <= 0 || c.Gamma.Brightness < 0 || c.Gamma.Brightness > 1 {
		return fmt.Errorf("%w: gamma %.2f brightness %.2f", ErrInvalidGamma, c.Gamma.Gamma, c.Gamma.Brightness)
	}

	if c.PWM.Enabled {
		if c.PWM.Driver != DriverLog && c.PWM.Driver != DriverSysfs {
			return fmt.Errorf("%w: driver %q", ErrInvalidPin, c.PWM.Driver)
		}
		seen := map[int]bool{}
		for _, g := range c.PWM.GPIO {
			if g.Pin < 0 || g.Pin > 16 {
				return fmt.Errorf("%w: %d (0..16)", ErrInvalidPin, g.Pin)
			}
			if seen[g.Pin] {
				return fmt.Errorf("%w: %d listed twice", ErrInvalidPin, g.Pin)
			}
			seen[g.Pin] = true
		}
	}

	if c.Serial.Enabled {
		if c.Serial.Device == "" || c.Serial.Baud <= 0 {
			return fmt.Errorf("%w: device %q baud %d", ErrInvalidSerial, c.Serial.Device, c.Serial.Baud)
		}
		if c.Serial.Type != SerialDMX512 && c.Serial.Type != SerialRenard {
			return fmt.Errorf("%w: type %q", ErrInvalidSerial, c.Serial.Type)
		}
	}

	if c.Output.Tick <= 0 {
		return fmt.Errorf("%w: %d ms", ErrInvalidTick, c.Output.Tick)
	}
	return nil
}

// IdleTimeoutDuration returns the idle watchdog period.
func (e EffectsConf) IdleTimeoutDuration() time.Duration {
	return time.Duration(e.IdleTimeout) * time.Second
}

// TickDuration returns the output period.
func (o OutputConf) TickDuration() time.Duration {
	return time.Duration(o.Tick) * time.Millisecond
}

// StatusIntervalDuration returns the MQTT status publishing period.
func (m MQTTConf) StatusIntervalDuration() time.Duration {
	return time.Duration(m.StatusInterval) * time.Second
}
