package clientmqtt

import "time"

type MQTTConf struct {
	ClientID       string        // ClientID - уникальное имя клиента для брокеров.
	Schema         string        // Schema - тип подключения.
	Host           string        // Host - адрес MQTT сервера.
	Port           string        // Port - порт MQTT сервера.
	User           string        // User - логин для подключения к MQTT серверу.
	Password       string        // Password - пароль для подключения к MQTT серверу.
	Qos            byte          // Qos - качество обслуживания.
	Topic          string        // Topic - корневой топик устройства.
	StatusInterval time.Duration // StatusInterval - период публикации статуса.
}

const (
	topicDMX    = "dmx"
	topicSet    = "set"
	topicStatus = "status"
)

const (
	StateOn  = "ON"
	StateOff = "OFF"
)

type DMXCommand struct {
	Channel uint16 `json:"channel"` // Channel is the 0-based buffer channel.
	Value   uint8  `json:"value"`   // Value is the value a DMX channel can represent (0-255).
}

type Payload []DMXCommand

// Color is the RGB part of an effect command.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Command starts or stops a manual effect. Unset fields keep their value.
type Command struct {
	State      string   `json:"state"`
	Effect     string   `json:"effect,omitempty"`
	Color      *Color   `json:"color,omitempty"`
	Brightness *float64 `json:"brightness,omitempty"`
	Speed      *int     `json:"speed,omitempty"`
	Reverse    *bool    `json:"reverse,omitempty"`
	Mirror     *bool    `json:"mirror,omitempty"`
	AllLeds    *bool    `json:"allleds,omitempty"`
}

// Event is one message from the control bus: either channel data or a command.
type Event struct {
	DMX     Payload
	Command *Command
	At      time.Time
}
