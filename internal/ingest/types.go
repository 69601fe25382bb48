package ingest

import "time"

// Stats are the counters of one ingestion adapter.
type Stats struct {
	Packets      uint64    `json:"packets"`       // Packets - принятые кадры.
	ShortPackets uint64    `json:"short_packets"` // ShortPackets - кадры короче числа каналов.
	LongPackets  uint64    `json:"long_packets"`  // LongPackets - кадры длиннее числа каналов.
	PacketErrors uint64    `json:"packet_errors"` // PacketErrors - нераспознанные датаграммы.
	Dropped      uint64    `json:"dropped"`       // Dropped - кадры, отклонённые арбитром.
	LastSeen     time.Time `json:"last_seen"`     // LastSeen - время последнего кадра.
	LastClient   string    `json:"last_client"`   // LastClient - адрес последнего отправителя.
}

// UniverseState tracks sequence integrity for one subscribed universe.
type UniverseState struct {
	Universe     uint16 `json:"universe"`
	LastSequence uint8  `json:"last_sequence"`
	Seen         bool   `json:"seen"`
	Errors       uint64 `json:"errors"`
}

// Frame is a decoded lighting-control frame for one universe.
type Frame struct {
	Universe  uint16
	Sequence  uint8
	Sequenced bool // false when the protocol does not number this frame.
	SkipZero  bool // the sequence wraps from 255 to 1.
	Data      []byte
}

// Claimer grants buffer ownership to network traffic.
type Claimer interface {
	ClaimNetwork(now time.Time) bool
}

// ClaimFunc adapts a function to Claimer.
type ClaimFunc func(now time.Time) bool

func (f ClaimFunc) ClaimNetwork(now time.Time) bool {
	return f(now)
}
