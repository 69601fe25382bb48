// Package e131 decodes streaming ACN (ANSI E1.31) data packets.
package e131

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
)

const (
	// Port is the well-known sACN UDP port.
	Port = 5568

	// MaxSlots is the number of DMX slots a single universe carries.
	MaxSlots = 512

	// HeaderLength is the offset of the first DMX slot after the start code.
	HeaderLength = 126

	// MaxPacketLength covers a full universe.
	MaxPacketLength = HeaderLength + MaxSlots

	vectorRootData     = 0x00000004
	vectorFramingData  = 0x00000002
	vectorDMPSetProp   = 0x02
	dmpAddressDataType = 0xa1

	optionPreview    = 0x80
	optionTerminated = 0x40
)

var acnIdentifier = []byte{0x41, 0x53, 0x43, 0x2d, 0x45, 0x31, 0x2e, 0x31, 0x37, 0x00, 0x00, 0x00}

var (
	ErrTooShort       = errors.New("e131: packet too short")
	ErrBadIdentifier  = errors.New("e131: bad ACN packet identifier")
	ErrBadVector      = errors.New("e131: unsupported vector")
	ErrBadDMPLayer    = errors.New("e131: malformed DMP layer")
	ErrBadSlotCount   = errors.New("e131: property value count exceeds packet")
	ErrBadUniverseNum = errors.New("e131: universe out of range")
)

// Frame is a decoded E1.31 data packet.
type Frame struct {
	CID        [16]byte
	SourceName string
	Priority   uint8
	Sequence   uint8
	Options    uint8
	Universe   uint16
	StartCode  uint8
	Data       []byte // DMX slots, aliasing the decoded datagram.
}

// Preview reports whether the sender marked the data as preview only.
func (f *Frame) Preview() bool {
	return f.Options&optionPreview != 0
}

// Terminated reports whether the sender announced the end of its stream.
func (f *Frame) Terminated() bool {
	return f.Options&optionTerminated != 0
}

// Decode parses a datagram. Frame.Data aliases b.
func Decode(b []byte) (*Frame, error) {
	if len(b) < HeaderLength {
		return nil, ErrTooShort
	}
	if binary.BigEndian.Uint16(b[0:2]) != 0x0010 || !bytes.Equal(b[4:16], acnIdentifier) {
		return nil, ErrBadIdentifier
	}
	if v := binary.BigEndian.Uint32(b[18:22]); v != vectorRootData {
		return nil, fmt.Errorf("%w: root 0x%08x", ErrBadVector, v)
	}
	if v := binary.BigEndian.Uint32(b[40:44]); v != vectorFramingData {
		return nil, fmt.Errorf("%w: framing 0x%08x", ErrBadVector, v)
	}
	if b[117] != vectorDMPSetProp || b[118] != dmpAddressDataType {
		return nil, ErrBadDMPLayer
	}

	f := &Frame{
		Priority:  b[108],
		Sequence:  b[111],
		Options:   b[112],
		Universe:  binary.BigEndian.Uint16(b[113:115]),
		StartCode: b[125],
	}
	copy(f.CID[:], b[22:38])
	f.SourceName = string(bytes.TrimRight(b[44:108], "\x00"))

	if f.Universe == 0 || f.Universe > 63999 {
		return nil, ErrBadUniverseNum
	}

	// The property value count includes the start code.
	count := int(binary.BigEndian.Uint16(b[123:125]))
	if count < 1 || HeaderLength-1+count > len(b) {
		return nil, ErrBadSlotCount
	}
	f.Data = b[HeaderLength : HeaderLength-1+count]
	return f, nil
}

// Encode builds a data packet. It is the inverse of Decode and is mainly
// used to feed test traffic and loopback tools.
func Encode(f *Frame) []byte {
	slots := len(f.Data)
	if slots > MaxSlots {
		slots = MaxSlots
	}
	b := make([]byte, HeaderLength+slots)

	binary.BigEndian.PutUint16(b[0:2], 0x0010)
	copy(b[4:16], acnIdentifier)
	binary.BigEndian.PutUint16(b[16:18], 0x7000|uint16(len(b)-16))
	binary.BigEndian.PutUint32(b[18:22], vectorRootData)
	copy(b[22:38], f.CID[:])

	binary.BigEndian.PutUint16(b[38:40], 0x7000|uint16(len(b)-38))
	binary.BigEndian.PutUint32(b[40:44], vectorFramingData)
	copy(b[44:108], f.SourceName)
	b[108] = f.Priority
	b[111] = f.Sequence
	b[112] = f.Options
	binary.BigEndian.PutUint16(b[113:115], f.Universe)

	binary.BigEndian.PutUint16(b[115:117], 0x7000|uint16(len(b)-115))
	b[117] = vectorDMPSetProp
	b[118] = dmpAddressDataType
	binary.BigEndian.PutUint16(b[121:123], 1)
	binary.BigEndian.PutUint16(b[123:125], uint16(slots+1))
	b[125] = f.StartCode
	copy(b[HeaderLength:], f.Data[:slots])
	return b
}

// MulticastAddr returns the multicast group a universe is published on:
// 239.255.<high byte>.<low byte>.
func MulticastAddr(universe uint16) net.IP {
	return net.IPv4(239, 255, byte(universe>>8), byte(universe))
}
