package artnet

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Haba1234/go-artnet"
	"github.com/Haba1234/go-artnet/packet"
)

const (
	// Port is the Art-Net UDP port.
	Port = 6454

	artNetID = "Art-Net\x00"
	opDMX    = 0x5000

	// dmxPacketLength is the size of an ArtDMX packet carrying 512 slots.
	dmxPacketLength = 18 + 512
)

var (
	ErrNotDMX   = errors.New("art-net: not an ArtDMX packet")
	ErrTooShort = errors.New("art-net: packet too short")
)

// Decode parses an ArtDMX datagram. Other Art-Net opcodes return ErrNotDMX.
func Decode(b []byte) (*DMXFrame, error) {
	if len(b) < 18 {
		return nil, ErrTooShort
	}

	if string(b[:8]) == artNetID && binary.LittleEndian.Uint16(b[8:10]) != opDMX {
		return nil, ErrNotDMX
	}

	// Короткие пакеты дополняются до полного размера, длина берётся из заголовка.
	full := make([]byte, dmxPacketLength)
	copy(full, b)

	p, err := packet.Unmarshal(full)
	if err != nil {
		return nil, fmt.Errorf("art-net: unmarshal: %w", err)
	}
	dmx, ok := p.(*packet.ArtDMXPacket)
	if !ok {
		return nil, ErrNotDMX
	}

	length := int(dmx.Length)
	if length > len(b)-18 {
		length = len(b) - 18
	}
	if length > len(dmx.Data) {
		length = len(dmx.Data)
	}

	data := make([]byte, length)
	copy(data, dmx.Data[:length])

	return &DMXFrame{
		Universe: AddressToUniverse(artnet.Address{Net: dmx.Net, SubUni: dmx.SubUni}),
		Sequence: dmx.Sequence,
		Physical: dmx.Physical,
		Data:     data,
	}, nil
}

// UniverseToAddress converts a 15-bit port address to an art-net address.
// universe: старший байт - Net, младший байт - SubUni.
func UniverseToAddress(universe uint16) artnet.Address {
	v := make([]uint8, 2)
	binary.BigEndian.PutUint16(v, universe&0x7fff)

	return artnet.Address{
		Net:    v[0],
		SubUni: v[1],
	}
}

// AddressToUniverse is the inverse of UniverseToAddress.
func AddressToUniverse(a artnet.Address) uint16 {
	return uint16(a.Net&0x7f)<<8 | uint16(a.SubUni)
}

// Encode builds an ArtDMX datagram for the given frame.
func Encode(f *DMXFrame) []byte {
	n := len(f.Data)
	if n > 512 {
		n = 512
	}
	a := UniverseToAddress(f.Universe)
	b := make([]byte, 18+n)
	copy(b[0:8], artNetID)
	binary.LittleEndian.PutUint16(b[8:10], opDMX)
	b[10], b[11] = 0x00, 14                        // ProtVerHi, ProtVerLo
	b[12] = f.Sequence
	b[13] = f.Physical
	b[14] = a.SubUni
	b[15] = a.Net
	binary.BigEndian.PutUint16(b[16:18], uint16(n))
	copy(b[18:], f.Data[:n])
	return b
}
