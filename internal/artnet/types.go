package artnet

// DMXFrame is a decoded ArtDMX packet.
type DMXFrame struct {
	Universe uint16 // Universe: 15-битный адрес порта (Net << 8 | SubUni).
	Sequence uint8  // Sequence: 0 - последовательность отключена.
	Physical uint8  // Physical: номер физического входа отправителя.
	Data     []byte // Data: значения каналов, до 512 байт.
}

// Sequenced reports whether the sender numbers its packets.
func (f *DMXFrame) Sequenced() bool {
	return f.Sequence != 0
}
