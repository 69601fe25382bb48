package gamma

import "math"

// Size is the number of entries in the table, one per 8-bit channel value.
const Size = 256

// MaxValue is the largest 16-bit value a table entry can hold.
const MaxValue = 65535

// Table maps 8-bit channel values to 16-bit brightness levels.
type Table struct {
	entries    [Size]uint16
	gamma      float64
	brightness float64
}

// New returns a table built for the given gamma and brightness.
func New(gamma, brightness float64) *Table {
	t := &Table{}
	t.Rebuild(gamma, brightness)
	return t
}

// Rebuild recomputes every entry as round(65535 * (i*brightness/255)^gamma),
// clamped to [0, 65535].
func (t *Table) Rebuild(gamma, brightness float64) {
	t.gamma = gamma
	t.brightness = brightness
	for i := 0; i < Size; i++ {
		v := MaxValue*math.Pow(float64(i)*brightness/255.0, gamma) + 0.5
		switch {
		case math.IsNaN(v) || v < 0:
			v = 0
		case v > MaxValue:
			v = MaxValue
		}
		t.entries[i] = uint16(v)
	}
}

// Value returns the corrected level for a raw channel value.
func (t *Table) Value(raw uint8) uint16 {
	return t.entries[raw]
}

// Entries returns a copy of the table.
func (t *Table) Entries() [Size]uint16 {
	return t.entries
}

// Params returns the gamma and brightness the table was built with.
func (t *Table) Params() (gamma, brightness float64) {
	return t.gamma, t.brightness
}
