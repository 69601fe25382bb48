package gamma

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRebuild(t *testing.T) {
	t.Run("linear gamma at full brightness", func(t *testing.T) {
		tbl := New(1.0, 1.0)
		for i := 0; i < Size; i++ {
			require.Equal(t, uint16(257*i), tbl.Value(uint8(i)), "entry %d", i)
		}
	})

	t.Run("endpoints with typical gamma", func(t *testing.T) {
		tbl := New(2.2, 1.0)
		require.Equal(t, uint16(0), tbl.Value(0))
		require.Equal(t, uint16(MaxValue), tbl.Value(255))
	})

	t.Run("monotonic", func(t *testing.T) {
		tbl := New(2.8, 0.8)
		prev := tbl.Value(0)
		for i := 1; i < Size; i++ {
			v := tbl.Value(uint8(i))
			require.GreaterOrEqual(t, v, prev)
			prev = v
		}
	})

	t.Run("brightness above one clamps", func(t *testing.T) {
		tbl := New(1.0, 2.0)
		require.Equal(t, uint16(MaxValue), tbl.Value(200))
		require.Equal(t, uint16(MaxValue), tbl.Value(255))
	})

	t.Run("zero brightness is dark", func(t *testing.T) {
		tbl := New(2.2, 0)
		for i := 0; i < Size; i++ {
			require.Zero(t, tbl.Value(uint8(i)))
		}
	})
}

func TestRebuildIdempotent(t *testing.T) {
	tbl := New(2.2, 0.75)
	first := tbl.Entries()

	tbl.Rebuild(2.2, 0.75)
	require.Equal(t, first, tbl.Entries())

	tbl.Rebuild(1.0, 1.0)
	require.NotEqual(t, first, tbl.Entries())

	tbl.Rebuild(2.2, 0.75)
	require.Equal(t, first, tbl.Entries())

	g, b := tbl.Params()
	require.Equal(t, 2.2, g)
	require.Equal(t, 0.75, b)
}
