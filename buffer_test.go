package apqos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pkt(id, size int) BufferedPacket {
	return BufferedPacket{ID: id, SizeBytes: size}
}

func TestBufferAdmitAndPop(t *testing.T) {
	buf, err := CreateBuffer(3)
	require.NoError(t, err)
	assert.Equal(t, 3, buf.Cap())

	_, ok := buf.PeekHead()
	assert.False(t, ok)

	for id := 0; id < 3; id++ {
		assert.Equal(t, Admitted, buf.TryAdmit(pkt(id, 10)))
	}
	assert.Equal(t, Dropped, buf.TryAdmit(pkt(3, 10)))
	assert.Equal(t, 3, buf.Len())

	head, ok := buf.PeekHead()
	require.True(t, ok)
	assert.Equal(t, 0, head.ID)

	assert.Equal(t, 0, buf.PopHead().ID)
	assert.Equal(t, Admitted, buf.TryAdmit(pkt(4, 10)))
	assert.Equal(t, 1, buf.PopHead().ID)
	assert.Equal(t, 2, buf.PopHead().ID)
	assert.Equal(t, 4, buf.PopHead().ID)
	assert.Equal(t, 0, buf.Len())
}

func TestBufferGrowsAcrossWrap(t *testing.T) {
	buf, err := CreateBuffer(40)
	require.NoError(t, err)

	next, want := 0, 0
	for ; next < 12; next++ {
		require.Equal(t, Admitted, buf.TryAdmit(pkt(next, 1)))
	}
	for ; want < 8; want++ {
		require.Equal(t, want, buf.PopHead().ID)
	}
	// the ring has wrapped before it has to grow
	for buf.Len() < 40 {
		require.Equal(t, Admitted, buf.TryAdmit(pkt(next, 1)))
		next++
	}
	assert.Equal(t, Dropped, buf.TryAdmit(pkt(next, 1)))
	for buf.Len() > 0 {
		require.Equal(t, want, buf.PopHead().ID)
		want++
	}
	assert.Equal(t, next, want)
}

func TestBufferHeadIsOwned(t *testing.T) {
	buf, err := CreateBuffer(2)
	require.NoError(t, err)
	buf.TryAdmit(pkt(0, 10))

	head, _ := buf.PeekHead()
	head.Departed = true
	head.DepartureTime = 1.5
	bp := buf.PopHead()
	assert.True(t, bp.Departed)
	assert.Equal(t, float32(1.5), bp.DepartureTime)
}

func TestBufferZeroCapacity(t *testing.T) {
	buf, err := CreateBuffer(0)
	require.NoError(t, err)
	assert.Equal(t, Dropped, buf.TryAdmit(pkt(0, 0)))
	assert.Equal(t, 0, buf.Len())
}

func TestBufferErrors(t *testing.T) {
	_, err := CreateBuffer(-1)
	assert.ErrorIs(t, err, ErrInvalidCapacity)

	buf, err := CreateBuffer(1)
	require.NoError(t, err)
	assert.Panics(t, func() { buf.PopHead() })
}

func TestAdmitResultString(t *testing.T) {
	assert.Equal(t, "admitted", Admitted.String())
	assert.Equal(t, "dropped", Dropped.String())
}
