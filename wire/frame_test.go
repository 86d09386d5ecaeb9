package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeDataHeader(t *testing.T) {
	buf := make([]byte, HeaderSize)
	EncodeDataHeader(buf, 3, 517, 8)

	h := Decode(buf)
	require.EqualValues(t, 3, h.QID)
	require.False(t, h.IsNoop())
	require.False(t, h.IsCredit())
	require.EqualValues(t, 517, h.DataCount())
	require.EqualValues(t, 8, h.DataWidth())
}

func TestEncodeDecodeCredit(t *testing.T) {
	buf := make([]byte, HeaderSize)
	EncodeCredit(buf, 9, 1000)

	h := Decode(buf)
	require.True(t, h.IsCredit())
	require.EqualValues(t, 9, h.CreditQID())
	require.EqualValues(t, 1000, h.CreditAmount())
}

func TestEncodeDecodeNoop(t *testing.T) {
	buf := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	EncodeNoop(buf)

	h := Decode(buf)
	require.True(t, h.IsNoop())
}

func TestReservedQIDsDoNotOverlap(t *testing.T) {
	require.NotEqual(t, QIDNoop, QIDCredit)
	require.GreaterOrEqual(t, int(QIDNoop), 256-2)
	require.GreaterOrEqual(t, int(QIDCredit), 256-2)
}
