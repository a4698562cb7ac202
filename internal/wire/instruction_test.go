package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInstructionRoundTrip(t *testing.T) {
	cases := []Instruction{
		{ID: 5, Operation: Connect, Buffer: true, Length: 43375},
		{ID: 0, Operation: RequestSuccess, Buffer: false, Length: 0},
		{ID: 65535, Operation: Disconnect, Buffer: false, Length: 0},
		{ID: 1, Operation: SendFileContent, Buffer: true, Length: 0x800000},
	}

	for _, want := range cases {
		buf := want.Encode()
		got, err := Decode(buf[:])
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestEncodeMatchesFixedBytes(t *testing.T) {
	ins := Instruction{ID: 5, Operation: Connect, Buffer: true, Length: 43375}
	buf := ins.Encode()
	require.Equal(t, [8]byte{0, 5, 10, 1, 0, 0, 169, 111}, buf)
}

func TestDecodeRejectsBadLength(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrBadLength)

	_, err = Decode(make([]byte, 9))
	require.ErrorIs(t, err, ErrBadLength)
}

func TestDecodeRejectsUnknownOperation(t *testing.T) {
	buf := []byte{0, 1, 250, 0, 0, 0, 0, 0}
	_, err := Decode(buf)
	require.ErrorIs(t, err, ErrUnknownOperation)
}
