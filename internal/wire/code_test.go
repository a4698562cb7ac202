package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCodeRoundTrip(t *testing.T) {
	ports := []uint16{0, 1, 2000, 61961, 65535}
	passwords := []byte{0, 1, 42, 10, 255}

	for _, port := range ports {
		for _, pw := range passwords {
			code := EncodeCode(port, pw)
			require.Len(t, code, CodeLen)

			gotPort, gotPW, err := DecodeCode(code)
			require.NoError(t, err)
			require.Equal(t, port, gotPort)
			require.Equal(t, pw, gotPW)
		}
	}
}

func TestCodeKnownVectors(t *testing.T) {
	port, pw, err := DecodeCode("07d02a")
	require.NoError(t, err)
	require.Equal(t, uint16(2000), port)
	require.Equal(t, byte(42), pw)

	port, pw, err = DecodeCode("f2090a")
	require.NoError(t, err)
	require.Equal(t, uint16(61961), port)
	require.Equal(t, byte(10), pw)
}

func TestCodeRejectsInvalid(t *testing.T) {
	cases := []string{
		"s-1abc", // non-hex characters
		"07d02",  // too short
		"07d02aa", // too long
		"07D02A",  // uppercase not accepted
		"",
	}
	for _, c := range cases {
		_, _, err := DecodeCode(c)
		require.ErrorIs(t, err, ErrBadCode, "code %q should be rejected", c)
	}
}
