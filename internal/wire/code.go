package wire

import (
	"fmt"
	"strconv"

	"github.com/pkg/errors"
)

// CodeLen is the exact length of an encoded Code string.
const CodeLen = 6

// ErrBadCode is returned when a string fails to parse as a Code: wrong
// length or a character outside [0-9a-f].
var ErrBadCode = errors.New("wire: code must be 6 lowercase hex characters")

// EncodeCode renders the Sender's UDP listening port and one-byte
// password as the 6-character lowercase hex rendezvous code: port (4
// hex chars) concatenated with password (2 hex chars).
func EncodeCode(port uint16, password byte) string {
	return fmt.Sprintf("%04x%02x", port, password)
}

// DecodeCode parses a 6-character lowercase hex code into its port and
// password components. It rejects any input that is not exactly 6
// characters from the alphabet [0-9a-f].
func DecodeCode(s string) (port uint16, password byte, err error) {
	if len(s) != CodeLen {
		return 0, 0, ErrBadCode
	}
	for _, r := range s {
		if !isLowerHex(r) {
			return 0, 0, ErrBadCode
		}
	}

	p, err := strconv.ParseUint(s[0:4], 16, 16)
	if err != nil {
		return 0, 0, errors.Wrap(ErrBadCode, err.Error())
	}
	pw, err := strconv.ParseUint(s[4:6], 16, 8)
	if err != nil {
		return 0, 0, errors.Wrap(ErrBadCode, err.Error())
	}

	return uint16(p), byte(pw), nil
}

func isLowerHex(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'a' && r <= 'f')
}
