// Package wire defines the framed instruction header, the rendezvous
// code, and the length-prefixed send/receive helpers that carry them
// over a single TCP connection.
package wire

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// InsSize is the fixed on-wire size of an instruction header, in bytes.
const InsSize = 8

// Operation is a request or response opcode.
type Operation byte

// Request opcodes travel sender->receiver; response opcodes travel the
// other way. The numeric values match spec.md §6 exactly.
const (
	Connect         Operation = 10
	StartSendFile   Operation = 20
	SendFileContent Operation = 21
	EndSendFile     Operation = 22
	StartSendDir    Operation = 30
	EndSendDir      Operation = 31
	SendMsg         Operation = 40

	Disconnect Operation = 100

	RequestSuccess Operation = 200
	RequestRefuse  Operation = 201
	RequestError   Operation = 202
)

func (o Operation) String() string {
	switch o {
	case Connect:
		return "Connect"
	case StartSendFile:
		return "StartSendFile"
	case SendFileContent:
		return "SendFileContent"
	case EndSendFile:
		return "EndSendFile"
	case StartSendDir:
		return "StartSendDir"
	case EndSendDir:
		return "EndSendDir"
	case SendMsg:
		return "SendMsg"
	case Disconnect:
		return "Disconnect"
	case RequestSuccess:
		return "RequestSuccess"
	case RequestRefuse:
		return "RequestRefuse"
	case RequestError:
		return "RequestError"
	default:
		return "Unknown"
	}
}

// valid reports whether o is one of the known opcodes.
func (o Operation) valid() bool {
	switch o {
	case Connect, StartSendFile, SendFileContent, EndSendFile,
		StartSendDir, EndSendDir, SendMsg, Disconnect,
		RequestSuccess, RequestRefuse, RequestError:
		return true
	default:
		return false
	}
}

// ErrUnknownOperation is returned by Decode when byte 2 of the header
// does not match any known Operation.
var ErrUnknownOperation = errors.New("wire: unknown operation code")

// ErrBadLength is returned by Decode when the input is not exactly
// InsSize bytes.
var ErrBadLength = errors.New("wire: instruction header must be 8 bytes")

// Instruction is the 8-byte framed header preceding every request and
// reply on the TCP session connection.
type Instruction struct {
	ID        uint16
	Operation Operation
	Buffer    bool
	Length    uint32
}

// Encode serializes i to its 8-byte wire form:
//
//	[0:2)  id         big-endian u16
//	[2]    operation  u8
//	[3]    buffer     0 or 1
//	[4:8)  length     big-endian u32
func (i Instruction) Encode() [InsSize]byte {
	var buf [InsSize]byte
	binary.BigEndian.PutUint16(buf[0:2], i.ID)
	buf[2] = byte(i.Operation)
	if i.Buffer {
		buf[3] = 1
	}
	binary.BigEndian.PutUint32(buf[4:8], i.Length)
	return buf
}

// Decode parses an 8-byte header. It rejects input of the wrong length
// and unknown operation codes.
func Decode(buf []byte) (Instruction, error) {
	if len(buf) != InsSize {
		return Instruction{}, ErrBadLength
	}

	op := Operation(buf[2])
	if !op.valid() {
		return Instruction{}, ErrUnknownOperation
	}

	return Instruction{
		ID:        binary.BigEndian.Uint16(buf[0:2]),
		Operation: op,
		Buffer:    buf[3] == 1,
		Length:    binary.BigEndian.Uint32(buf[4:8]),
	}, nil
}
