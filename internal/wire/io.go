package wire

import (
	"io"

	"github.com/pkg/errors"
)

// SendIns writes an instruction header and, when payload is non-nil,
// the payload bytes immediately after, as two contiguous writes. Buffer
// and Length on the wire are derived from payload, not from the caller.
func SendIns(w io.Writer, id uint16, op Operation, payload []byte) error {
	ins := Instruction{ID: id, Operation: op}
	if payload != nil {
		ins.Buffer = true
		ins.Length = uint32(len(payload))
	}

	buf := ins.Encode()
	if _, err := w.Write(buf[:]); err != nil {
		return errors.Wrap(err, "wire: write instruction header")
	}

	if payload != nil {
		if _, err := w.Write(payload); err != nil {
			return errors.Wrap(err, "wire: write instruction payload")
		}
	}

	return nil
}

// RecvIns reads exactly InsSize bytes and decodes them. It fails with
// an I/O error if the connection closes before a full header arrives.
func RecvIns(r io.Reader) (Instruction, error) {
	var buf [InsSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Instruction{}, errors.Wrap(err, "wire: read instruction header")
	}
	ins, err := Decode(buf[:])
	if err != nil {
		return Instruction{}, err
	}
	return ins, nil
}

// RecvContent reads exactly n bytes, failing with an I/O error on a
// premature close.
func RecvContent(r io.Reader, n uint32) ([]byte, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrap(err, "wire: read instruction payload")
	}
	return buf, nil
}
