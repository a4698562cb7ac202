package transfer

import (
	"net"

	"github.com/pkg/errors"

	"github.com/shorthop/shorthop/internal/wire"
)

// SenderHandshake performs the Sender's half of §4.4: send one Connect
// instruction (id 0) with the password as payload when configured, and
// await the correlated reply. A RequestSuccess reply returns nil, a
// RequestRefuse reply returns a RefusedError (caller blacklists the
// peer), and anything else (a RequestError reply, an I/O error, or a
// protocol violation) is returned as an error.
func SenderHandshake(conn net.Conn, password string) error {
	var payload []byte
	if password != "" {
		payload = []byte(password)
	}

	if err := wire.SendIns(conn, 0, wire.Connect, payload); err != nil {
		return err
	}

	ok, detail, err := validateReply(conn, 0)
	if err != nil {
		return err
	}
	if !ok {
		return newRefused(detail)
	}
	return nil
}

// validateReply implements the reply-correlation contract shared by
// every request the Sender issues (spec.md §4.5 "Reply validation
// contract"): the reply's id must match, RequestSuccess/RequestRefuse
// classify as (true/false, detail), RequestError propagates as an
// error, and anything else is a protocol violation.
func validateReply(conn net.Conn, id uint16) (ok bool, detail string, err error) {
	reply, err := wire.RecvIns(conn)
	if err != nil {
		return false, "", err
	}
	if reply.ID != id {
		return false, "", errors.Wrap(ErrProtocolViolation, "wrong id in reply")
	}

	if reply.Buffer {
		buf, err := wire.RecvContent(conn, reply.Length)
		if err != nil {
			return false, "", err
		}
		detail = string(buf)
	}

	switch reply.Operation {
	case wire.RequestSuccess:
		return true, detail, nil
	case wire.RequestRefuse:
		return false, detail, nil
	case wire.RequestError:
		return false, "", errors.New(detail)
	default:
		return false, "", errors.Wrap(ErrProtocolViolation, "unknown reply operation "+reply.Operation.String())
	}
}

// ReceiverAccept performs the Receiver's half of §4.4, looping over
// accepted connections until one completes a valid Connect handshake.
// Any other first instruction, or a password mismatch, closes that
// connection (or replies refuse) and the listener keeps accepting.
func ReceiverAccept(ln net.Listener, password string) (net.Conn, error) {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return nil, err
		}

		accepted, err := tryAccept(conn, password)
		if err != nil {
			conn.Close()
			continue
		}
		if accepted {
			return conn, nil
		}
		// Refused but replied on the wire; this connection is done, keep
		// listening for the next one.
		conn.Close()
	}
}

// tryAccept reads the first instruction on conn and, if it is a valid
// Connect, replies success and reports accepted=true (conn is retained
// by the caller, who stops listening). Any other first operation or a
// bad password reports accepted=false after replying (or erroring)
// appropriately; the caller closes conn and keeps listening, since a
// refused Sender candidate always redials fresh.
func tryAccept(conn net.Conn, password string) (accepted bool, err error) {
	ins, err := wire.RecvIns(conn)
	if err != nil {
		return false, err
	}
	if ins.Operation != wire.Connect {
		return false, errors.Wrap(ErrProtocolViolation, "first instruction was not Connect")
	}

	valid, detail, verr := validateConnect(conn, ins, password)
	if verr != nil {
		_ = wire.SendIns(conn, 0, wire.RequestError, []byte(verr.Error()))
		return false, verr
	}
	if !valid {
		_ = wire.SendIns(conn, 0, wire.RequestRefuse, []byte(detail))
		return false, nil
	}

	if err := wire.SendIns(conn, 0, wire.RequestSuccess, nil); err != nil {
		return false, err
	}
	return true, nil
}

// validateConnect applies the truth table from spec.md §4.4.
func validateConnect(conn net.Conn, ins wire.Instruction, password string) (valid bool, detail string, err error) {
	hasPassword := password != ""

	switch {
	case !ins.Buffer && !hasPassword:
		return true, "", nil
	case ins.Buffer && hasPassword:
		buf, err := wire.RecvContent(conn, ins.Length)
		if err != nil {
			return false, "", err
		}
		if string(buf) == password {
			return true, "", nil
		}
		return false, "Invalid password", nil
	default:
		return false, "Invalid password", nil
	}
}
