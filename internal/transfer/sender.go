package transfer

import (
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/shorthop/shorthop/internal/config"
	"github.com/shorthop/shorthop/internal/events"
	"github.com/shorthop/shorthop/internal/humanize"
	"github.com/shorthop/shorthop/internal/wire"
)

// ChunkSize is the streaming unit for file content (spec.md Glossary:
// 8 MiB).
const ChunkSize = 0x800000

// Sender drives the TCP session after a successful handshake
// (spec.md §4.5): StartSendFile→SendFileContent*→EndSendFile,
// recursive StartSendDir/EndSendDir, SendMsg, Disconnect.
type Sender struct {
	conn net.Conn
	ids  *IdCounter
	bus  *events.Bus
}

// NewSender wraps an already-connected, already-handshaken conn.
func NewSender(conn net.Conn, bus *events.Bus) *Sender {
	return &Sender{conn: conn, ids: NewIDCounter(), bus: bus}
}

// Run executes the full top-level sequence from spec.md §4.5 and emits
// Done on success. The caller (internal/session) is responsible for
// closing conn afterwards.
func (s *Sender) Run(cfg config.SendConfig) error {
	for _, path := range cfg.Files {
		if err := s.sendPath(path); err != nil {
			if errors.Is(err, ErrProtocolViolation) {
				return err
			}
			s.bus.Send(events.Error(fmt.Sprintf("error sending %s: %s", path, err)))
		}
	}

	if cfg.Message != "" {
		if err := s.sendMessage(cfg.Message); err != nil {
			return err
		}
	}

	if err := s.requestDisconnect(); err != nil {
		return err
	}

	s.bus.Send(events.Done())
	return nil
}

// sendPath dispatches a top-level input path to the file or directory
// sender. Anything that's neither a regular file nor a directory
// (symlinks, special files) is out of scope and skipped with an error
// event, per spec.md §4.5.
func (s *Sender) sendPath(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return err
	}
	switch {
	case st.Mode().IsRegular():
		return s.sendSingleFile(path)
	case st.IsDir():
		return s.sendDir(path)
	default:
		s.bus.Send(events.Error(fmt.Sprintf("skipping %s: not a regular file or directory", path)))
		return nil
	}
}

// sendSingleFile implements spec.md §4.5 send_single_file.
func (s *Sender) sendSingleFile(path string) error {
	st, err := os.Stat(path)
	if err != nil {
		return err
	}
	name := filepath.Base(path)
	size := uint64(st.Size())

	id := s.ids.Current()
	meta := fmt.Sprintf("size:%d;name:%s", size, name)
	if err := wire.SendIns(s.conn, id, wire.StartSendFile, []byte(meta)); err != nil {
		s.ids.Advance()
		return err
	}
	s.ids.Advance()

	ok, detail, err := validateReply(s.conn, id)
	if err != nil {
		return err
	}
	if !ok {
		s.bus.Send(events.Status(detail))
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var transmitted uint64
	buf := make([]byte, ChunkSize)
	for {
		n, readErr := f.Read(buf)
		if n > 0 {
			contentID := s.ids.Current()
			if err := wire.SendIns(s.conn, contentID, wire.SendFileContent, buf[:n]); err != nil {
				s.ids.Advance()
				return err
			}
			s.ids.Advance()

			transmitted += uint64(n)
			s.bus.Send(events.Progress(fmt.Sprintf("File: %q\t\tProgress: %s/%s", name, humanize.Bytes(transmitted), humanize.Bytes(size))))
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return readErr
		}
	}

	s.bus.Send(events.FileEnd())

	endID := s.ids.Current()
	if err := wire.SendIns(s.conn, endID, wire.EndSendFile, nil); err != nil {
		s.ids.Advance()
		return err
	}
	s.ids.Advance()

	ok, detail, err = validateReply(s.conn, endID)
	if err != nil {
		return err
	}
	if !ok {
		s.bus.Send(events.Status(detail))
	}
	return nil
}

// sendDir implements spec.md §4.5 send_dir. The directory-entry
// iteration order within a single directory is whatever the
// filesystem gives back, per spec.md's explicit note that this is
// unspecified.
func (s *Sender) sendDir(path string) error {
	name := filepath.Base(path)
	s.bus.Send(events.Status(fmt.Sprintf("Start sending directory: %q", name)))

	id := s.ids.Current()
	if err := wire.SendIns(s.conn, id, wire.StartSendDir, []byte(name)); err != nil {
		s.ids.Advance()
		return err
	}
	s.ids.Advance()

	ok, detail, err := validateReply(s.conn, id)
	if err != nil {
		return err
	}
	if !ok {
		s.bus.Send(events.Status(detail))
		return nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		childPath := filepath.Join(path, entry.Name())
		if err := s.sendPath(childPath); err != nil {
			if errors.Is(err, ErrProtocolViolation) {
				return err
			}
			s.bus.Send(events.Error(fmt.Sprintf("error sending %s: %s", childPath, err)))
		}
	}

	endID := s.ids.Current()
	if err := wire.SendIns(s.conn, endID, wire.EndSendDir, nil); err != nil {
		s.ids.Advance()
		return err
	}
	s.ids.Advance()

	if _, detail, err := validateReply(s.conn, endID); err != nil {
		return err
	} else if detail != "" {
		s.bus.Send(events.Status(detail))
	}

	s.bus.Send(events.Status(fmt.Sprintf("Finish sending directory: %q", name)))
	return nil
}

// sendMessage implements spec.md §4.5 send_message.
func (s *Sender) sendMessage(text string) error {
	id := s.ids.Current()
	if err := wire.SendIns(s.conn, id, wire.SendMsg, []byte(text)); err != nil {
		s.ids.Advance()
		return err
	}
	s.ids.Advance()

	_, _, err := validateReply(s.conn, id)
	return err
}

// requestDisconnect implements spec.md §4.5 request_disconnect. A
// RequestRefuse here is fatal, unlike every other request.
func (s *Sender) requestDisconnect() error {
	id := s.ids.Current()
	if err := wire.SendIns(s.conn, id, wire.Disconnect, nil); err != nil {
		s.ids.Advance()
		return err
	}
	s.ids.Advance()

	ok, detail, err := validateReply(s.conn, id)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Errorf("disconnection request refused: %s", detail)
	}
	return nil
}
