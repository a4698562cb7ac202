package transfer

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/shorthop/shorthop/internal/config"
	"github.com/shorthop/shorthop/internal/events"
	"github.com/shorthop/shorthop/internal/humanize"
	"github.com/shorthop/shorthop/internal/policy"
	"github.com/shorthop/shorthop/internal/wire"
)

// Receiver runs the reactive dispatch loop of spec.md §4.6: read one
// instruction at a time, handle it, loop until Disconnect.
type Receiver struct {
	conn   net.Conn
	bus    *events.Bus
	cancel <-chan struct{}

	overwrite config.Strategy
	password  string // never assigned; ReceiverAccept takes the password directly

	cur      CurrentFile
	dirStack []string // dirStack[0] is RecvConfig.Dir; push/pop balance is checked at session end
}

// NewReceiver constructs a Receiver rooted at cfg.Dir. Closing cancel
// unblocks an in-flight Ask prompt, which then resolves as a skip.
func NewReceiver(conn net.Conn, cfg config.RecvConfig, bus *events.Bus, cancel <-chan struct{}) *Receiver {
	return &Receiver{
		conn:      conn,
		bus:       bus,
		cancel:    cancel,
		overwrite: cfg.Overwrite,
		dirStack:  []string{cfg.Dir},
	}
}

// dir is the current working directory new files/dirs resolve against
// — the top of dirStack.
func (r *Receiver) dir() string { return r.dirStack[len(r.dirStack)-1] }

// Run loops on dispatch until Disconnect or an unrecoverable error.
// On return, the dir stack is guaranteed back to its initial single
// entry only on the success path (spec.md §8 property 8); an error
// return means the session is being torn down anyway.
func (r *Receiver) Run() error {
	defer r.cur.Close()
	for {
		ins, err := wire.RecvIns(r.conn)
		if err != nil {
			r.cur.Close()
			return err
		}

		switch ins.Operation {
		case wire.StartSendFile:
			if err := r.recvFileMeta(ins); err != nil {
				r.cur.Close()
				return err
			}
		case wire.SendFileContent:
			if err := r.recvFileContent(ins); err != nil {
				r.cur.Close()
				return err
			}
		case wire.EndSendFile:
			if err := r.recvFileEnd(ins); err != nil {
				return err
			}
		case wire.StartSendDir:
			if err := r.recvDir(ins); err != nil {
				return err
			}
		case wire.EndSendDir:
			if err := r.recvDirEnd(ins); err != nil {
				return err
			}
		case wire.SendMsg:
			if err := r.recvMsg(ins); err != nil {
				return err
			}
		case wire.Disconnect:
			if len(r.dirStack) != 1 {
				return r.replyError(ins.ID, "directory stack not balanced at disconnect")
			}
			if err := wire.SendIns(r.conn, ins.ID, wire.RequestSuccess, nil); err != nil {
				return err
			}
			r.bus.Send(events.Done())
			return nil
		default:
			detail := "unexpected operation " + ins.Operation.String()
			_ = wire.SendIns(r.conn, ins.ID, wire.RequestError, []byte(detail))
			return errors.Wrap(ErrProtocolViolation, detail)
		}
	}
}

// recvFileMeta implements spec.md §4.6 recv_file_meta.
func (r *Receiver) recvFileMeta(ins wire.Instruction) error {
	if r.cur.Active() {
		return r.replyError(ins.ID, "Previous file not finished")
	}

	buf, err := wire.RecvContent(r.conn, ins.Length)
	if err != nil {
		return err
	}
	size, name, err := parseFileMeta(string(buf))
	if err != nil {
		return r.replyError(ins.ID, err.Error())
	}

	res, ok := policy.GetValidPath(r.bus, r.cancel, name, r.dir(), false, r.overwrite)
	if !ok {
		return r.replyRefuse(ins.ID, "File refused: user chose skip")
	}

	fd, err := os.OpenFile(res.Path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return r.replyError(ins.ID, err.Error())
	}

	r.cur.Open(fd, res.Path, name, size)
	return wire.SendIns(r.conn, ins.ID, wire.RequestSuccess, nil)
}

// recvFileContent implements spec.md §4.6 recv_file_content. It is a
// fire-and-forget frame: no reply is sent.
func (r *Receiver) recvFileContent(ins wire.Instruction) error {
	buf, err := wire.RecvContent(r.conn, ins.Length)
	if err != nil {
		return err
	}
	if !r.cur.Active() {
		return errors.Wrap(ErrProtocolViolation, "content frame with no file open")
	}
	if err := r.cur.Write(buf); err != nil {
		return err
	}
	r.bus.Send(events.Progress(r.cur.progressText()))
	return nil
}

// recvFileEnd implements spec.md §4.6 recv_file_end.
func (r *Receiver) recvFileEnd(ins wire.Instruction) error {
	if !r.cur.Active() {
		return r.replyError(ins.ID, "EndSendFile with no file open")
	}
	if err := r.cur.Close(); err != nil {
		return err
	}
	r.bus.Send(events.FileEnd())
	return wire.SendIns(r.conn, ins.ID, wire.RequestSuccess, nil)
}

// recvDir implements spec.md §4.6 recv_dir.
func (r *Receiver) recvDir(ins wire.Instruction) error {
	buf, err := wire.RecvContent(r.conn, ins.Length)
	if err != nil {
		return err
	}
	name := string(buf)

	res, ok := policy.GetValidPath(r.bus, r.cancel, name, r.dir(), true, r.overwrite)
	if !ok {
		return r.replyRefuse(ins.ID, "Directory refused: user chose skip")
	}

	if res.NeedCreate {
		if err := os.MkdirAll(res.Path, 0o755); err != nil {
			return r.replyError(ins.ID, err.Error())
		}
	}

	r.dirStack = append(r.dirStack, res.Path)
	return wire.SendIns(r.conn, ins.ID, wire.RequestSuccess, nil)
}

// recvDirEnd implements spec.md §4.6 recv_dir_end.
func (r *Receiver) recvDirEnd(ins wire.Instruction) error {
	if len(r.dirStack) <= 1 {
		return r.replyError(ins.ID, "directory stack underflow")
	}
	finished := r.dirStack[len(r.dirStack)-1]
	r.dirStack = r.dirStack[:len(r.dirStack)-1]

	r.bus.Send(events.Status(fmt.Sprintf("Finish receiving directory: %q", filepath.Base(finished))))
	return wire.SendIns(r.conn, ins.ID, wire.RequestSuccess, nil)
}

// recvMsg implements spec.md §4.6 recv_msg.
func (r *Receiver) recvMsg(ins wire.Instruction) error {
	buf, err := wire.RecvContent(r.conn, ins.Length)
	if err != nil {
		return err
	}
	r.bus.Send(events.Status(fmt.Sprintf("Message received: %q", string(buf))))
	return wire.SendIns(r.conn, ins.ID, wire.RequestSuccess, nil)
}

func (r *Receiver) replyRefuse(id uint16, detail string) error {
	if err := wire.SendIns(r.conn, id, wire.RequestRefuse, []byte(detail)); err != nil {
		return err
	}
	r.bus.Send(events.Status(detail))
	return nil
}

// replyError sends RequestError and, per spec.md §9 open question 3,
// also tears down this side of the session symmetrically with the
// Sender (which treats RequestError as fatal).
func (r *Receiver) replyError(id uint16, detail string) error {
	_ = wire.SendIns(r.conn, id, wire.RequestError, []byte(detail))
	return errors.New(detail)
}

func (c *CurrentFile) progressText() string {
	return fmt.Sprintf("File: %q\t\tProgress: %s/%s", c.Name, humanize.Bytes(c.Transmitted), humanize.Bytes(c.Size))
}

// parseFileMeta parses "size:<u64>;name:<utf8>" (spec.md Glossary
// "Meta string"). The split tolerates a filename containing ':' by
// only splitting the name half once.
func parseFileMeta(s string) (size uint64, name string, err error) {
	parts := strings.SplitN(s, ";", 2)
	if len(parts) != 2 {
		return 0, "", errors.New("malformed file meta")
	}

	sizeKV := strings.SplitN(parts[0], ":", 2)
	nameKV := strings.SplitN(parts[1], ":", 2)
	if len(sizeKV) != 2 || len(nameKV) != 2 || sizeKV[0] != "size" || nameKV[0] != "name" {
		return 0, "", errors.New("malformed file meta")
	}

	size, err = strconv.ParseUint(sizeKV[1], 10, 64)
	if err != nil {
		return 0, "", errors.New("malformed file meta: bad size")
	}
	return size, nameKV[1], nil
}
