// Package logging wires github.com/sirupsen/logrus behind two
// role-scoped entries (Sender, Receiver) whose WithField and level
// methods read like the teacher's hand-rolled logger, while the
// formatting, level filtering, and output routing are the ecosystem's,
// not ours.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// Sender and Receiver are the two role-scoped loggers call sites use,
// mirroring the teacher's ClientLogger/ServerLogger split.
var (
	Sender   = logrus.New().WithField("role", "sender")
	Receiver = logrus.New().WithField("role", "receiver")
)

func init() {
	configure(Sender.Logger, os.Stdout)
	configure(Receiver.Logger, os.Stdout)
}

func configure(l *logrus.Logger, out io.Writer) {
	l.SetOutput(out)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05.000",
	})
}

// SetDebug raises both loggers to debug level; cmd entry points wire
// this to a --debug flag.
func SetDebug(debug bool) {
	level := logrus.InfoLevel
	if debug {
		level = logrus.DebugLevel
	}
	Sender.Logger.SetLevel(level)
	Receiver.Logger.SetLevel(level)
}

// AttachFile additionally writes entry's logger output to a dated log
// file under dir, the way the teacher's NewFileLogger did for its
// file-backed loggers, while keeping the existing stdout stream.
func AttachFile(entry *logrus.Entry, dir, prefix string) (io.Closer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	name := filepath.Join(dir, prefix+"_"+time.Now().Format("2006-01-02")+".log")
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	entry.Logger.SetOutput(io.MultiWriter(entry.Logger.Out, f))
	return f, nil
}

// WithSession returns a child entry tagged with the session's
// correlation id (internal/session stamps one uuid.UUID per run).
func WithSession(base *logrus.Entry, sessionID string) *logrus.Entry {
	return base.WithField("session", sessionID)
}
