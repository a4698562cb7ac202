// Package session wires discovery, handshake, and the transfer state
// machines together and owns the process-exit decision (spec.md §4.8):
// Done exits 0, Fatal exits 1, and every resource — UDP socket, TCP
// connection, in-flight file descriptor — is released on every path
// out.
package session

import (
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/shorthop/shorthop/internal/config"
	"github.com/shorthop/shorthop/internal/discovery"
	"github.com/shorthop/shorthop/internal/events"
	"github.com/shorthop/shorthop/internal/logging"
	"github.com/shorthop/shorthop/internal/transfer"
)

// Result is what a completed Run leaves behind for the entry point to
// turn into an exit code.
type Result struct {
	Done bool
	Err  error
}

// RunSender drives a full Sender session: discover a peer, run the
// transfer state machine, and report the outcome over bus. Run blocks
// until the session reaches Done or Fatal.
func RunSender(cfg config.SendConfig, bus *events.Bus) Result {
	sessionID := uuid.New().String()
	log := logging.WithSession(logging.Sender, sessionID)

	if err := cfg.Validate(); err != nil {
		bus.Send(events.Fatal(err.Error()))
		return Result{Err: err}
	}

	deadline := config.Deadline(cfg.ExpireMinutes, time.Now())
	log.WithField("deadline", deadline).Debug("starting discovery")

	conn, err := discovery.SenderDiscover(cfg, bus, deadline)
	if err != nil {
		log.WithError(err).Warn("discovery failed")
		return Result{Err: err}
	}
	defer conn.Close()

	sender := transfer.NewSender(conn, bus)
	if err := sender.Run(cfg); err != nil {
		log.WithError(err).Error("transfer failed")
		bus.Send(events.Fatal(err.Error()))
		return Result{Err: err}
	}

	log.Info("session complete")
	return Result{Done: true}
}

// RunReceiver drives a full Receiver session: announce over UDP, accept
// the Sender's handshake, and dispatch every instruction until
// Disconnect.
func RunReceiver(cfg config.RecvConfig, bus *events.Bus) Result {
	sessionID := uuid.New().String()
	log := logging.WithSession(logging.Receiver, sessionID)

	if err := cfg.Validate(); err != nil {
		bus.Send(events.Fatal(err.Error()))
		return Result{Err: err}
	}

	conn, err := discovery.ReceiverDiscover(cfg, bus)
	if err != nil {
		log.WithError(err).Warn("discovery failed")
		return Result{Err: err}
	}
	defer closeLoudly(conn, log)

	cancel := make(chan struct{})
	receiver := transfer.NewReceiver(conn, cfg, bus, cancel)
	if err := receiver.Run(); err != nil {
		close(cancel)
		log.WithError(err).Error("transfer failed")
		bus.Send(events.Fatal(err.Error()))
		return Result{Err: err}
	}

	log.Info("session complete")
	return Result{Done: true}
}

func closeLoudly(conn net.Conn, log *logrus.Entry) {
	if err := conn.Close(); err != nil {
		log.WithError(err).Debug("error closing connection")
	}
}
