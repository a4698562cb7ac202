// Package discovery implements the UDP rendezvous that lets a Sender
// and a Receiver find each other on a LAN without a preconfigured
// address (spec.md §4.3): the Sender listens on an announced UDP port
// for the Receiver's broadcast and dials in over TCP once one arrives.
package discovery

import (
	"math/rand"
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/shorthop/shorthop/internal/config"
	"github.com/shorthop/shorthop/internal/events"
	"github.com/shorthop/shorthop/internal/transfer"
	"github.com/shorthop/shorthop/internal/wire"
)

// pollInterval bounds how long a single UDP read blocks before the
// deadline is rechecked.
const pollInterval = 1 * time.Second

// dialTimeout bounds a single candidate's TCP connect attempt.
const dialTimeout = 5 * time.Second

// SenderDiscover binds the Sender's UDP socket, announces the
// rendezvous code over bus, and listens for Receiver announcements
// until a handshake succeeds or deadline elapses. The UDP socket is
// released before this function returns, win or lose.
func SenderDiscover(cfg config.SendConfig, bus *events.Bus, deadline time.Time) (net.Conn, error) {
	udpConn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: 0})
	if err != nil {
		return nil, err
	}
	defer udpConn.Close()

	localPort := uint16(udpConn.LocalAddr().(*net.UDPAddr).Port)
	password := byte(rand.Intn(256))
	bus.Send(events.Status("Connection code: " + wire.EncodeCode(localPort, password)))

	// The code's embedded password gates the handshake automatically
	// unless the caller configured an explicit one.
	effectivePassword := cfg.Password
	if effectivePassword == "" {
		effectivePassword = strconv.Itoa(int(password))
	}

	blackList := transfer.NewBlackList()
	buf := make([]byte, 2)
	var lastTick time.Time

	for {
		now := time.Now()
		if now.After(deadline) {
			bus.Send(events.Fatal("no connection in time"))
			return nil, transfer.ErrDeadline
		}

		// Count down to the deadline once a second, the way a watchdog
		// timer would, so a UI can show time remaining while discovery
		// waits for a Receiver to announce itself.
		if now.Sub(lastTick) >= pollInterval {
			bus.Send(events.Time(uint64(deadline.Sub(now) / time.Second)))
			lastTick = now
		}

		udpConn.SetReadDeadline(now.Add(pollInterval))
		n, addr, err := udpConn.ReadFromUDP(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			return nil, err
		}
		if n != 2 {
			continue
		}

		remotePort := uint16(buf[0])<<8 | uint16(buf[1])
		candidate := &net.TCPAddr{IP: addr.IP, Port: int(remotePort)}
		if blackList.Contains(candidate) {
			continue
		}

		conn, err := net.DialTimeout("tcp4", candidate.String(), dialTimeout)
		if err != nil {
			continue
		}

		if err := transfer.SenderHandshake(conn, effectivePassword); err != nil {
			conn.Close()
			var refused *transfer.RefusedError
			switch {
			case errors.As(err, &refused):
				bus.Send(events.Error(refused.Error()))
				blackList.Add(candidate)
			case errors.Is(err, transfer.ErrProtocolViolation):
				return nil, err
			default:
				bus.Send(events.Error(err.Error()))
			}
			continue
		}

		bus.Send(events.Status("Connection established"))
		return conn, nil
	}
}
