package discovery

import (
	"net"
	"strconv"
	"syscall"
	"time"

	"github.com/shorthop/shorthop/internal/config"
	"github.com/shorthop/shorthop/internal/events"
	"github.com/shorthop/shorthop/internal/transfer"
	"github.com/shorthop/shorthop/internal/wire"
)

// broadcastTries and broadcastGap implement spec.md §4.3/§6's
// "up to 10 datagrams, 5 s apart" announcement schedule.
const (
	broadcastTries = 10
	broadcastGap   = 5 * time.Second
)

// ReceiverDiscover binds a TCP listener, broadcasts it over UDP to the
// Sender named by cfg.Code, and blocks until a handshake completes or
// the broadcaster exhausts its tries.
func ReceiverDiscover(cfg config.RecvConfig, bus *events.Bus) (net.Conn, error) {
	remoteUDPPort, codePassword, err := wire.DecodeCode(cfg.Code)
	if err != nil {
		return nil, err
	}

	ln, err := net.Listen("tcp4", ":0")
	if err != nil {
		return nil, err
	}
	localTCPPort := uint16(ln.Addr().(*net.TCPAddr).Port)

	effectivePassword := cfg.Password
	if effectivePassword == "" {
		effectivePassword = strconv.Itoa(int(codePassword))
	}

	stop := make(chan struct{})
	exhausted := make(chan struct{})
	go broadcast(remoteUDPPort, localTCPPort, stop, exhausted, bus)

	type result struct {
		conn net.Conn
		err  error
	}
	acceptCh := make(chan result, 1)
	go func() {
		conn, err := transfer.ReceiverAccept(ln, effectivePassword)
		acceptCh <- result{conn, err}
	}()

	select {
	case res := <-acceptCh:
		close(stop)
		ln.Close()
		if res.err != nil {
			return nil, res.err
		}
		bus.Send(events.Status("Connection established"))
		return res.conn, nil
	case <-exhausted:
		ln.Close()
		bus.Send(events.Fatal("no connection in time"))
		return nil, transfer.ErrDeadline
	}
}

// broadcast sends up to broadcastTries announcements of localTCPPort
// to the Sender's UDP port, broadcastGap apart, stopping early if stop
// is closed and signalling exhausted if it runs out of tries first.
func broadcast(remoteUDPPort, localTCPPort uint16, stop <-chan struct{}, exhausted chan<- struct{}, bus *events.Bus) {
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{Port: 0})
	if err != nil {
		bus.Send(events.Error(err.Error()))
		close(exhausted)
		return
	}
	defer conn.Close()

	if err := enableBroadcast(conn); err != nil {
		bus.Send(events.Error(err.Error()))
		close(exhausted)
		return
	}

	dst := &net.UDPAddr{IP: net.IPv4bcast, Port: int(remoteUDPPort)}
	payload := []byte{byte(localTCPPort >> 8), byte(localTCPPort)}

	for i := 0; i < broadcastTries; i++ {
		select {
		case <-stop:
			return
		default:
		}

		if _, err := conn.WriteToUDP(payload, dst); err != nil {
			bus.Send(events.Error(err.Error()))
		}

		if i == broadcastTries-1 {
			break
		}
		select {
		case <-stop:
			return
		case <-time.After(broadcastGap):
		}
	}
	close(exhausted)
}

// enableBroadcast sets SO_BROADCAST on conn's underlying socket. The
// standard library has no portable broadcast toggle, so this drops to
// a direct setsockopt via the duplicated file descriptor.
func enableBroadcast(conn *net.UDPConn) error {
	f, err := conn.File()
	if err != nil {
		return err
	}
	defer f.Close()
	return syscall.SetsockoptInt(int(f.Fd()), syscall.SOL_SOCKET, syscall.SO_BROADCAST, 1)
}
