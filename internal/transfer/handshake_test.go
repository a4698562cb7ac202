package transfer

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shorthop/shorthop/internal/wire"
)

func TestHandshakeNoPasswordAccepts(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan error, 1)
	go func() { done <- SenderHandshake(client, "") }()

	accepted, err := tryAccept(server, "")
	require.NoError(t, err)
	require.True(t, accepted)
	require.NoError(t, <-done)
}

func TestHandshakePasswordMatchAccepts(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan error, 1)
	go func() { done <- SenderHandshake(client, "abc") }()

	accepted, err := tryAccept(server, "abc")
	require.NoError(t, err)
	require.True(t, accepted)
	require.NoError(t, <-done)
}

func TestHandshakePasswordMismatchRefuses(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	done := make(chan error, 1)
	go func() { done <- SenderHandshake(client, "wrong") }()

	accepted, err := tryAccept(server, "abc")
	require.NoError(t, err)
	require.False(t, accepted)

	err = <-done
	require.Error(t, err)
	require.ErrorIs(t, err, ErrRefused)
}

func TestReceiverAcceptClosesNonConnectFirstInstruction(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ReceiverAccept(ln, "")
		require.NoError(t, err)
		accepted <- conn
	}()

	bad, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	require.NoError(t, wire.SendIns(bad, 0, wire.SendMsg, []byte("not a connect")))
	bad.Close()

	good, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer good.Close()
	require.NoError(t, SenderHandshake(good, ""))

	conn := <-accepted
	defer conn.Close()
	require.NotNil(t, conn)
}

// TestReceiverAcceptClosesRefusedConnection guards against the
// refused-but-no-error path leaking the TCP connection: ReceiverAccept
// must close a refused candidate's socket before it keeps listening,
// not just a candidate whose first instruction errored outright.
func TestReceiverAcceptClosesRefusedConnection(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		conn, err := ReceiverAccept(ln, "abc")
		require.NoError(t, err)
		accepted <- conn
	}()

	refused, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer refused.Close()
	err = SenderHandshake(refused, "wrong")
	require.Error(t, err)
	require.ErrorIs(t, err, ErrRefused)

	// The server must have closed its end of the refused connection;
	// a further read sees EOF rather than hanging.
	buf := make([]byte, 1)
	_, readErr := refused.Read(buf)
	require.ErrorIs(t, readErr, io.EOF)

	good, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer good.Close()
	require.NoError(t, SenderHandshake(good, "abc"))

	conn := <-accepted
	defer conn.Close()
	require.NotNil(t, conn)
}
