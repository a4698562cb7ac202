package transfer

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shorthop/shorthop/internal/config"
	"github.com/shorthop/shorthop/internal/events"
)

// connectedPair returns both ends of a loopback TCP connection for the
// Sender/Receiver pair under test: both ends run concurrently, and TCP
// buffers whatever one side writes ahead of the other's reads.
func connectedPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	serverCh := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		require.NoError(t, err)
		serverCh <- conn
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	return client, <-serverCh
}

func TestSendSingleFileEndToEnd(t *testing.T) {
	srcDir := t.TempDir()
	dstDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "hello.txt")
	require.NoError(t, os.WriteFile(srcPath, []byte("Hello world\n"), 0o644))

	senderConn, receiverConn := connectedPair(t)
	defer senderConn.Close()
	defer receiverConn.Close()

	senderBus := events.NewBus()
	receiverBus := events.NewBus()
	go drain(senderBus)
	go drain(receiverBus)

	recvCfg := config.RecvConfig{Dir: dstDir, Overwrite: config.Overwrite}
	receiver := NewReceiver(receiverConn, recvCfg, receiverBus, nil)

	recvDone := make(chan error, 1)
	go func() { recvDone <- receiver.Run() }()

	sendCfg := config.SendConfig{Files: []string{srcPath}}
	sender := NewSender(senderConn, senderBus)
	require.NoError(t, sender.Run(sendCfg))

	require.NoError(t, <-recvDone)

	got, err := os.ReadFile(filepath.Join(dstDir, "hello.txt"))
	require.NoError(t, err)
	require.Equal(t, "Hello world\n", string(got))
}

func TestSendDirectoryEndToEnd(t *testing.T) {
	srcRoot := t.TempDir()
	dstDir := t.TempDir()
	nested := filepath.Join(srcRoot, "sub")
	require.NoError(t, os.Mkdir(nested, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(nested, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(srcRoot, "b.txt"), []byte("b"), 0o644))

	senderConn, receiverConn := connectedPair(t)
	defer senderConn.Close()
	defer receiverConn.Close()

	senderBus := events.NewBus()
	receiverBus := events.NewBus()
	go drain(senderBus)
	go drain(receiverBus)

	recvCfg := config.RecvConfig{Dir: dstDir, Overwrite: config.Overwrite}
	receiver := NewReceiver(receiverConn, recvCfg, receiverBus, nil)

	recvDone := make(chan error, 1)
	go func() { recvDone <- receiver.Run() }()

	sendCfg := config.SendConfig{Files: []string{srcRoot}}
	sender := NewSender(senderConn, senderBus)
	require.NoError(t, sender.Run(sendCfg))

	require.NoError(t, <-recvDone)

	base := filepath.Base(srcRoot)
	got, err := os.ReadFile(filepath.Join(dstDir, base, "b.txt"))
	require.NoError(t, err)
	require.Equal(t, "b", string(got))

	got, err = os.ReadFile(filepath.Join(dstDir, base, "sub", "a.txt"))
	require.NoError(t, err)
	require.Equal(t, "a", string(got))
}

func TestSendMessageEndToEnd(t *testing.T) {
	dstDir := t.TempDir()

	senderConn, receiverConn := connectedPair(t)
	defer senderConn.Close()
	defer receiverConn.Close()

	senderBus := events.NewBus()
	receiverBus := events.NewBus()

	var gotStatus []string
	statusDone := make(chan struct{})
	go func() {
		defer close(statusDone)
		for ev := range receiverBus.Events() {
			if ev.Kind == events.KindStatus {
				gotStatus = append(gotStatus, ev.Text)
			}
		}
	}()
	go drain(senderBus)

	recvCfg := config.RecvConfig{Dir: dstDir, Overwrite: config.Overwrite}
	receiver := NewReceiver(receiverConn, recvCfg, receiverBus, nil)

	recvDone := make(chan error, 1)
	go func() { recvDone <- receiver.Run() }()

	sendCfg := config.SendConfig{Message: "hi there"}
	sender := NewSender(senderConn, senderBus)
	require.NoError(t, sender.Run(sendCfg))
	require.NoError(t, <-recvDone)

	found := false
	for _, s := range gotStatus {
		if s == `Message received: "hi there"` {
			found = true
		}
	}
	require.True(t, found)
}

// drain discards every event on bus so Send never blocks, mimicking a
// UI that isn't under test.
func drain(bus *events.Bus) {
	for range bus.Events() {
	}
}
