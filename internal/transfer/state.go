// Package transfer implements the sender-driven and receiver-driven
// transfer state machines (spec.md §4.4–§4.6): the Connect handshake,
// the Sender's StartSendFile/SendFileContent/EndSendFile/StartSendDir/
// EndSendDir/SendMsg/Disconnect driver loop, and the Receiver's dispatch
// loop and file descriptor lifecycle.
package transfer

import (
	"net"
	"os"
	"sync"
)

// CurrentFile is the Receiver's handle to the in-progress file
// (spec.md §3). fd is non-nil exactly between a successful
// StartSendFile and its EndSendFile.
type CurrentFile struct {
	fd          *os.File
	Path        string
	Name        string
	Size        uint64
	Transmitted uint64
}

// Active reports whether a file descriptor is currently open.
func (c *CurrentFile) Active() bool { return c.fd != nil }

// Open assigns fd, path, name and size to start tracking a new file.
func (c *CurrentFile) Open(fd *os.File, path, name string, size uint64) {
	c.fd = fd
	c.Path = path
	c.Name = name
	c.Size = size
	c.Transmitted = 0
}

// Write appends b to the open file descriptor and advances
// Transmitted. Callers must check Active first.
func (c *CurrentFile) Write(b []byte) error {
	if _, err := c.fd.Write(b); err != nil {
		return err
	}
	c.Transmitted += uint64(len(b))
	return nil
}

// Close closes the descriptor (if any) and resets the struct to its
// zero value, releasing the fd the way EndSendFile or a session abort
// must (spec.md §3 "Ownership & lifecycle").
func (c *CurrentFile) Close() error {
	var err error
	if c.fd != nil {
		err = c.fd.Close()
	}
	*c = CurrentFile{}
	return err
}

// BlackList is the Sender-side set of peer sockets that have refused a
// handshake this session (spec.md §3, §5 "Shared state policy"). It is
// instance-scoped per session rather than a package global, so tests
// (and concurrent sessions in the same process) each get a fresh set.
type BlackList struct {
	mu      sync.Mutex
	sockets map[string]struct{}
}

// NewBlackList returns an empty BlackList.
func NewBlackList() *BlackList {
	return &BlackList{sockets: make(map[string]struct{})}
}

// Contains reports whether addr has already refused a handshake.
func (b *BlackList) Contains(addr net.Addr) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.sockets[addr.String()]
	return ok
}

// Add records addr as refused.
func (b *BlackList) Add(addr net.Addr) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sockets[addr.String()] = struct{}{}
}

// IdCounter is the Sender's monotonic instruction id (spec.md §3). It
// begins at 1 (id 0 is reserved for the handshake) and wraps 1→MAX→1,
// skipping 0.
type IdCounter struct {
	mu  sync.Mutex
	cur uint16
}

// NewIDCounter returns a counter starting at 1.
func NewIDCounter() *IdCounter {
	return &IdCounter{cur: 1}
}

// Current returns the id to use for the next request, without
// advancing it.
func (c *IdCounter) Current() uint16 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

// Advance moves the counter to the next id, to be called after a
// request has been sent (spec.md §4.5: "id advances by 1 after
// sending; wrap-around skips 0").
func (c *IdCounter) Advance() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == 65535 {
		c.cur = 1
	} else {
		c.cur++
	}
}
