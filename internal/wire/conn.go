package wire

import (
	"encoding/binary"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// maxFdsPerMessage bounds how many descriptors one recvmsg call will
// accept; Wayland messages never carry more than a handful (buffers,
// keymaps), so this is generous headroom rather than a protocol limit.
const maxFdsPerMessage = 28

// Conn is one client's wire-protocol connection: a UNIX stream socket
// carrying framed messages, with SCM_RIGHTS used to pass shared-memory
// and DMA-BUF descriptors inline with the message that names them.
type Conn struct {
	uc  *net.UnixConn
	raw rawConn
}

type rawConn interface {
	Read(b []byte) (int, []int, error)
	Write(b []byte, fds []int) error
	Close() error
}

func NewConn(uc *net.UnixConn) (*Conn, error) {
	r, err := newSyscallConn(uc)
	if err != nil {
		return nil, err
	}
	return &Conn{uc: uc, raw: r}, nil
}

func (c *Conn) Close() error {
	return c.raw.Close()
}

// Fd returns the underlying socket descriptor. Client sockets are read by
// a blocking goroutine, not registered with epoll.
func (c *Conn) Fd() (int, error) {
	raw, err := c.uc.SyscallConn()
	if err != nil {
		return -1, err
	}
	var fd int
	ctrlErr := raw.Control(func(f uintptr) { fd = int(f) })
	if ctrlErr != nil {
		return -1, ctrlErr
	}
	return fd, nil
}

// ReadMessage reads exactly one framed message, blocking until the header
// and its full body (and any attached fds) have arrived.
func (c *Conn) ReadMessage() (*Message, error) {
	header := make([]byte, 8)
	fds, err := c.readFull(header)
	if err != nil {
		return nil, err
	}
	sender := binary.LittleEndian.Uint32(header[0:4])
	opcodeSize := binary.LittleEndian.Uint32(header[4:8])
	opcode := uint16(opcodeSize & 0xffff)
	size := uint16(opcodeSize >> 16)
	if int(size) < 8 {
		return nil, fmt.Errorf("wire: message size %d smaller than header", size)
	}

	body := make([]byte, int(size)-8)
	moreFds, err := c.readFull(body)
	if err != nil {
		return nil, err
	}
	fds = append(fds, moreFds...)

	return &Message{
		Header: Header{Sender: sender, Opcode: opcode, Size: size},
		Args:   body,
		Fds:    fds,
	}, nil
}

func (c *Conn) readFull(buf []byte) ([]int, error) {
	var fds []int
	for read := 0; read < len(buf); {
		n, newFds, err := c.raw.Read(buf[read:])
		if err != nil {
			return fds, err
		}
		if n == 0 {
			return fds, fmt.Errorf("wire: connection closed mid-message")
		}
		fds = append(fds, newFds...)
		read += n
	}
	return fds, nil
}

// WriteMessage writes a complete framed message, attaching any fds via
// SCM_RIGHTS on the first write syscall of the message.
func (c *Conn) WriteMessage(msg *Message) error {
	header := make([]byte, 8)
	binary.LittleEndian.PutUint32(header[0:4], msg.Header.Sender)
	opcodeSize := uint32(msg.Header.Opcode) | uint32(msg.Header.Size)<<16
	binary.LittleEndian.PutUint32(header[4:8], opcodeSize)

	payload := append(header, msg.Args...)
	return c.raw.Write(payload, msg.Fds)
}

func newSyscallConn(uc *net.UnixConn) (rawConn, error) {
	return &fdConn{uc: uc}, nil
}

// fdConn wraps *net.UnixConn's ReadMsgUnix/WriteMsgUnix, which already
// know how to carry OOB (ancillary) data without us touching raw fds.
type fdConn struct {
	uc *net.UnixConn
}

func (f *fdConn) Read(b []byte) (int, []int, error) {
	oob := make([]byte, unix.CmsgSpace(maxFdsPerMessage*4))
	n, oobn, _, _, err := f.uc.ReadMsgUnix(b, oob)
	if err != nil {
		return n, nil, err
	}
	fds, ferr := parseFds(oob[:oobn])
	if ferr != nil {
		return n, nil, ferr
	}
	return n, fds, nil
}

func (f *fdConn) Write(b []byte, fds []int) error {
	var oob []byte
	if len(fds) > 0 {
		oob = unix.UnixRights(fds...)
	}
	_, _, err := f.uc.WriteMsgUnix(b, oob, nil)
	return err
}

func (f *fdConn) Close() error {
	return f.uc.Close()
}

func parseFds(oob []byte) ([]int, error) {
	if len(oob) == 0 {
		return nil, nil
	}
	cmsgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, fmt.Errorf("wire: parse control message: %w", err)
	}
	var fds []int
	for _, cmsg := range cmsgs {
		got, err := unix.ParseUnixRights(&cmsg)
		if err != nil {
			continue
		}
		fds = append(fds, got...)
	}
	return fds, nil
}
