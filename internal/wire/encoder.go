package wire

import "encoding/binary"

// Encoder builds the argument body of one outgoing message plus any file
// descriptors that must ride along in ancillary data.
type Encoder struct {
	buf []byte
	fds []int
}

func NewEncoder() *Encoder {
	return &Encoder{}
}

func (e *Encoder) Uint32(v uint32) *Encoder {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
	return e
}

func (e *Encoder) Int32(v int32) *Encoder {
	return e.Uint32(uint32(v))
}

// Fixed encodes a float64 as a 24.8 signed fixed-point number.
func (e *Encoder) Fixed(v float64) *Encoder {
	return e.Int32(int32(v * 256.0))
}

func (e *Encoder) String(s string) *Encoder {
	n := len(s) + 1 // trailing NUL
	e.Uint32(uint32(n))
	e.buf = append(e.buf, s...)
	e.buf = append(e.buf, 0)
	pad := align4(n) - n
	e.buf = append(e.buf, make([]byte, pad)...)
	return e
}

func (e *Encoder) Array(data []byte) *Encoder {
	e.Uint32(uint32(len(data)))
	e.buf = append(e.buf, data...)
	pad := align4(len(data)) - len(data)
	e.buf = append(e.buf, make([]byte, pad)...)
	return e
}

func (e *Encoder) Object(id uint32) *Encoder {
	return e.Uint32(id)
}

func (e *Encoder) NewID(id uint32) *Encoder {
	return e.Uint32(id)
}

// Fd queues a file descriptor for ancillary-data transmission alongside
// this message. It does not occupy space in the argument body.
func (e *Encoder) Fd(fd int) *Encoder {
	e.fds = append(e.fds, fd)
	return e
}

// Build assembles the complete message: an 8-byte header followed by the
// encoded arguments, ready for Conn.WriteMessage.
func (e *Encoder) Build(sender uint32, opcode uint16) *Message {
	size := uint16(8 + len(e.buf))
	return &Message{
		Header: Header{Sender: sender, Opcode: opcode, Size: size},
		Args:   e.buf,
		Fds:    e.fds,
	}
}
