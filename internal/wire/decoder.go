package wire

import (
	"encoding/binary"
	"fmt"
)

// Decoder reads wire-format arguments out of a message body in order.
// Fds are not read from Args; they're drawn off the side channel the
// transport delivered alongside the message.
type Decoder struct {
	buf []byte
	pos int
	fds []int
}

func NewDecoder(args []byte, fds []int) *Decoder {
	return &Decoder{buf: args, fds: fds}
}

func (d *Decoder) require(n int) error {
	if d.pos+n > len(d.buf) {
		return fmt.Errorf("wire: decode past end of message (need %d bytes at offset %d, have %d)", n, d.pos, len(d.buf))
	}
	return nil
}

func (d *Decoder) Uint32() (uint32, error) {
	if err := d.require(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(d.buf[d.pos:])
	d.pos += 4
	return v, nil
}

func (d *Decoder) Int32() (int32, error) {
	v, err := d.Uint32()
	return int32(v), err
}

// Fixed decodes a 24.8 signed fixed-point number into a float64.
func (d *Decoder) Fixed() (float64, error) {
	v, err := d.Int32()
	if err != nil {
		return 0, err
	}
	return float64(v) / 256.0, nil
}

func (d *Decoder) String() (string, error) {
	n, err := d.Uint32()
	if err != nil {
		return "", err
	}
	length := int(n)
	if length == 0 {
		return "", nil
	}
	if err := d.require(align4(length)); err != nil {
		return "", err
	}
	// length includes the trailing NUL.
	s := string(d.buf[d.pos : d.pos+length-1])
	d.pos += align4(length)
	return s, nil
}

func (d *Decoder) Array() ([]byte, error) {
	n, err := d.Uint32()
	if err != nil {
		return nil, err
	}
	length := int(n)
	if err := d.require(align4(length)); err != nil {
		return nil, err
	}
	out := d.buf[d.pos : d.pos+length]
	d.pos += align4(length)
	return out, nil
}

// Object decodes a referenced object id. Zero means "null".
func (d *Decoder) Object() (uint32, error) {
	return d.Uint32()
}

// NewID decodes a newly allocated object id for an unversioned request
// (the common case; wl_registry.bind additionally encodes interface name
// and version inline as string+uint, decoded with String/Uint32 first).
func (d *Decoder) NewID() (uint32, error) {
	return d.Uint32()
}

// Fd pulls the next file descriptor off the side channel, in the order
// the sender attached them.
func (d *Decoder) Fd() (int, error) {
	if len(d.fds) == 0 {
		return -1, fmt.Errorf("wire: no more file descriptors available to decode")
	}
	fd := d.fds[0]
	d.fds = d.fds[1:]
	return fd, nil
}

func (d *Decoder) Remaining() int {
	return len(d.buf) - d.pos
}
