// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

// Package wrappers provides the little-endian byte packer/unpacker the
// wire codec is built on: an accumulating []byte plus a sticky Err so a
// long chain of Pack calls doesn't need a check after every one.
package wrappers

import "errors"

// ErrShortBuffer is returned by an Unpacker read that would run past
// the end of the buffer.
var ErrShortBuffer = errors.New("short buffer")

// Packer accumulates a little-endian byte stream. Once Err is set, every
// further Pack* call is a no-op; callers check Err once at the end.
type Packer struct {
	Bytes []byte
	Err   error
}

// NewPacker returns a new Packer with size bytes of pre-allocated capacity.
func NewPacker(size int) *Packer {
	return &Packer{Bytes: make([]byte, 0, size)}
}

// PackByte appends a single byte.
func (p *Packer) PackByte(b byte) {
	if p.Err != nil {
		return
	}
	p.Bytes = append(p.Bytes, b)
}

// PackBytes appends raw bytes verbatim.
func (p *Packer) PackBytes(b []byte) {
	if p.Err != nil {
		return
	}
	p.Bytes = append(p.Bytes, b...)
}

// PackUint32 appends a little-endian uint32.
func (p *Packer) PackUint32(v uint32) {
	if p.Err != nil {
		return
	}
	p.Bytes = append(p.Bytes, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// PackInt32 appends a little-endian int32.
func (p *Packer) PackInt32(v int32) {
	p.PackUint32(uint32(v))
}

// PackUint64 appends a little-endian uint64.
func (p *Packer) PackUint64(v uint64) {
	if p.Err != nil {
		return
	}
	p.Bytes = append(p.Bytes,
		byte(v), byte(v>>8), byte(v>>16), byte(v>>24),
		byte(v>>32), byte(v>>40), byte(v>>48), byte(v>>56))
}

// PackUint16 appends a little-endian uint16.
func (p *Packer) PackUint16(v uint16) {
	if p.Err != nil {
		return
	}
	p.Bytes = append(p.Bytes, byte(v), byte(v>>8))
}

// PackString appends a uint16 length prefix followed by the string's bytes.
func (p *Packer) PackString(s string) {
	if p.Err != nil {
		return
	}
	if len(s) > 0xFFFF {
		p.Err = errors.New("string too long to pack")
		return
	}
	p.PackUint16(uint16(len(s)))
	p.PackBytes([]byte(s))
}

// Unpacker reads sequentially from a little-endian byte stream, setting
// Err (ErrShortBuffer) the first time a read would overrun the buffer;
// every subsequent read is then a no-op returning the zero value.
type Unpacker struct {
	Bytes  []byte
	Offset int
	Err    error
}

// NewUnpacker wraps b for sequential little-endian reads.
func NewUnpacker(b []byte) *Unpacker {
	return &Unpacker{Bytes: b}
}

func (u *Unpacker) need(n int) bool {
	if u.Err != nil {
		return false
	}
	if u.Offset+n > len(u.Bytes) {
		u.Err = ErrShortBuffer
		return false
	}
	return true
}

// UnpackByte reads a single byte.
func (u *Unpacker) UnpackByte() byte {
	if !u.need(1) {
		return 0
	}
	b := u.Bytes[u.Offset]
	u.Offset++
	return b
}

// UnpackBytes reads n raw bytes.
func (u *Unpacker) UnpackBytes(n int) []byte {
	if !u.need(n) {
		return nil
	}
	b := u.Bytes[u.Offset : u.Offset+n]
	u.Offset += n
	return b
}

// UnpackUint16 reads a little-endian uint16.
func (u *Unpacker) UnpackUint16() uint16 {
	if !u.need(2) {
		return 0
	}
	v := uint16(u.Bytes[u.Offset]) | uint16(u.Bytes[u.Offset+1])<<8
	u.Offset += 2
	return v
}

// UnpackUint32 reads a little-endian uint32.
func (u *Unpacker) UnpackUint32() uint32 {
	if !u.need(4) {
		return 0
	}
	b := u.Bytes[u.Offset:]
	v := uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	u.Offset += 4
	return v
}

// UnpackInt32 reads a little-endian int32.
func (u *Unpacker) UnpackInt32() int32 {
	return int32(u.UnpackUint32())
}

// UnpackUint64 reads a little-endian uint64.
func (u *Unpacker) UnpackUint64() uint64 {
	if !u.need(8) {
		return 0
	}
	b := u.Bytes[u.Offset:]
	v := uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16 | uint64(b[3])<<24 |
		uint64(b[4])<<32 | uint64(b[5])<<40 | uint64(b[6])<<48 | uint64(b[7])<<56
	u.Offset += 8
	return v
}

// UnpackString reads a uint16 length prefix followed by that many bytes.
func (u *Unpacker) UnpackString() string {
	n := int(u.UnpackUint16())
	b := u.UnpackBytes(n)
	return string(b)
}

// Done reports whether every byte in the buffer has been consumed
// without error.
func (u *Unpacker) Done() bool {
	return u.Err == nil && u.Offset == len(u.Bytes)
}
