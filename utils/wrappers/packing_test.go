// Copyright (C) 2020-2026, go-crush Authors. All rights reserved.
// See the file LICENSE for licensing terms.

package wrappers

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackUnpackRoundTrip(t *testing.T) {
	p := NewPacker(0)
	p.PackByte(0x7f)
	p.PackBytes([]byte{1, 2, 3})
	p.PackUint16(0xBEEF)
	p.PackUint32(0xDEADBEEF)
	p.PackInt32(-42)
	p.PackUint64(0x0102030405060708)
	p.PackString("crush")
	require.NoError(t, p.Err)

	u := NewUnpacker(p.Bytes)
	require.Equal(t, byte(0x7f), u.UnpackByte())
	require.Equal(t, []byte{1, 2, 3}, u.UnpackBytes(3))
	require.Equal(t, uint16(0xBEEF), u.UnpackUint16())
	require.Equal(t, uint32(0xDEADBEEF), u.UnpackUint32())
	require.Equal(t, int32(-42), u.UnpackInt32())
	require.Equal(t, uint64(0x0102030405060708), u.UnpackUint64())
	require.Equal(t, "crush", u.UnpackString())
	require.NoError(t, u.Err)
	require.True(t, u.Done())
}

func TestPackUint32IsLittleEndian(t *testing.T) {
	p := NewPacker(4)
	p.PackUint32(0x01020304)
	require.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, p.Bytes)
}

func TestPackUint64IsLittleEndian(t *testing.T) {
	p := NewPacker(8)
	p.PackUint64(0x0102030405060708)
	require.Equal(t, []byte{0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}, p.Bytes)
}

func TestPackStringTooLong(t *testing.T) {
	p := NewPacker(0)
	p.PackString(string(make([]byte, 0x10000)))
	require.Error(t, p.Err)

	// Further Pack calls after an error become no-ops.
	before := len(p.Bytes)
	p.PackByte(1)
	require.Equal(t, before, len(p.Bytes))
}

func TestUnpackShortBufferSetsErrAndStaysZero(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		read func(u *Unpacker)
	}{
		{name: "byte", data: nil, read: func(u *Unpacker) { u.UnpackByte() }},
		{name: "uint16", data: []byte{1}, read: func(u *Unpacker) { u.UnpackUint16() }},
		{name: "uint32", data: []byte{1, 2, 3}, read: func(u *Unpacker) { u.UnpackUint32() }},
		{name: "uint64", data: []byte{1, 2, 3, 4, 5, 6, 7}, read: func(u *Unpacker) { u.UnpackUint64() }},
		{name: "bytes", data: []byte{1, 2}, read: func(u *Unpacker) { u.UnpackBytes(3) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := NewUnpacker(tt.data)
			tt.read(u)
			require.ErrorIs(t, u.Err, ErrShortBuffer)
			require.False(t, u.Done())
		})
	}
}

func TestUnpackAfterErrorStaysAtZero(t *testing.T) {
	u := NewUnpacker([]byte{1, 2})
	require.Equal(t, uint32(0), u.UnpackUint32())
	require.ErrorIs(t, u.Err, ErrShortBuffer)

	// Offset must not advance once Err is set, and further reads
	// keep returning the zero value rather than panicking.
	require.Equal(t, byte(0), u.UnpackByte())
	require.Equal(t, "", u.UnpackString())
	require.Equal(t, 0, u.Offset)
}

func TestDoneFalseWithTrailingBytes(t *testing.T) {
	u := NewUnpacker([]byte{1, 2, 3})
	u.UnpackByte()
	require.False(t, u.Done())
}
