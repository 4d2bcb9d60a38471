package wire

import "encoding/binary"

// bufferSlack leaves room behind the packet boundary so a pack attempt may
// complete before the overflow check rolls it back.
const bufferSlack = MaxChatLength + 16

// Buffer is a bounded datagram assembly window with consume and append
// cursors. Appends that would push the packet past MaxPacketLength fail as a
// recoverable signal; the caller flushes and retries into a fresh buffer.
type Buffer struct {
	data       [MaxPacketLength + bufferSlack]byte
	start, end int
	overflowed bool
}

// Reset empties the buffer for reuse.
func (b *Buffer) Reset() {
	b.start, b.end = 0, 0
	b.overflowed = false
}

// Bytes returns the assembled datagram payload.
func (b *Buffer) Bytes() []byte { return b.data[:b.end] }

// Len returns the number of assembled bytes.
func (b *Buffer) Len() int { return b.end }

// SetPayload loads a received datagram for consumption. Oversized input is
// rejected.
func (b *Buffer) SetPayload(p []byte) bool {
	if len(p) > len(b.data) {
		return false
	}
	b.Reset()
	copy(b.data[:], p)
	b.end = len(p)
	return true
}

// HasData reports whether the buffer carries anything beyond the header.
func (b *Buffer) HasData() bool { return b.end > b.start+HeaderLength }

// UpdateCapacity returns how many records of recordLen bytes still fit after
// one more update header.
func (b *Buffer) UpdateCapacity(recordLen int) int {
	i := b.end + UpdateHeaderLength
	if i >= MaxPacketLength || recordLen <= 0 {
		return 0
	}
	return (MaxPacketLength - i) / recordLen
}

// PutRecord runs fn and keeps its appends only when the packet boundary is
// respected; otherwise the write is rolled back and false is returned.
func (b *Buffer) PutRecord(fn func(b *Buffer)) bool {
	mark := b.end
	b.overflowed = false
	fn(b)
	if b.overflowed || b.end > MaxPacketLength {
		b.end = mark
		b.overflowed = false
		return false
	}
	return true
}

func (b *Buffer) room(n int) bool {
	if b.end+n > len(b.data) {
		b.overflowed = true
		return false
	}
	return true
}

// PutU8 appends a byte.
func (b *Buffer) PutU8(v uint8) {
	if !b.room(1) {
		return
	}
	b.data[b.end] = v
	b.end++
}

// PutU16 appends a little-endian uint16.
func (b *Buffer) PutU16(v uint16) {
	if !b.room(2) {
		return
	}
	binary.LittleEndian.PutUint16(b.data[b.end:], v)
	b.end += 2
}

// PutU32 appends a little-endian uint32.
func (b *Buffer) PutU32(v uint32) {
	if !b.room(4) {
		return
	}
	binary.LittleEndian.PutUint32(b.data[b.end:], v)
	b.end += 4
}

// PutI16 appends a little-endian int16.
func (b *Buffer) PutI16(v int16) { b.PutU16(uint16(v)) }

// PutID appends an identifier as generation followed by slot index.
func (b *Buffer) PutID(id Id) {
	b.PutU16(id.Gen)
	b.PutU16(id.N)
}

// PutString appends a length byte followed by the raw bytes. Strings longer
// than 255 bytes are truncated to the wire limit.
func (b *Buffer) PutString(s string) {
	if len(s) > 255 {
		s = s[:255]
	}
	b.PutU8(uint8(len(s)))
	if !b.room(len(s)) {
		return
	}
	copy(b.data[b.end:], s)
	b.end += len(s)
}

// GetU8 consumes a byte.
func (b *Buffer) GetU8() (uint8, bool) {
	if b.start+1 > b.end {
		return 0, false
	}
	v := b.data[b.start]
	b.start++
	return v, true
}

// GetU16 consumes a little-endian uint16.
func (b *Buffer) GetU16() (uint16, bool) {
	if b.start+2 > b.end {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(b.data[b.start:])
	b.start += 2
	return v, true
}

// GetU32 consumes a little-endian uint32.
func (b *Buffer) GetU32() (uint32, bool) {
	if b.start+4 > b.end {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(b.data[b.start:])
	b.start += 4
	return v, true
}

// GetI16 consumes a little-endian int16.
func (b *Buffer) GetI16() (int16, bool) {
	v, ok := b.GetU16()
	return int16(v), ok
}

// GetID consumes an identifier.
func (b *Buffer) GetID() (Id, bool) {
	gen, ok := b.GetU16()
	if !ok {
		return Id{}, false
	}
	n, ok := b.GetU16()
	if !ok {
		return Id{}, false
	}
	return Id{N: n, Gen: gen}, true
}

// GetString consumes a length-prefixed string into owned storage.
func (b *Buffer) GetString() (string, bool) {
	n, ok := b.GetU8()
	if !ok {
		return "", false
	}
	if b.start+int(n) > b.end {
		return "", false
	}
	s := string(b.data[b.start : b.start+int(n)])
	b.start += int(n)
	return s, true
}
