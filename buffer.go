package apqos

// buffer.go holds the bounded FIFO that models the access point egress queue.
// Admitted packets sit in a ring that grows on demand up to the buffer capacity;
// there is no operation that reorders or removes anything but the head.

import (
	"errors"
	"fmt"
)

// AdmitResult reports the outcome of presenting a packet to the buffer
type AdmitResult int

const (
	Admitted AdmitResult = iota
	Dropped
)

var arToStr map[AdmitResult]string = map[AdmitResult]string{Admitted: "admitted", Dropped: "dropped"}

func (ar AdmitResult) String() string {
	return arToStr[ar]
}

// ErrInvalidCapacity is returned for a negative buffer capacity
var ErrInvalidCapacity = errors.New("buffer capacity must be non-negative")

// initial ring size, before any growth
const minRingLen = 16

// Buffer is a capacity limited FIFO of buffered packets
type Buffer struct {
	capacity int              // most packets held at once
	ring     []BufferedPacket // storage, len(ring) <= capacity once grown
	head     int              // index of the oldest packet in ring
	count    int              // number of packets held
}

// CreateBuffer is a constructor.  Storage is allocated lazily so that
// a large capacity costs nothing until packets actually queue up
func CreateBuffer(capacity int) (*Buffer, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	buf := new(Buffer)
	buf.capacity = capacity
	buf.ring = make([]BufferedPacket, min(capacity, minRingLen))
	return buf, nil
}

// Cap returns the capacity the buffer was created with
func (buf *Buffer) Cap() int {
	return buf.capacity
}

// Len returns the number of packets currently held
func (buf *Buffer) Len() int {
	return buf.count
}

// TryAdmit appends bp to the tail, or reports Dropped if the
// buffer already holds capacity packets
func (buf *Buffer) TryAdmit(bp BufferedPacket) AdmitResult {
	if buf.count == buf.capacity {
		return Dropped
	}
	if buf.count == len(buf.ring) {
		buf.grow()
	}
	buf.ring[(buf.head+buf.count)%len(buf.ring)] = bp
	buf.count += 1
	return Admitted
}

// PeekHead returns a pointer to the oldest packet, which stays owned by the buffer
func (buf *Buffer) PeekHead() (*BufferedPacket, bool) {
	if buf.count == 0 {
		return nil, false
	}
	return &buf.ring[buf.head], true
}

// PopHead removes and returns the oldest packet.  Calling it on an
// empty buffer is a programming error
func (buf *Buffer) PopHead() BufferedPacket {
	if buf.count == 0 {
		panic("PopHead on empty buffer")
	}
	bp := buf.ring[buf.head]
	buf.ring[buf.head] = BufferedPacket{}
	buf.head = (buf.head + 1) % len(buf.ring)
	buf.count -= 1
	return bp
}

// grow doubles the ring, never past capacity, unwrapping the contents to start at 0
func (buf *Buffer) grow() {
	newLen := min(max(2*len(buf.ring), minRingLen), buf.capacity)
	ring := make([]BufferedPacket, newLen)
	n := copy(ring, buf.ring[buf.head:])
	copy(ring[n:], buf.ring[:buf.head])
	buf.ring = ring
	buf.head = 0
}
