// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"github.com/Thermoquad/hydrostat/pkg/aqualink"
)

// DefaultQueueCapacity is the user command queue size when none is configured.
const DefaultQueueCapacity = 10

// CommandQueue is a bounded FIFO of pending user commands. When full, a
// push evicts the oldest entry. Not safe for concurrent use; the Scheduler
// guards it with its own lock.
type CommandQueue struct {
	buf  []*aqualink.Packet
	head int
	size int
}

// NewCommandQueue creates a queue holding at most capacity commands.
func NewCommandQueue(capacity int) *CommandQueue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &CommandQueue{buf: make([]*aqualink.Packet, capacity)}
}

// Push appends p. It reports whether the oldest entry was evicted to make room.
func (q *CommandQueue) Push(p *aqualink.Packet) (evicted bool) {
	if q.size == len(q.buf) {
		q.Pop()
		evicted = true
	}
	q.buf[(q.head+q.size)%len(q.buf)] = p
	q.size++
	return evicted
}

// Peek returns the head without removing it.
func (q *CommandQueue) Peek() (*aqualink.Packet, bool) {
	if q.size == 0 {
		return nil, false
	}
	return q.buf[q.head], true
}

// Pop removes and returns the head.
func (q *CommandQueue) Pop() (*aqualink.Packet, bool) {
	if q.size == 0 {
		return nil, false
	}
	p := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % len(q.buf)
	q.size--
	return p, true
}

// Len returns the number of queued commands.
func (q *CommandQueue) Len() int {
	return q.size
}

// MeasurementRing is the fixed polling cycle. It never empties or grows;
// Advance rotates to the next entry. Not safe for concurrent use.
type MeasurementRing struct {
	entries []*aqualink.Packet
	pos     int
}

// NewMeasurementRing creates a ring over the given entries, in order.
func NewMeasurementRing(entries ...*aqualink.Packet) *MeasurementRing {
	if len(entries) == 0 {
		panic("link: measurement ring needs at least one entry")
	}
	return &MeasurementRing{entries: entries}
}

// DefaultMeasurementRing polls probes, then EC, then pH.
func DefaultMeasurementRing() *MeasurementRing {
	return NewMeasurementRing(
		aqualink.NewOwiMeasure(),
		aqualink.NewEcMeasure(),
		aqualink.NewPhMeasure(),
	)
}

// Current returns the entry that will be sent next.
func (r *MeasurementRing) Current() *aqualink.Packet {
	return r.entries[r.pos]
}

// Advance moves to the next entry, wrapping at the end.
func (r *MeasurementRing) Advance() {
	r.pos = (r.pos + 1) % len(r.entries)
}

// Len returns the number of entries in the ring.
func (r *MeasurementRing) Len() int {
	return len(r.entries)
}
