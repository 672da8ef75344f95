// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"io"
	"sync"
	"time"
)

// Replay is a read-only port that yields the rx frames of a capture in
// order. With Realtime set, frames are released at their recorded spacing.
// Once exhausted, Read returns io.EOF.
type Replay struct {
	Realtime bool

	mu      sync.Mutex
	records []Record
	pos     int
	offset  int
	timeout time.Duration
	started time.Time
	sleep   func(time.Duration)
}

// NewReplay creates a replay of the rx records.
func NewReplay(records []Record) *Replay {
	rx := make([]Record, 0, len(records))
	for _, rec := range records {
		if rec.Dir == RX && len(rec.Frame) > 0 {
			rx = append(rx, rec)
		}
	}
	return &Replay{records: rx, sleep: time.Sleep}
}

// Len returns the number of rx frames in the replay.
func (r *Replay) Len() int {
	return len(r.records)
}

func (r *Replay) SetReadTimeout(t time.Duration) error {
	r.mu.Lock()
	r.timeout = t
	r.mu.Unlock()
	return nil
}

func (r *Replay) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pos >= len(r.records) {
		return 0, io.EOF
	}
	rec := r.records[r.pos]

	if r.Realtime && r.offset == 0 {
		if r.started.IsZero() {
			r.started = time.Now().Add(-rec.At.Sub(r.records[0].At))
		}
		wait := time.Until(r.started.Add(rec.At.Sub(r.records[0].At)))
		if wait > 0 {
			if r.timeout > 0 && wait > r.timeout {
				r.sleep(r.timeout)
				return 0, nil
			}
			r.sleep(wait)
		}
	}

	n := copy(p, rec.Frame[r.offset:])
	r.offset += n
	if r.offset >= len(rec.Frame) {
		r.pos++
		r.offset = 0
	}
	return n, nil
}

// Write discards p so a Replay can stand in for a full connection.
func (r *Replay) Write(p []byte) (int, error) {
	return len(p), nil
}
