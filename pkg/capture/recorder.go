// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package capture

import (
	"bytes"
	"io"
	"sync"
	"time"

	"github.com/Thermoquad/hydrostat/pkg/aqualink"
)

// Conn is the channel a Recorder wraps.
type Conn interface {
	io.ReadWriter
	SetReadTimeout(t time.Duration) error
}

// Recorder passes traffic through to a Conn and records each complete
// frame in both directions. Inbound bytes are buffered until a terminator.
type Recorder struct {
	conn Conn
	out  *Writer
	now  func() time.Time

	mu      sync.Mutex
	pending []byte
	err     error
}

// NewRecorder wraps conn, writing records to out.
func NewRecorder(conn Conn, out *Writer) *Recorder {
	return &Recorder{conn: conn, out: out, now: time.Now}
}

func (r *Recorder) Read(p []byte) (int, error) {
	n, err := r.conn.Read(p)
	if n > 0 {
		r.mu.Lock()
		r.pending = append(r.pending, p[:n]...)
		for {
			i := bytes.IndexByte(r.pending, aqualink.Terminator)
			if i < 0 {
				break
			}
			frame := append([]byte(nil), r.pending[:i+1]...)
			r.pending = append(r.pending[:0], r.pending[i+1:]...)
			r.record(RX, frame)
		}
		r.mu.Unlock()
	}
	return n, err
}

func (r *Recorder) Write(p []byte) (int, error) {
	n, err := r.conn.Write(p)
	if n > 0 {
		r.mu.Lock()
		r.record(TX, append([]byte(nil), p[:n]...))
		r.mu.Unlock()
	}
	return n, err
}

func (r *Recorder) SetReadTimeout(t time.Duration) error {
	return r.conn.SetReadTimeout(t)
}

// Err returns the first error hit while writing records. Recording
// failures never interrupt the traffic itself.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder) record(dir Direction, frame []byte) {
	if r.err != nil {
		return
	}
	r.err = r.out.Write(Record{At: r.now(), Dir: dir, Frame: frame})
}
