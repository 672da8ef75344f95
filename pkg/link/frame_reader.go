// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"bytes"
	"context"
	"time"

	"github.com/Thermoquad/hydrostat/pkg/aqualink"
)

// DefaultReadTimeout bounds how long a single frame read may take.
const DefaultReadTimeout = 2 * time.Second

// pollInterval caps each underlying read so cancellation is noticed promptly.
const pollInterval = 100 * time.Millisecond

// Port is the read side of the serial channel. Read must return (0, nil)
// when the configured read timeout elapses without data, the way
// go.bug.st/serial ports do.
type Port interface {
	Read(p []byte) (int, error)
	SetReadTimeout(t time.Duration) error
}

// FrameReader splits a byte stream into terminator-delimited frames.
type FrameReader struct {
	port    Port
	timeout time.Duration
	buf     []byte
	pending []byte
}

// NewFrameReader creates a reader that waits at most timeout for each frame.
func NewFrameReader(port Port, timeout time.Duration) *FrameReader {
	if timeout <= 0 {
		timeout = DefaultReadTimeout
	}
	return &FrameReader{
		port:    port,
		timeout: timeout,
		buf:     make([]byte, 512),
	}
}

// ReadFrame returns the next frame including its terminator. If the timeout
// elapses first, whatever was read is returned without a terminator (possibly
// empty) and discarded from the stream. Errors are hard channel errors or
// context cancellation.
func (r *FrameReader) ReadFrame(ctx context.Context) ([]byte, error) {
	deadline := time.Now().Add(r.timeout)

	for {
		if i := bytes.IndexByte(r.pending, aqualink.Terminator); i >= 0 {
			frame := append([]byte(nil), r.pending[:i+1]...)
			r.pending = append(r.pending[:0], r.pending[i+1:]...)
			return frame, nil
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			partial := r.pending
			r.pending = nil
			return partial, nil
		}

		if err := r.port.SetReadTimeout(min(remaining, pollInterval)); err != nil {
			return nil, err
		}
		n, err := r.port.Read(r.buf)
		if n > 0 {
			r.pending = append(r.pending, r.buf[:n]...)
		}
		if err != nil {
			return nil, err
		}
	}
}

// Reset drops any buffered bytes, such as a partial frame left by a
// connection that has since been replaced.
func (r *FrameReader) Reset() {
	r.pending = nil
}
