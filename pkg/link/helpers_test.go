// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/hydrostat/pkg/aqualink"
)

// fakePort replays scripted chunks, then behaves like an idle serial port
// (sleeping for the read timeout and returning no data) or fails with err.
type fakePort struct {
	mu      sync.Mutex
	chunks  [][]byte
	err     error
	timeout time.Duration
}

func (f *fakePort) feed(chunks ...[]byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks = append(f.chunks, chunks...)
}

func (f *fakePort) SetReadTimeout(t time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.timeout = t
	return nil
}

func (f *fakePort) Read(p []byte) (int, error) {
	f.mu.Lock()
	if len(f.chunks) > 0 {
		chunk := f.chunks[0]
		n := copy(p, chunk)
		if n < len(chunk) {
			f.chunks[0] = chunk[n:]
		} else {
			f.chunks = f.chunks[1:]
		}
		f.mu.Unlock()
		return n, nil
	}
	err, timeout := f.err, f.timeout
	f.mu.Unlock()

	if err != nil {
		return 0, err
	}
	time.Sleep(timeout)
	return 0, nil
}

var errWriteFailed = errors.New("port closed")

// fakeWriter records every frame written and can be told to fail.
type fakeWriter struct {
	mu     sync.Mutex
	frames [][]byte
	fail   bool
}

func (w *fakeWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.fail {
		return 0, errWriteFailed
	}
	w.frames = append(w.frames, append([]byte(nil), p...))
	return len(p), nil
}

func (w *fakeWriter) setFail(fail bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.fail = fail
}

// sent decodes every frame written so far.
func (w *fakeWriter) sent(t *testing.T) []aqualink.PacketID {
	t.Helper()
	w.mu.Lock()
	defer w.mu.Unlock()

	ids := make([]aqualink.PacketID, 0, len(w.frames))
	for _, f := range w.frames {
		p, err := aqualink.DecodePacket(f)
		require.NoError(t, err)
		ids = append(ids, p.ID())
	}
	return ids
}

func mustFrame(t *testing.T, p *aqualink.Packet) []byte {
	t.Helper()
	frame, err := aqualink.EncodePacket(p)
	require.NoError(t, err)
	return frame
}

// collector gathers events delivered by a bus subscription.
type collector struct {
	mu     sync.Mutex
	events []Event
}

func (c *collector) handle(e Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) snapshot() []Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Event(nil), c.events...)
}

func (c *collector) topics() []Topic {
	events := c.snapshot()
	topics := make([]Topic, len(events))
	for i, e := range events {
		topics[i] = e.Topic()
	}
	return topics
}
