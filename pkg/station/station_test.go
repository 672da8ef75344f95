// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package station

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/hydrostat/pkg/aqualink"
	"github.com/Thermoquad/hydrostat/pkg/link"
	"github.com/Thermoquad/hydrostat/pkg/sensor"
	"github.com/Thermoquad/hydrostat/pkg/sink"
)

var (
	waterRom = aqualink.Rom{0x28, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07}
	ledRom   = sensor.DefaultLedRoms[0]
)

// simDevice answers each command the way the controller firmware does:
// the reply (if any) followed by a ready response.
type simDevice struct {
	mu      sync.Mutex
	in      []byte
	sent    []aqualink.PacketID
	timeout time.Duration
	closed  bool
}

func (d *simDevice) SetReadTimeout(t time.Duration) error {
	d.mu.Lock()
	d.timeout = t
	d.mu.Unlock()
	return nil
}

func (d *simDevice) Read(p []byte) (int, error) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0, io.ErrClosedPipe
	}
	if len(d.in) > 0 {
		n := copy(p, d.in)
		d.in = d.in[n:]
		d.mu.Unlock()
		return n, nil
	}
	timeout := d.timeout
	d.mu.Unlock()
	time.Sleep(min(timeout, 10*time.Millisecond))
	return 0, nil
}

func (d *simDevice) Write(b []byte) (int, error) {
	p, err := aqualink.DecodePacket(b)
	if err != nil {
		return 0, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, p.ID())

	var replies []*aqualink.Packet
	switch p.ID() {
	case aqualink.PacketIDCmdOwiMeasure:
		replies = append(replies,
			aqualink.EncodeOwiData(waterRom, 21.5),
			aqualink.EncodeOwiData(ledRom, 38.0))
	case aqualink.PacketIDCmdEcMeasure:
		replies = append(replies, aqualink.EncodeEcData(1450))
	case aqualink.PacketIDCmdPhMeasure:
		replies = append(replies, aqualink.EncodePhData(6200))
	}
	replies = append(replies, aqualink.NewPacket(aqualink.PacketIDResponseReadyRequest, nil))

	for _, r := range replies {
		frame, err := aqualink.EncodePacket(r)
		if err != nil {
			return 0, err
		}
		d.in = append(d.in, frame...)
	}
	return len(b), nil
}

func (d *simDevice) close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

func (d *simDevice) sentIDs() []aqualink.PacketID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]aqualink.PacketID(nil), d.sent...)
}

func contains(ids []aqualink.PacketID, id aqualink.PacketID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func newTestStation(t *testing.T) *Station {
	t.Helper()
	s := New(Config{ReadTimeout: 50 * time.Millisecond})
	t.Cleanup(s.Close)
	return s
}

func TestStation_MeasurementLoop(t *testing.T) {
	s := newTestStation(t)
	dev := &simDevice{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, dev) }()

	assert.Eventually(t, func() bool {
		return contains(dev.sentIDs(), aqualink.PacketIDCmdEcCompensation)
	}, 5*time.Second, 10*time.Millisecond)

	ec, ok := s.Aggregator.EC()
	require.True(t, ok)
	assert.Equal(t, 1450.0, ec)

	ph, ok := s.Aggregator.PH()
	require.True(t, ok)
	assert.InDelta(t, 6.2, ph, 1e-9)

	water, ok := s.Aggregator.WaterTemperature()
	require.True(t, ok)
	assert.Equal(t, 21.5, water)

	led, err := s.Aggregator.LedStats()
	require.NoError(t, err)
	assert.Equal(t, 38.0, led.Max)

	// Keepalive first, then the ring in order.
	sent := dev.sentIDs()
	require.GreaterOrEqual(t, len(sent), 4)
	assert.Equal(t, []aqualink.PacketID{
		aqualink.PacketIDReadyRequest,
		aqualink.PacketIDCmdOwiMeasure,
		aqualink.PacketIDCmdEcMeasure,
		aqualink.PacketIDCmdPhMeasure,
	}, sent[:4])

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, s.Connected())
}

func TestStation_ReconnectKeepsQueue(t *testing.T) {
	s := newTestStation(t)

	broken := &simDevice{}
	broken.close()
	err := s.Run(context.Background(), broken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, io.ErrClosedPipe))

	fan := aqualink.NewFanSetSpeed(0, 1200)
	s.Enqueue(fan)
	assert.Equal(t, 1, s.Scheduler.QueueLen())

	dev := &simDevice{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx, dev) }()

	assert.Eventually(t, func() bool {
		return contains(dev.sentIDs(), aqualink.PacketIDCmdFanSetSpeed)
	}, 5*time.Second, 10*time.Millisecond)

	// User commands go ahead of the ring.
	sent := dev.sentIDs()
	assert.Equal(t, aqualink.PacketIDReadyRequest, sent[0])
	assert.Equal(t, aqualink.PacketIDCmdFanSetSpeed, sent[1])
}

// slowSink takes a while per write and rejects writes once closed.
type slowSink struct {
	mu      sync.Mutex
	written int
	late    int
	closed  bool
}

func (k *slowSink) Name() string { return "slow" }

func (k *slowSink) Write(context.Context, sink.Reading) error {
	time.Sleep(5 * time.Millisecond)
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		k.late++
		return errors.New("sink closed")
	}
	k.written++
	return nil
}

func (k *slowSink) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.closed = true
	return nil
}

func TestStation_CloseDrainsIntoSinks(t *testing.T) {
	s := newTestStation(t)
	k := &slowSink{}
	s.AttachSinks(k)

	for i := 0; i < 10; i++ {
		s.Bus.Publish(link.EcValue{Value: float64(i), At: time.Now()})
	}
	s.Close()

	k.mu.Lock()
	defer k.mu.Unlock()
	assert.True(t, k.closed)
	assert.Equal(t, 10, k.written)
	assert.Zero(t, k.late)
}

func TestConnHolder_NoConnection(t *testing.T) {
	h := &connHolder{}
	_, err := h.Read(make([]byte, 1))
	assert.ErrorIs(t, err, ErrNoConnection)
	_, err = h.Write([]byte{1})
	assert.ErrorIs(t, err, ErrNoConnection)
	assert.ErrorIs(t, h.SetReadTimeout(time.Second), ErrNoConnection)
}
