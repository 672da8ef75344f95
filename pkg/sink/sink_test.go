// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sink

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/hydrostat/pkg/link"
)

type memSink struct {
	name string
	err  error

	mu       sync.Mutex
	readings []Reading
	closed   bool
}

func (m *memSink) Name() string { return m.name }

func (m *memSink) Write(_ context.Context, r Reading) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readings = append(m.readings, r)
	return m.err
}

func (m *memSink) Close() error {
	m.closed = true
	return nil
}

func TestFromEvent(t *testing.T) {
	at := time.Now()

	r, ok := FromEvent(link.EcValue{Value: 1200, At: at})
	require.True(t, ok)
	assert.Equal(t, KindEC, r.Kind)
	assert.Equal(t, 1200.0, r.Value)
	assert.Nil(t, r.Min)

	r, ok = FromEvent(link.LedTemperature{Min: 30, Max: 42, Avg: 36, At: at})
	require.True(t, ok)
	assert.Equal(t, KindLedTemperature, r.Kind)
	assert.Equal(t, 36.0, r.Value)
	require.NotNil(t, r.Min)
	require.NotNil(t, r.Max)
	assert.Equal(t, 30.0, *r.Min)
	assert.Equal(t, 42.0, *r.Max)

	_, ok = FromEvent(link.ReadTimeout{At: at})
	assert.False(t, ok)
}

func TestAttach_FansOut(t *testing.T) {
	bus := link.NewBus(nil)
	failing := &memSink{name: "failing", err: errors.New("down")}
	healthy := &memSink{name: "healthy"}
	Attach(bus, nil, failing, healthy)

	at := time.Now()
	bus.Publish(link.EcValue{Value: 1, At: at})
	bus.Publish(link.PhValue{Value: 7, At: at})
	bus.Publish(link.WaterTemperature{Avg: 20, At: at})
	bus.Publish(link.ReadTimeout{At: at})
	bus.Close()

	require.Len(t, healthy.readings, 3)
	assert.Equal(t, KindEC, healthy.readings[0].Kind)
	assert.Equal(t, KindPH, healthy.readings[1].Kind)
	assert.Equal(t, KindWaterTemperature, healthy.readings[2].Kind)
	assert.Len(t, failing.readings, 3)
}

// stalledSink blocks every write until release is closed.
type stalledSink struct {
	release chan struct{}
}

func (s *stalledSink) Name() string { return "stalled" }
func (s *stalledSink) Close() error { return nil }

func (s *stalledSink) Write(ctx context.Context, _ Reading) error {
	select {
	case <-s.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *memSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.readings)
}

func TestAttach_StalledSinkDoesNotBlockOthers(t *testing.T) {
	bus := link.NewBus(nil)
	stalled := &stalledSink{release: make(chan struct{})}
	healthy := &memSink{name: "healthy"}
	detach := Attach(bus, nil, stalled, healthy)

	at := time.Now()
	bus.Publish(link.EcValue{Value: 1, At: at})
	bus.Publish(link.PhValue{Value: 7, At: at})

	assert.Eventually(t, func() bool {
		return healthy.count() == 2
	}, time.Second, 5*time.Millisecond)

	close(stalled.release)
	detach()
	bus.Close()
}
