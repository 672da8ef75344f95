// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seqEvent struct {
	topic Topic
	n     int
}

func (e seqEvent) Topic() Topic { return e.topic }

func TestBus_EverySubscriberInOrder(t *testing.T) {
	bus := NewBus(nil)
	var a, b collector
	bus.Subscribe(a.handle)
	bus.Subscribe(b.handle)

	for i := 0; i < 100; i++ {
		bus.Publish(seqEvent{topic: TopicLogging, n: i})
	}
	bus.Close()

	for _, c := range []*collector{&a, &b} {
		events := c.snapshot()
		require.Len(t, events, 100)
		for i, e := range events {
			assert.Equal(t, i, e.(seqEvent).n)
		}
	}
}

func TestBus_TopicFilter(t *testing.T) {
	bus := NewBus(nil)
	var ready, all collector
	bus.Subscribe(ready.handle, TopicReady, TopicReadTimeout)
	bus.Subscribe(all.handle)

	bus.Publish(seqEvent{topic: TopicEcData})
	bus.Publish(seqEvent{topic: TopicReady})
	bus.Publish(ReadTimeout{})
	bus.Publish(seqEvent{topic: TopicPhData})
	bus.Close()

	assert.Equal(t, []Topic{TopicReady, TopicReadTimeout}, ready.topics())
	assert.Equal(t, []Topic{TopicEcData, TopicReady, TopicReadTimeout, TopicPhData}, all.topics())
}

func TestBus_SlowSubscriberDoesNotBlockPublish(t *testing.T) {
	bus := NewBus(nil)
	release := make(chan struct{})
	var slow, fast collector

	bus.Subscribe(func(e Event) {
		<-release
		slow.handle(e)
	})
	bus.Subscribe(fast.handle)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			bus.Publish(seqEvent{topic: TopicAck, n: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	assert.Eventually(t, func() bool { return len(fast.snapshot()) == 1000 }, 2*time.Second, 5*time.Millisecond)
	assert.Empty(t, slow.snapshot())

	close(release)
	bus.Close()

	events := slow.snapshot()
	require.Len(t, events, 1000)
	assert.Equal(t, 999, events[999].(seqEvent).n)
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus(nil)
	var c collector
	unsubscribe := bus.Subscribe(c.handle)

	bus.Publish(seqEvent{topic: TopicAck, n: 1})
	unsubscribe()
	unsubscribe()
	bus.Publish(seqEvent{topic: TopicAck, n: 2})
	bus.Close()

	events := c.snapshot()
	require.Len(t, events, 1)
	assert.Equal(t, 1, events[0].(seqEvent).n)
}

func TestBus_PublishAfterClose(t *testing.T) {
	bus := NewBus(nil)
	var c collector
	bus.Subscribe(c.handle)
	bus.Close()

	bus.Publish(seqEvent{topic: TopicAck})
	bus.Subscribe(c.handle)()
	bus.Close()

	assert.Empty(t, c.snapshot())
}

func TestTopic_String(t *testing.T) {
	assert.Equal(t, "ready", TopicReady.String())
	assert.Equal(t, "water_temperature", TopicWaterTemperature.String())
	assert.Equal(t, "unknown", Topic(0).String())
}
