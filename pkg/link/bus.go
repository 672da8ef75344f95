// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"log/slog"
	"sync"
)

// Handler consumes events delivered by the Bus.
type Handler func(Event)

// Bus fans events out to subscribers. Each subscriber owns an unbounded
// FIFO drained by its own goroutine, so every subscriber sees every event
// it subscribed to exactly once and in publish order, and Publish never
// waits on a handler.
type Bus struct {
	mu     sync.RWMutex
	subs   map[*subscription]struct{}
	closed bool
	wg     sync.WaitGroup
	log    *slog.Logger
}

type subscription struct {
	topics  map[Topic]struct{}
	handler Handler

	mu     sync.Mutex
	queue  []Event
	closed bool
	notify chan struct{}
}

// NewBus creates an empty bus. A nil logger uses slog.Default().
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subs: make(map[*subscription]struct{}),
		log:  logger,
	}
}

// Subscribe registers h for the given topics, or for every topic when none
// are given. The returned function unsubscribes; events already queued for
// the subscriber are still delivered.
func (b *Bus) Subscribe(h Handler, topics ...Topic) func() {
	s := &subscription{
		handler: h,
		notify:  make(chan struct{}, 1),
	}
	if len(topics) > 0 {
		s.topics = make(map[Topic]struct{}, len(topics))
		for _, t := range topics {
			s.topics[t] = struct{}{}
		}
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	b.subs[s] = struct{}{}
	b.wg.Add(1)
	b.mu.Unlock()

	go s.run(&b.wg)

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, s)
			b.mu.Unlock()
			s.close()
		})
	}
}

// Publish queues e for every matching subscriber.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.log.Debug("publish on closed bus", "topic", e.Topic())
		return
	}
	for s := range b.subs {
		if s.wants(e.Topic()) {
			s.push(e)
		}
	}
}

// Close stops accepting events and waits until every subscriber has
// drained its queue.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.wg.Wait()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[*subscription]struct{})
	b.mu.Unlock()

	for s := range subs {
		s.close()
	}
	b.wg.Wait()
}

func (s *subscription) wants(t Topic) bool {
	if s.topics == nil {
		return true
	}
	_, ok := s.topics[t]
	return ok
}

func (s *subscription) push(e Event) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.queue = append(s.queue, e)
	s.mu.Unlock()
	s.wake()
}

func (s *subscription) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.wake()
}

func (s *subscription) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

func (s *subscription) run(wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		s.mu.Lock()
		for len(s.queue) == 0 {
			if s.closed {
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
			<-s.notify
			s.mu.Lock()
		}
		e := s.queue[0]
		s.queue[0] = nil
		s.queue = s.queue[1:]
		if len(s.queue) == 0 {
			s.queue = nil
		}
		s.mu.Unlock()

		s.handler(e)
	}
}
