// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/Thermoquad/hydrostat/pkg/aqualink"
)

// ErrWrite wraps failures writing to the channel.
var ErrWrite = errors.New("write failed")

// SchedulerConfig tunes a Scheduler. Zero values select defaults.
type SchedulerConfig struct {
	QueueCapacity int
	Ring          *MeasurementRing
	Logger        *slog.Logger
	Observer      Observer
}

// Scheduler decides what to send each time the device reports ready. User
// commands always go first; otherwise the measurement ring is polled in
// rotation. It is the only writer of the channel and sends at most one
// frame per ready signal.
type Scheduler struct {
	w   io.Writer
	bus *Bus
	log *slog.Logger
	obs Observer

	mu     sync.Mutex
	queue  *CommandQueue
	ring   *MeasurementRing
	ready  bool
	paused bool
	cycle  int
}

// NewScheduler creates a scheduler writing frames to w. Cycle completion
// events are published on bus.
func NewScheduler(w io.Writer, bus *Bus, cfg SchedulerConfig) *Scheduler {
	if cfg.Ring == nil {
		cfg.Ring = DefaultMeasurementRing()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	return &Scheduler{
		w:     w,
		bus:   bus,
		queue: NewCommandQueue(cfg.QueueCapacity),
		ring:  cfg.Ring,
		log:   cfg.Logger,
		obs:   cfg.Observer,
	}
}

// Attach subscribes the scheduler to ready and read-timeout events. The
// returned function detaches it.
func (s *Scheduler) Attach(bus *Bus) func() {
	return bus.Subscribe(func(e Event) {
		var err error
		switch e.Topic() {
		case TopicReady:
			err = s.OnReady()
		case TopicReadTimeout:
			err = s.OnReadTimeout()
		}
		if err != nil {
			s.log.Warn("transmit failed", "error", err)
		}
	}, TopicReady, TopicReadTimeout)
}

// Enqueue queues a user command. It never waits on the device; when the
// queue is full the oldest command is dropped. It shares the transmit lock,
// so a command being sent is never the one evicted.
func (s *Scheduler) Enqueue(p *aqualink.Packet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.queue.Push(p) {
		s.obs.QueueEvicted()
		s.log.Warn("command queue full, dropped oldest command")
	}
	s.obs.QueueDepth(s.queue.Len())
}

// OnReady handles a ready signal from the device by transmitting the next
// command. While paused the signal is only recorded.
func (s *Scheduler) OnReady() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ready = true
	if s.paused {
		return nil
	}
	return s.sendNextLocked()
}

// OnReadTimeout solicits readiness with a keepalive unless the device is
// already known to be ready or transmissions are paused.
func (s *Scheduler) OnReadTimeout() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ready || s.paused {
		return nil
	}

	s.log.Debug("sending ready request")
	if err := s.transmitLocked(aqualink.NewReadyRequest()); err != nil {
		return err
	}
	s.obs.Keepalive()
	return nil
}

// Pause stops transmissions. Ready signals received while paused are
// remembered so Resume can act on them.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

// Resume restarts transmissions, sending immediately if the device is ready.
func (s *Scheduler) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.paused = false
	if !s.ready {
		return nil
	}
	return s.sendNextLocked()
}

// Ready reports whether a ready signal is pending.
func (s *Scheduler) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready
}

// Paused reports whether transmissions are paused.
func (s *Scheduler) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

// QueueLen returns the number of pending user commands.
func (s *Scheduler) QueueLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// sendNextLocked transmits the user queue head or the current ring entry.
// The selection is committed only after a successful write.
func (s *Scheduler) sendNextLocked() error {
	if p, ok := s.queue.Peek(); ok {
		err := s.transmitLocked(p)
		if err != nil && !errors.Is(err, ErrWrite) {
			// Unencodable command: drop it so it cannot wedge the queue
			s.queue.Pop()
			s.log.Error("dropping command", "kind", p.ID(), "error", err)
		}
		if err != nil {
			return err
		}
		s.queue.Pop()
		s.obs.QueueDepth(s.queue.Len())
		return nil
	}

	if err := s.transmitLocked(s.ring.Current()); err != nil {
		return err
	}
	s.ring.Advance()
	s.cycle++
	if s.cycle >= s.ring.Len() {
		s.cycle = 0
		s.bus.Publish(MeasurementCycleComplete{Queue: s, At: time.Now()})
	}
	return nil
}

// transmitLocked writes one frame. The ready flag is cleared whether or not
// the write succeeds.
func (s *Scheduler) transmitLocked(p *aqualink.Packet) error {
	s.ready = false

	frame, err := aqualink.EncodePacket(p)
	if err != nil {
		return fmt.Errorf("encode %s: %w", p.ID(), err)
	}

	if _, err := s.w.Write(frame); err != nil {
		s.obs.WriteError()
		return fmt.Errorf("%w: %s: %w", ErrWrite, p.ID(), err)
	}

	s.obs.FrameSent(p.ID())
	s.log.Debug("sent", "kind", p.ID(), "length", len(frame))
	return nil
}
