// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Thermoquad/hydrostat/pkg/aqualink"
)

// ReceiverConfig tunes a Receiver. Zero values select defaults.
type ReceiverConfig struct {
	ReadTimeout time.Duration
	Logger      *slog.Logger
	Observer    Observer
}

// Receiver turns the inbound byte stream into bus events. It is the only
// reader of the channel.
type Receiver struct {
	frames *FrameReader
	bus    *Bus
	log    *slog.Logger
	obs    Observer

	mu    sync.Mutex
	stats *aqualink.Statistics
}

// NewReceiver creates a receiver reading from port and publishing on bus.
func NewReceiver(port Port, bus *Bus, cfg ReceiverConfig) *Receiver {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}
	return &Receiver{
		frames: NewFrameReader(port, cfg.ReadTimeout),
		bus:    bus,
		log:    cfg.Logger,
		obs:    cfg.Observer,
		stats:  aqualink.NewStatistics(),
	}
}

// Run reads frames until ctx is cancelled (returning nil) or the channel
// fails (returning the error). Timeouts and bad frames never end Run. Bytes
// left over from a previous Run are discarded, since each Run is expected
// to start on a fresh connection.
func (r *Receiver) Run(ctx context.Context) error {
	r.frames.Reset()
	for {
		frame, err := r.frames.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				return nil
			}
			return fmt.Errorf("read frame: %w", err)
		}
		r.HandleFrame(frame)
	}
}

// HandleFrame classifies one read result and publishes at most one event.
func (r *Receiver) HandleFrame(frame []byte) {
	if len(frame) == 0 || frame[len(frame)-1] != aqualink.Terminator {
		r.withStats(func(s *aqualink.Statistics) { s.RecordTimeout() })
		r.obs.ReadTimeout()
		r.log.Debug("read timeout", "partial", len(frame))
		r.bus.Publish(ReadTimeout{At: time.Now()})
		return
	}

	if len(frame) < aqualink.MinFrameSize {
		r.withStats(func(s *aqualink.Statistics) { s.RecordShortFrame() })
		r.obs.FrameDiscarded(DiscardShort)
		return
	}

	p, err := aqualink.DecodePacket(frame)
	if err != nil {
		r.withStats(func(s *aqualink.Statistics) { s.Update(nil, err, nil) })
		r.obs.FrameDiscarded(DiscardInvalid)
		r.log.Debug("discarding frame", "error", err, "length", len(frame))
		return
	}

	topic, ok := InboundTopic(p.ID())
	if !ok {
		r.withStats(func(s *aqualink.Statistics) { s.RecordUnknownKind() })
		r.obs.UnknownKind(p.ID())
		r.log.Debug("unknown packet kind", "id", uint8(p.ID()), "kind", p.ID())
		return
	}

	// Anomalies are counted but the packet is still dispatched; consumers
	// decide what to do with out-of-range values.
	vErrs := aqualink.ValidatePacket(p)
	r.withStats(func(s *aqualink.Statistics) { s.Update(p, nil, vErrs) })
	r.obs.FrameReceived(p.ID())
	r.bus.Publish(NewPacketEvent(topic, p))
}

// Statistics returns a snapshot of the receive counters.
func (r *Receiver) Statistics() aqualink.Statistics {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.stats
}

func (r *Receiver) withStats(fn func(*aqualink.Statistics)) {
	r.mu.Lock()
	fn(r.stats)
	r.mu.Unlock()
}
