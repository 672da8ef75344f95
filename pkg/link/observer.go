// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package link

import "github.com/Thermoquad/hydrostat/pkg/aqualink"

// Discard reasons reported to Observer.FrameDiscarded.
const (
	DiscardShort   = "short"
	DiscardInvalid = "invalid"
)

// Observer receives link counters. metrics.Collector implements it.
type Observer interface {
	FrameReceived(id aqualink.PacketID)
	FrameDiscarded(reason string)
	UnknownKind(id aqualink.PacketID)
	ReadTimeout()
	FrameSent(id aqualink.PacketID)
	Keepalive()
	QueueEvicted()
	QueueDepth(n int)
	WriteError()
}

type nopObserver struct{}

func (nopObserver) FrameReceived(aqualink.PacketID) {}
func (nopObserver) FrameDiscarded(string)           {}
func (nopObserver) UnknownKind(aqualink.PacketID)   {}
func (nopObserver) ReadTimeout()                    {}
func (nopObserver) FrameSent(aqualink.PacketID)     {}
func (nopObserver) Keepalive()                      {}
func (nopObserver) QueueEvicted()                   {}
func (nopObserver) QueueDepth(int)                  {}
func (nopObserver) WriteError()                     {}
