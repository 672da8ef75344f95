// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Thermoquad/hydrostat/pkg/aqualink"
	"github.com/Thermoquad/hydrostat/pkg/link"
)

func TestCollector_Observer(t *testing.T) {
	c := New()

	c.FrameReceived(aqualink.PacketIDDataEc)
	c.FrameReceived(aqualink.PacketIDDataEc)
	c.FrameDiscarded(link.DiscardShort)
	c.UnknownKind(aqualink.PacketIDReadyRequest)
	c.ReadTimeout()
	c.FrameSent(aqualink.PacketIDCmdOwiMeasure)
	c.Keepalive()
	c.QueueEvicted()
	c.WriteError()
	c.QueueDepth(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.framesReceived.WithLabelValues("DATA_EC")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.framesDiscarded.WithLabelValues("short")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.unknownKinds.WithLabelValues("45")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.readTimeouts))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.framesSent.WithLabelValues("CMD_OWI_MEASURE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.keepalives))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.queueEvictions))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.writeErrors))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.queueDepth))
}

func TestCollector_Attach(t *testing.T) {
	c := New()
	bus := link.NewBus(nil)
	c.Attach(bus)

	now := time.Now()
	bus.Publish(link.EcValue{Value: 1250, At: now})
	bus.Publish(link.PhValue{Value: 6.1, At: now})
	bus.Publish(link.WaterTemperature{Avg: 20.5, At: now})
	bus.Publish(link.LedTemperature{Min: 30, Max: 40, Avg: 35, At: now})
	bus.Close()

	assert.Equal(t, 1250.0, testutil.ToFloat64(c.ec))
	assert.Equal(t, 6.1, testutil.ToFloat64(c.ph))
	assert.Equal(t, 20.5, testutil.ToFloat64(c.water))
	assert.Equal(t, 40.0, testutil.ToFloat64(c.ledTemperature.WithLabelValues("max")))
}

func TestCollector_Handler(t *testing.T) {
	c := New()
	c.ReadTimeout()

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "hydrostat_read_timeouts_total 1")
}
