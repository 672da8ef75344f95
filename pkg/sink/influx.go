// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package sink

import (
	"context"
	"log/slog"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// InfluxConfig configures the InfluxDB sink.
type InfluxConfig struct {
	URL     string
	Token   string
	Org     string
	Bucket  string
	Station string
	Logger  *slog.Logger
}

// Influx writes readings through the client's batching WriteAPI. Writes
// never block; failures surface asynchronously and are tracked by age.
type Influx struct {
	client  influxdb2.Client
	api     api.WriteAPI
	station string
	log     *slog.Logger

	mu      sync.RWMutex
	lastErr time.Time
}

// NewInflux creates the sink and starts its error listener.
func NewInflux(cfg InfluxConfig) *Influx {
	opts := influxdb2.DefaultOptions().
		SetBatchSize(50).
		SetFlushInterval(1000)
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	in := newInflux(client.WriteAPI(cfg.Org, cfg.Bucket), cfg.Station, cfg.Logger)
	in.client = client
	return in
}

func newInflux(w api.WriteAPI, station string, logger *slog.Logger) *Influx {
	if logger == nil {
		logger = slog.Default()
	}
	in := &Influx{
		api:     w,
		station: station,
		log:     logger,
	}
	go func() {
		for err := range w.Errors() {
			if err != nil {
				in.mu.Lock()
				in.lastErr = time.Now()
				in.mu.Unlock()
				in.log.Warn("influx write error", "error", err)
			}
		}
	}()
	return in
}

func (in *Influx) Name() string { return "influx" }

func (in *Influx) Write(_ context.Context, r Reading) error {
	fields := map[string]interface{}{"value": r.Value}
	if r.Min != nil {
		fields["min"] = *r.Min
	}
	if r.Max != nil {
		fields["max"] = *r.Max
	}
	tags := map[string]string{"station": in.station}

	in.api.WritePoint(influxdb2.NewPoint(string(r.Kind), tags, fields, r.At))
	return nil
}

// LastErrorAge reports how long ago the last asynchronous write failed.
// ok is false if no write has failed yet.
func (in *Influx) LastErrorAge() (age time.Duration, ok bool) {
	in.mu.RLock()
	t := in.lastErr
	in.mu.RUnlock()
	if t.IsZero() {
		return 0, false
	}
	return time.Since(t), true
}

// Close flushes buffered points and releases the client.
func (in *Influx) Close() error {
	in.api.Flush()
	if in.client != nil {
		in.client.Close()
	}
	return nil
}
