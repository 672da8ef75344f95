// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package station

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Thermoquad/hydrostat/pkg/sensor"
)

// API serves the station's control surface.
type API struct {
	station *Station
	metrics http.Handler
	log     *slog.Logger
}

// NewAPI creates the control API. metrics may be nil.
func NewAPI(s *Station, metrics http.Handler, logger *slog.Logger) *API {
	if logger == nil {
		logger = slog.Default()
	}
	return &API{station: s, metrics: metrics, log: logger}
}

// RegisterRoutes mounts the API on mux.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", a.handleHealthz)
	mux.HandleFunc("GET /readings", a.handleReadings)
	mux.HandleFunc("GET /commands", a.handleCommandList)
	mux.HandleFunc("POST /commands/{name}", a.handleCommand)
	mux.HandleFunc("POST /pause", a.handlePause)
	mux.HandleFunc("POST /resume", a.handleResume)
	if a.metrics != nil {
		mux.Handle("GET /metrics", a.metrics)
	}
}

// Handler returns the routes wrapped in request logging.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)
	return a.requestLogger(mux)
}

// NewServer creates an HTTP server for the API on addr.
func NewServer(addr string, a *API) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

type healthStatus struct {
	Status    string       `json:"status"`
	Connected bool         `json:"connected"`
	Ready     bool         `json:"ready"`
	Paused    bool         `json:"paused"`
	QueueLen  int          `json:"queue_len"`
	Uptime    string       `json:"uptime"`
	Sinks     []sinkHealth `json:"sinks,omitempty"`
}

type sinkHealth struct {
	Name         string `json:"name"`
	Connected    *bool  `json:"connected,omitempty"`
	LastErrorAge string `json:"last_error_age,omitempty"`
}

// Optional sink capabilities reported by /healthz.
type (
	connectedSink interface{ IsConnected() bool }
	erroringSink  interface {
		LastErrorAge() (time.Duration, bool)
	}
)

// sinkErrorWindow is how recent a sink error must be to mark the
// station degraded.
const sinkErrorWindow = time.Minute

func (a *API) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	s := a.station
	status := healthStatus{
		Status:    "ok",
		Connected: s.Connected(),
		Ready:     s.Scheduler.Ready(),
		Paused:    s.Scheduler.Paused(),
		QueueLen:  s.Scheduler.QueueLen(),
		Uptime:    s.Uptime().Round(time.Second).String(),
	}
	degraded := false
	for _, sk := range s.sinks {
		h := sinkHealth{Name: sk.Name()}
		if c, ok := sk.(connectedSink); ok {
			connected := c.IsConnected()
			h.Connected = &connected
			degraded = degraded || !connected
		}
		if e, ok := sk.(erroringSink); ok {
			if age, ok := e.LastErrorAge(); ok {
				h.LastErrorAge = age.Round(time.Second).String()
				degraded = degraded || age < sinkErrorWindow
			}
		}
		status.Sinks = append(status.Sinks, h)
	}
	if degraded {
		status.Status = "degraded"
	}

	code := http.StatusOK
	if !status.Connected {
		status.Status = "disconnected"
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}

type readingsResponse struct {
	sensor.Snapshot
	Stats statsView `json:"link"`
}

type statsView struct {
	TotalFrames   uint64  `json:"total_frames"`
	ValidPackets  uint64  `json:"valid_packets"`
	ReadTimeouts  uint64  `json:"read_timeouts"`
	DecodeErrors  uint64  `json:"decode_errors"`
	CRCErrors     uint64  `json:"crc_errors"`
	UnknownKinds  uint64  `json:"unknown_kinds"`
	PacketRate    float64 `json:"packet_rate"`
	ErrorRate     float64 `json:"error_rate"`
	ReceiverSince string  `json:"since"`
}

func (a *API) handleReadings(w http.ResponseWriter, _ *http.Request) {
	stats := a.station.Receiver.Statistics()
	stats.CalculateRates()
	writeJSON(w, http.StatusOK, readingsResponse{
		Snapshot: a.station.Aggregator.Snapshot(),
		Stats: statsView{
			TotalFrames:   stats.TotalFrames,
			ValidPackets:  stats.ValidPackets,
			ReadTimeouts:  stats.ReadTimeouts,
			DecodeErrors:  stats.DecodeErrors,
			CRCErrors:     stats.CRCErrors,
			UnknownKinds:  stats.UnknownKinds,
			PacketRate:    stats.PacketRate,
			ErrorRate:     stats.ErrorRate,
			ReceiverSince: stats.StartTime.Format(time.RFC3339),
		},
	})
}

func (a *API) handleCommandList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"commands": CommandUsage()})
}

func (a *API) handleCommand(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	p, err := ParseCommand(name, r.URL.Query())
	if err != nil {
		code := http.StatusBadRequest
		if errors.Is(err, ErrUnknownCommand) {
			code = http.StatusNotFound
		}
		writeError(w, code, err.Error())
		return
	}

	a.station.Enqueue(p)
	a.log.Info("command queued", "command", name, "kind", p.ID())
	writeJSON(w, http.StatusAccepted, map[string]any{
		"queued":    name,
		"kind":      p.ID().String(),
		"queue_len": a.station.Scheduler.QueueLen(),
	})
}

func (a *API) handlePause(w http.ResponseWriter, _ *http.Request) {
	a.station.Scheduler.Pause()
	writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

func (a *API) handleResume(w http.ResponseWriter, _ *http.Request) {
	if err := a.station.Scheduler.Resume(); err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write JSON", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error":   http.StatusText(status),
		"message": msg,
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (a *API) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)

		a.log.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", sr.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// Shutdown stops srv, waiting at most timeout for open requests.
func Shutdown(srv *http.Server, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
