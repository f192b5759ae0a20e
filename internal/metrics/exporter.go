// Package metrics exposes detector activity in the Prometheus text format.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/five82/wowr/internal/combat"
	"github.com/five82/wowr/internal/detector"
	"github.com/five82/wowr/internal/recorder"
)

// Exporter owns the wowr collectors and the HTTP server that serves them.
type Exporter struct {
	registry *prometheus.Registry
	mux      *http.ServeMux
	server   *http.Server

	ticks        *prometheus.CounterVec
	triggers     *prometheus.CounterVec
	commands     *prometheus.CounterVec
	scanDur      prometheus.Summary
	linesScanned prometheus.Summary
	inDungeon    prometheus.Gauge
	inEncounter  prometheus.Gauge
	recording    *prometheus.GaugeVec
	lastTick     prometheus.Gauge
}

// NewExporter builds an exporter on its own registry. addr may be empty when
// only Handler is needed.
func NewExporter(addr string) *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		mux:      http.NewServeMux(),
	}
	e.ticks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wowr",
		Name:      "ticks_total",
		Help:      "Detector ticks by the reason the scan stopped",
	}, []string{"halt"})
	e.triggers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wowr",
		Name:      "triggers_total",
		Help:      "Decisive combat log triggers by kind and verdict",
	}, []string{"trigger", "verdict"})
	e.commands = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wowr",
		Name:      "recorder_commands_total",
		Help:      "Recording commands by action and outcome",
	}, []string{"action", "outcome"})
	e.scanDur = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: "wowr",
		Name:      "scan_duration_seconds",
		Help:      "Time spent on one detector tick",
	})
	e.linesScanned = prometheus.NewSummary(prometheus.SummaryOpts{
		Namespace: "wowr",
		Name:      "scan_lines",
		Help:      "Combat log lines examined per tick",
	})
	e.inDungeon = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "wowr",
		Name:      "combat_in_dungeon",
		Help:      "1 while a Mythic+ run is in progress",
	})
	e.inEncounter = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "wowr",
		Name:      "combat_in_encounter",
		Help:      "1 while a raid encounter is in progress",
	})
	e.recording = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "wowr",
		Name:      "recording",
		Help:      "Recording state reported by OBS",
	}, []string{"state"})
	e.lastTick = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "wowr",
		Name:      "last_tick_timestamp_seconds",
		Help:      "Unix timestamp of the last completed tick",
	})

	e.registry.MustRegister(
		e.ticks, e.triggers, e.commands,
		e.scanDur, e.linesScanned,
		e.inDungeon, e.inEncounter, e.recording, e.lastTick,
	)

	e.mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))
	e.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	e.server = &http.Server{
		Addr:              addr,
		Handler:           e.mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return e
}

// Handler serves /metrics and /healthz.
func (e *Exporter) Handler() http.Handler { return e.mux }

// Serve listens on the configured address until Shutdown is called.
func (e *Exporter) Serve() error { return e.server.ListenAndServe() }

// Shutdown stops the HTTP server, waiting for in-flight scrapes up to ctx.
func (e *Exporter) Shutdown(ctx context.Context) error { return e.server.Shutdown(ctx) }

// Observe records a finished tick and the combat state it left behind.
func (e *Exporter) Observe(res detector.Result, st combat.State, elapsed time.Duration) {
	e.ticks.WithLabelValues(res.Halt.String()).Inc()
	if res.Halt == detector.HaltBusy {
		return
	}

	e.scanDur.Observe(elapsed.Seconds())
	e.linesScanned.Observe(float64(res.LinesScanned))
	if res.Event != nil {
		e.triggers.WithLabelValues(res.Event.Trigger.String(), res.Decision.Verdict.String()).Inc()
	}
	for _, c := range res.Commands {
		e.commands.WithLabelValues(c.Action.String(), c.Outcome.String()).Inc()
	}
	e.inDungeon.Set(boolGauge(st.InDungeon))
	e.inEncounter.Set(boolGauge(st.InEncounter))
	e.lastTick.Set(float64(res.Started.Unix()))
}

// SetRecording exports the capture application's state as a one-hot gauge.
func (e *Exporter) SetRecording(status recorder.Status) {
	for _, s := range []recorder.Status{{}, {Active: true}, {Active: true, Paused: true}} {
		e.recording.WithLabelValues(s.String()).Set(boolGauge(s == status))
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
