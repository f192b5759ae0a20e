package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/five82/wowr/internal/combat"
	"github.com/five82/wowr/internal/combatlog"
	"github.com/five82/wowr/internal/detector"
	"github.com/five82/wowr/internal/recorder"
)

func TestObserve_DecisiveTick(t *testing.T) {
	e := NewExporter("")
	started := time.Date(2026, 10, 19, 21, 0, 0, 0, time.UTC)

	res := detector.Result{
		Started:      started,
		Halt:         detector.HaltDecisive,
		LinesScanned: 4,
		Event:        &combatlog.Event{Trigger: combatlog.EncounterStart},
		Decision:     combat.Decision{Verdict: combat.VerdictTransition},
		Commands: []recorder.Result{
			{Action: recorder.ActionUnpause, Outcome: recorder.OutcomeIssued},
			{Action: recorder.ActionChapter, Outcome: recorder.OutcomeFailed, Err: errors.New("boom")},
		},
	}
	e.Observe(res, combat.State{InEncounter: true}, 5*time.Millisecond)

	if got := testutil.ToFloat64(e.ticks.WithLabelValues("decisive")); got != 1 {
		t.Errorf("ticks{decisive} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(e.triggers.WithLabelValues("ENCOUNTER_START", "transition")); got != 1 {
		t.Errorf("triggers{ENCOUNTER_START,transition} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(e.commands.WithLabelValues("unpause", "issued")); got != 1 {
		t.Errorf("commands{unpause,issued} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(e.commands.WithLabelValues("add chapter", "failed")); got != 1 {
		t.Errorf("commands{add chapter,failed} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(e.inEncounter); got != 1 {
		t.Errorf("combat_in_encounter = %v, want 1", got)
	}
	if got := testutil.ToFloat64(e.inDungeon); got != 0 {
		t.Errorf("combat_in_dungeon = %v, want 0", got)
	}
	if got := testutil.ToFloat64(e.lastTick); got != float64(started.Unix()) {
		t.Errorf("last_tick = %v, want %v", got, started.Unix())
	}
}

func TestObserve_BusyOnlyCounts(t *testing.T) {
	e := NewExporter("")

	e.Observe(detector.Result{Halt: detector.HaltBusy}, combat.State{InDungeon: true}, 0)

	if got := testutil.ToFloat64(e.ticks.WithLabelValues("busy")); got != 1 {
		t.Errorf("ticks{busy} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(e.inDungeon); got != 0 {
		t.Errorf("combat_in_dungeon = %v, want 0", got)
	}
}

func TestSetRecording_OneHot(t *testing.T) {
	e := NewExporter("")

	e.SetRecording(recorder.Status{Active: true, Paused: true})

	want := map[string]float64{"idle": 0, "recording": 0, "paused": 1}
	for state, v := range want {
		if got := testutil.ToFloat64(e.recording.WithLabelValues(state)); got != v {
			t.Errorf("recording{%s} = %v, want %v", state, got, v)
		}
	}
}

func TestHandler_Endpoints(t *testing.T) {
	e := NewExporter("")
	e.Observe(detector.Result{Halt: detector.HaltBackstop}, combat.State{}, time.Millisecond)

	srv := httptest.NewServer(e.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("/healthz = %d %q, want 200 ok", resp.StatusCode, body)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `wowr_ticks_total{halt="backstop"} 1`) {
		t.Errorf("/metrics missing backstop tick counter:\n%s", body)
	}
}
