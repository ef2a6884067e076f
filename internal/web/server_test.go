package web

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sweeney/led-sequencer/internal/logic"
	"github.com/sweeney/led-sequencer/internal/metrics"
	"github.com/sweeney/led-sequencer/internal/status"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, *metrics.Metrics) {
	t.Helper()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		Mode:        "crossing",
		PollMs:      5,
		DebounceMs:  200,
		StepMs:      3000,
		RestartMs:   10,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":8080",
	}
	tr := status.NewTracker(start, cfg)
	reg := prometheus.NewRegistry()
	met := metrics.New(reg)
	srv := New(":0", tr, reg)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr, met
}

func getJSON(t *testing.T, url string) status.StatusJSON {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return sj
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Update(logic.State{
		Mode:           "crossing",
		Phase:          "SECOND",
		Active:         true,
		RestartPending: true,
		Lights:         logic.Lights{Second: true},
	}, logic.Counts{Presses: 4, Starts: 1, RestartsQueued: 1}, 1)
	tr.SetMQTTConnected(true)

	resp, err := http.Get(ts.URL + "/index.json")
	if err != nil {
		t.Fatalf("GET /index.json: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q, want application/json", ct)
	}

	var sj status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&sj); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}

	s := sj.Status
	if s.Phase != "SECOND" {
		t.Errorf("Phase: got %q, want SECOND", s.Phase)
	}
	if !s.Active || !s.RestartPending {
		t.Errorf("unexpected flags: active=%v restart_pending=%v", s.Active, s.RestartPending)
	}
	if s.Lights != (status.LightsJSON{First: "OFF", Second: "ON", Third: "OFF"}) {
		t.Errorf("unexpected lights: %+v", s.Lights)
	}
	if !s.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if s.MQTT.Broker != "tcp://192.168.1.200:1883" {
		t.Errorf("MQTT.Broker: got %q", s.MQTT.Broker)
	}
	if s.Counts.Presses != 4 || s.Counts.RestartsQueued != 1 {
		t.Errorf("unexpected counts: %+v", s.Counts)
	}
	if s.PendingAlarms != 1 {
		t.Errorf("PendingAlarms: got %d, want 1", s.PendingAlarms)
	}
	if s.Config.DebounceMs != 200 {
		t.Errorf("Config.DebounceMs: got %d, want 200", s.Config.DebounceMs)
	}
}

func TestJSONUnknownPhaseBeforeUpdate(t *testing.T) {
	ts, _, _ := newTestServer(t)

	sj := getJSON(t, ts.URL+"/index.json")
	if sj.Status.Phase != "UNKNOWN" {
		t.Errorf("Phase before first update: got %q, want UNKNOWN", sj.Status.Phase)
	}
}

func TestHTMLEndpointRoot(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Update(logic.State{Mode: "crossing", Phase: "THIRD", Active: true, Lights: logic.Lights{Third: true}}, logic.Counts{}, 1)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type: got %q, want text/html", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `<td id="phase">THIRD</td>`) {
		t.Error("expected current phase in page")
	}
}

func TestHTMLEndpointIndexHTML(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/index.html")
	if err != nil {
		t.Fatalf("GET /index.html: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
}

func TestNotFoundForUnknownPath(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("GET /nonexistent: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _, met := newTestServer(t)
	met.Observe(logic.Event{Type: logic.EventPress, Phase: "IDLE"})
	met.SetState(logic.State{Active: true}, 1)

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Errorf("status: got %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`ledseq_events_total{type="PRESS"} 1`,
		`ledseq_active 1`,
		`ledseq_pending_alarms 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("expected %q in metrics output", want)
		}
	}
}

func TestMetricsDisabledWithoutGatherer(t *testing.T) {
	tr := status.NewTracker(time.Now(), status.Config{})
	ts := httptest.NewServer(New(":0", tr, nil).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestStateChangesReflectedInResponse(t *testing.T) {
	ts, tr, _ := newTestServer(t)

	sj1 := getJSON(t, ts.URL+"/index.json")
	if sj1.Status.Active {
		t.Error("expected Active=false initially")
	}

	tr.Update(logic.State{Mode: "crossing", Phase: "FIRST", Active: true, Lights: logic.Lights{First: true}}, logic.Counts{Presses: 1, Starts: 1}, 1)
	tr.SetMQTTConnected(true)

	sj2 := getJSON(t, ts.URL+"/index.json")
	if !sj2.Status.Active {
		t.Error("expected Active=true after update")
	}
	if sj2.Status.Lights.First != "ON" {
		t.Errorf("first output: got %q, want ON", sj2.Status.Lights.First)
	}
	if !sj2.Status.MQTT.Connected {
		t.Error("expected MQTT connected after update")
	}
}
