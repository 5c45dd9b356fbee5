package web

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sweeney/hall-direction/internal/broadcast"
	"github.com/sweeney/hall-direction/internal/logic"
	"github.com/sweeney/hall-direction/internal/status"
	"github.com/sweeney/hall-direction/internal/ws"
)

func newTestServer(t *testing.T) (*httptest.Server, *status.Tracker, *broadcast.Broadcaster) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := status.Config{
		PollMs:      50,
		DebounceMs:  100,
		HeartbeatMs: 900000,
		Broker:      "tcp://192.168.1.200:1883",
		HTTPAddr:    ":8080",
		PinLeft:     17,
		PinRight:    27,
	}
	tr := status.NewTracker(start, cfg)
	hub := broadcast.New(logger)
	srv := New(":0", tr, ws.NewHandler(hub, ws.Options{}, logger))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, tr, hub
}

func TestJSONEndpoint(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Update(true, false, logic.StateLeftArmed, logic.EventCounts{Left: 5, Right: 2})
	tr.SetMQTTConnected(true)
	tr.SetSubscribers(1)

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

	if sj.Status.Left != "ACTIVE" {
		t.Errorf("Left: got %q, want ACTIVE", sj.Status.Left)
	}
	if sj.Status.Right != "INACTIVE" {
		t.Errorf("Right: got %q, want INACTIVE", sj.Status.Right)
	}
	if sj.Status.State != "LEFT_ARMED" {
		t.Errorf("State: got %q, want LEFT_ARMED", sj.Status.State)
	}
	if sj.Status.Subscribers != 1 {
		t.Errorf("Subscribers: got %d, want 1", sj.Status.Subscribers)
	}
	if !sj.Status.MQTT.Connected {
		t.Error("expected MQTT.Connected=true")
	}
	if sj.Status.Counts.Left != 5 || sj.Status.Counts.Right != 2 {
		t.Errorf("Counts: got %+v", sj.Status.Counts)
	}
	if sj.Status.Config.PollMs != 50 {
		t.Errorf("Config.PollMs: got %d, want 50", sj.Status.Config.PollMs)
	}
}

func TestHTMLIndex(t *testing.T) {
	ts, tr, _ := newTestServer(t)
	tr.Update(false, true, logic.StateRightArmed, logic.EventCounts{Left: 7})
	tr.RecordEvent(logic.Event{Timestamp: time.Date(2026, 1, 1, 0, 0, 9, 0, time.UTC), Direction: logic.DirectionLeft})

	for _, path := range []string{"/", "/index.html"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != 200 {
			t.Errorf("%s status: got %d, want 200", path, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
			t.Errorf("%s Content-Type: got %q", path, ct)
		}
		html := string(body)
		for _, want := range []string{"Hall Direction", "RIGHT_ARMED", "LEFT at 2026-01-01T00:00:09Z", "<td>7</td>", "left 17, right 27"} {
			if !strings.Contains(html, want) {
				t.Errorf("%s: missing %q", path, want)
			}
		}
	}
}

func TestNotFound(t *testing.T) {
	ts, _, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatalf("GET /nope: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status: got %d, want 404", resp.StatusCode)
	}
}

func TestWebsocketOnRootAndWSPath(t *testing.T) {
	ts, _, hub := newTestServer(t)
	base := "ws" + strings.TrimPrefix(ts.URL, "http")

	var conns []*websocket.Conn
	for _, path := range []string{"/", "/ws"} {
		conn, _, err := websocket.DefaultDialer.Dial(base+path, nil)
		if err != nil {
			t.Fatalf("dial %s: %v", path, err)
		}
		t.Cleanup(func() { conn.Close() })
		conns = append(conns, conn)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.Len() != 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.Len() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", hub.Len())
	}

	hub.Broadcast("Moved left!")
	for i, c := range conns {
		c.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := c.ReadMessage()
		if err != nil {
			t.Fatalf("conn %d read: %v", i, err)
		}
		if string(data) != "Moved left!" {
			t.Errorf("conn %d: got %q", i, data)
		}
	}
}
