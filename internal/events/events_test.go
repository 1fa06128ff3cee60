package events

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/main"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var env Envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return env
}

func newTestConnectSequence() ConnectSequence {
	return ConnectSequence{
		FeaturesEnabled: func() map[string]bool { return map[string]bool{"adsb": false} },
		Terms:           func() []string { return []string{"WN4899"} },
		Labels:          func() map[string]string { return map[string]string{"5Z": "misc"} },
		Database:        func() map[string]any { return map[string]any{"connected": true} },
		Signal:          func() map[string]any { return map[string]any{} },
		AlertTerms:      func() []string { return []string{"WN4899"} },
		Version:         "test",
		RecentMessages: func(yield func(batch any, loading bool, done bool)) {
			yield([]string{"m1"}, true, false)
			yield([]string{"m2"}, true, true)
		},
		RecentAlertMatches: func(yield func(batch any, loading bool, done bool)) {
			yield([]string{}, true, true)
		},
	}
}

func TestConnectSequenceOrderWhenNotMigrating(t *testing.T) {
	cs := newTestConnectSequence()
	srv := New(cs.Run, func() bool { return true })
	srv.SetMigrationRunning(false)

	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn := dial(t, ts)
	defer conn.Close()

	wantOrder := []string{
		"features_enabled", "terms", "labels", "database", "signal",
		"alert_terms", "acarshub_version", "acars_msg_batch", "acars_msg_batch",
		"alert_matches_batch",
	}
	for i, want := range wantOrder {
		env := readEvent(t, conn)
		if env.Event != want {
			t.Fatalf("event %d: got %s, want %s", i, env.Event, want)
		}
	}
}

func TestMigrationGateParksSocketAndDrainsOnClear(t *testing.T) {
	cs := newTestConnectSequence()
	srv := New(cs.Run, func() bool { return true })
	// migrationRunning starts true by construction.

	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn := dial(t, ts)
	defer conn.Close()

	env := readEvent(t, conn)
	if env.Event != "migration_status" {
		t.Fatalf("expected migration_status first, got %s", env.Event)
	}

	srv.SetMigrationRunning(false)

	env = readEvent(t, conn)
	if env.Event != "migration_status" {
		t.Fatalf("expected migration_status{running:false} after clear, got %s", env.Event)
	}
	env = readEvent(t, conn)
	if env.Event != "features_enabled" {
		t.Fatalf("expected connect sequence to run after migration clears, got %s", env.Event)
	}
}

func TestBroadcastReachesAllSockets(t *testing.T) {
	srv := New(func(s *Socket) {}, func() bool { return true })
	srv.SetMigrationRunning(false)

	ts := httptest.NewServer(srv)
	defer ts.Close()

	a := dial(t, ts)
	defer a.Close()
	b := dial(t, ts)
	defer b.Close()

	// Give the server a moment to register both sockets before broadcasting.
	time.Sleep(50 * time.Millisecond)
	srv.Broadcast("terms", []string{"INTEGTEST1"})

	for _, conn := range []*websocket.Conn{a, b} {
		env := readEvent(t, conn)
		if env.Event != "terms" {
			t.Fatalf("expected terms broadcast, got %s", env.Event)
		}
	}
}

func TestRequireRemoteUpdatesRejectsWhenDisabled(t *testing.T) {
	var updated bool
	srv := New(func(s *Socket) {}, func() bool { return false })
	srv.SetMigrationRunning(false)
	Register(srv, HandlerDeps{
		UpdateAlerts: func(terms, ignore []string) error {
			updated = true
			return nil
		},
	})

	ts := httptest.NewServer(srv)
	defer ts.Close()

	conn := dial(t, ts)
	defer conn.Close()

	if err := conn.WriteJSON(Envelope{Event: "update_alerts", Data: []byte(`{"terms":["X"],"ignore":[]}`)}); err != nil {
		t.Fatalf("write: %v", err)
	}

	env := readEvent(t, conn)
	if env.Event != "remote_update_rejected" {
		t.Fatalf("expected remote_update_rejected, got %s", env.Event)
	}
	if updated {
		t.Fatalf("expected UpdateAlerts to never be called while remote updates are disabled")
	}
}
