package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, hub *EventHub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func waitForClients(t *testing.T, hub *EventHub, want int) {
	t.Helper()
	waitFor(t, 2*time.Second, func() bool {
		return hub.ClientCount() == want
	})
}

func TestEventHubBroadcast(t *testing.T) {
	hub := NewEventHub()
	conn := dialHub(t, hub)
	defer conn.Close()

	waitForClients(t, hub, 1)

	hub.Broadcast(EventGroupOpened, map[string]string{"uuid": "g-1"})

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if event.Type != EventGroupOpened {
		t.Errorf("type = %s, want %s", event.Type, EventGroupOpened)
	}
	payload, ok := event.Payload.(map[string]interface{})
	if !ok || payload["uuid"] != "g-1" {
		t.Errorf("payload = %v", event.Payload)
	}
}

func TestEventHubMultipleClients(t *testing.T) {
	hub := NewEventHub()
	a := dialHub(t, hub)
	defer a.Close()
	b := dialHub(t, hub)
	defer b.Close()

	waitForClients(t, hub, 2)

	hub.Broadcast(EventAlertIngested, map[string]string{"uuid": "a-1"})

	for _, conn := range []*websocket.Conn{a, b} {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var event Event
		if err := conn.ReadJSON(&event); err != nil {
			t.Fatalf("ReadJSON: %v", err)
		}
		if event.Type != EventAlertIngested {
			t.Errorf("type = %s", event.Type)
		}
	}
}

func TestEventHubDropsDisconnectedClients(t *testing.T) {
	hub := NewEventHub()
	conn := dialHub(t, hub)

	waitForClients(t, hub, 1)

	conn.Close()
	waitForClients(t, hub, 0)
}
