package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/events"
	"github.com/ternarybob/aestimo/internal/interfaces"
)

func newTestWebSocketHandler(t *testing.T) (*WebSocketHandler, *events.Service, *httptest.Server) {
	t.Helper()
	logger := arbor.NewLogger()
	eventService := events.NewService(10, logger)
	handler := NewWebSocketHandler(eventService, logger, &common.WebSocketConfig{SendRate: 100, SendBurst: 10})
	server := httptest.NewServer(http.HandlerFunc(handler.HandleWebSocket))
	t.Cleanup(func() {
		server.Close()
		eventService.Close()
	})
	return handler, eventService, server
}

func TestWebSocketReceivesJobEvents(t *testing.T) {
	_, eventService, server := newTestWebSocketHandler(t)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	// First message is the hello handshake
	var hello WSMessage
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("failed to read hello: %v", err)
	}
	if hello.Type != "hello" {
		t.Fatalf("first message type = %q, want hello", hello.Type)
	}

	eventService.Publish(interfaces.Event{
		Type:  interfaces.EventJobCreated,
		JobID: "job_ws_test",
	})

	var msg WSMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if msg.Type != string(interfaces.EventJobCreated) {
		t.Errorf("message type = %q, want %q", msg.Type, interfaces.EventJobCreated)
	}

	payload, ok := msg.Payload.(map[string]interface{})
	if !ok {
		t.Fatalf("payload type = %T, want map", msg.Payload)
	}
	if payload["job_id"] != "job_ws_test" {
		t.Errorf("job_id = %v, want job_ws_test", payload["job_id"])
	}
}

func TestWebSocketMultipleClients(t *testing.T) {
	_, eventService, server := newTestWebSocketHandler(t)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	const numClients = 3

	conns := make([]*websocket.Conn, numClients)
	for i := 0; i < numClients; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("failed to connect client %d: %v", i, err)
		}
		defer conn.Close()
		conn.SetReadDeadline(time.Now().Add(5 * time.Second))

		var hello WSMessage
		if err := conn.ReadJSON(&hello); err != nil {
			t.Fatalf("client %d failed to read hello: %v", i, err)
		}
		conns[i] = conn
	}

	eventService.Publish(interfaces.Event{
		Type:  interfaces.EventPaymentConfirmed,
		JobID: "job_fanout",
	})

	for i, conn := range conns {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("client %d failed to read event: %v", i, err)
		}
		if msg.Type != string(interfaces.EventPaymentConfirmed) {
			t.Errorf("client %d message type = %q, want %q", i, msg.Type, interfaces.EventPaymentConfirmed)
		}
	}
}

func TestRecentEventsHandler(t *testing.T) {
	logger := arbor.NewLogger()
	eventService := events.NewService(10, logger)
	defer eventService.Close()
	handler := NewWebSocketHandler(eventService, logger, nil)

	eventService.Publish(interfaces.Event{Type: interfaces.EventJobCreated, JobID: "job_1"})
	eventService.Publish(interfaces.Event{Type: interfaces.EventJobCompleted, JobID: "job_1"})

	req := httptest.NewRequest(http.MethodGet, "/events/recent", nil)
	w := httptest.NewRecorder()

	handler.RecentEventsHandler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "job_created") {
		t.Errorf("response missing job_created event: %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"count":2`) {
		t.Errorf("response missing count: %s", w.Body.String())
	}
}
