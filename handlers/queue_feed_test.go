package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/giygas/hospital-portal/apiclient/apitest"
	"github.com/giygas/hospital-portal/entities"
	"github.com/gorilla/websocket"
)

func dialFeed(t *testing.T, handler *HTTPHandlerImpl, s entities.Session) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(route("GET", "/ws/queue", handler.QueueFeed, &s))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/queue"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial queue feed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) queueMessage {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg queueMessage
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	return msg
}

func TestQueueFeedDoctor(t *testing.T) {
	handler, _, store := newTestHandler(t)
	s := signIn(t, store, entities.RoleDoctor)

	msg := readFrame(t, dialFeed(t, handler, s))

	if msg.Type != "queue" || msg.Role != "doctor" {
		t.Fatalf("Expected a doctor queue frame, got %+v", msg)
	}
	if len(msg.Items) != 1 || msg.Items[0].PatientName != "Ann" {
		t.Errorf("Expected today's queue, got %+v", msg.Items)
	}
}

func TestQueueFeedPatientGetsUpcomingOnly(t *testing.T) {
	handler, _, store := newTestHandler(t)
	s := signIn(t, store, entities.RolePatient)

	msg := readFrame(t, dialFeed(t, handler, s))

	if msg.Type != "queue" {
		t.Fatalf("Expected a queue frame, got %+v", msg)
	}
	if len(msg.Items) != 1 || msg.Items[0].ID != "1" {
		t.Errorf("Expected only the scheduled appointment, got %+v", msg.Items)
	}
}

func TestQueueFeedSendsChangesOnly(t *testing.T) {
	handler, api, store := newTestHandler(t)
	s := signIn(t, store, entities.RoleDoctor)
	conn := dialFeed(t, handler, s)

	first := readFrame(t, conn)
	if len(first.Items) != 1 {
		t.Fatalf("Expected one queued patient, got %d", len(first.Items))
	}

	// Several polls pass with the same queue before it changes
	time.Sleep(5 * handler.queuePoll)
	api.SetError("doctor_queue", apitest.ServerError())

	next := readFrame(t, conn)
	if next.Type != "error" {
		t.Errorf("Expected the changed content as the next frame, got %+v", next)
	}
	if api.CallCount("doctor_queue") < 3 {
		t.Errorf("Expected several polls, got %d", api.CallCount("doctor_queue"))
	}
}

func TestQueueFeedEndsWhenSessionExpires(t *testing.T) {
	handler, api, store := newTestHandler(t)
	s := signIn(t, store, entities.RoleDoctor)
	api.SetError("doctor_queue", apitest.Unauthorized())

	conn := dialFeed(t, handler, s)
	msg := readFrame(t, conn)

	if msg.Type != "expired" {
		t.Fatalf("Expected expired frame, got %+v", msg)
	}
	if store.Count() != 0 {
		t.Error("Expected the session to be cleared")
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Errorf("Expected a normal close, got %v", err)
	}
}

func TestQueueFeedEndsWithoutStoredSession(t *testing.T) {
	handler, api, _ := newTestHandler(t)
	s := entities.Session{ID: "gone", Token: "t", UserID: "7", Role: entities.RolePatient}

	msg := readFrame(t, dialFeed(t, handler, s))

	if msg.Type != "expired" {
		t.Fatalf("Expected expired frame, got %+v", msg)
	}
	if api.CallCount("appointments") != 0 {
		t.Error("A cleared session must not reach the API")
	}
}

func TestQueueFeedAbandonsFetchOnClose(t *testing.T) {
	handler, api, store := newTestHandler(t)
	s := signIn(t, store, entities.RoleDoctor)
	abandoned := api.Stall("doctor_queue")

	conn := dialFeed(t, handler, s)
	deadline := time.Now().Add(2 * time.Second)
	for api.CallCount("doctor_queue") == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	conn.Close()

	select {
	case <-abandoned:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected the running fetch to be cancelled when the client left")
	}
}

func TestQueueFeedReportsFetchErrors(t *testing.T) {
	handler, api, store := newTestHandler(t)
	s := signIn(t, store, entities.RoleDoctor)
	api.SetError("doctor_queue", apitest.ServerError())

	msg := readFrame(t, dialFeed(t, handler, s))

	if msg.Type != "error" || msg.Message != "internal error" {
		t.Errorf("Expected error frame with the API message, got %+v", msg)
	}
	if store.Count() != 1 {
		t.Error("A server error must keep the session")
	}
}
