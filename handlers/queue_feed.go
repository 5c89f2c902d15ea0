package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/giygas/hospital-portal/apiclient"
	"github.com/giygas/hospital-portal/entities"
	"github.com/giygas/hospital-portal/logging"
	"github.com/giygas/hospital-portal/metrics"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxInboundSize = 512
)

// queueMessage is one frame of the live queue feed.
type queueMessage struct {
	Type    string                 `json:"type"` // queue, error or expired
	Role    string                 `json:"role,omitempty"`
	Items   []entities.Appointment `json:"items,omitempty"`
	Message string                 `json:"message,omitempty"`
}

// QueueFeed upgrades to a websocket and pushes the caller's queue every
// poll interval: a doctor gets today's queue, a patient their upcoming
// appointments. A frame is only sent when the content changed. The feed
// ends when the session is gone or the hospital API rejects its token.
func (h *HTTPHandlerImpl) QueueFeed(w http.ResponseWriter, r *http.Request) {
	s := currentSession(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("Queue feed upgrade failed", "user_id", s.UserID, "error", err)
		return
	}
	defer conn.Close()

	metrics.QueueSubscribers.Inc()
	defer metrics.QueueSubscribers.Dec()
	logging.Info("Queue feed opened", "user_id", s.UserID, "role", s.Role.String())

	// Inbound frames are only read for control messages and close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(maxInboundSize)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// A fetch still running when the client goes away is abandoned.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-closed:
			cancel()
		case <-ctx.Done():
		}
	}()

	poll := time.NewTicker(h.queuePoll)
	defer poll.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	feed := &queueFeed{h: h, conn: conn, s: s}
	if !feed.push(ctx) {
		return
	}

	for {
		select {
		case <-closed:
			logging.Info("Queue feed closed", "user_id", s.UserID)
			return
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-poll.C:
			if !feed.push(ctx) {
				return
			}
		}
	}
}

type queueFeed struct {
	h    *HTTPHandlerImpl
	conn *websocket.Conn
	s    entities.Session
	last []byte
}

// push sends the current queue. It reports false when the feed must end.
func (f *queueFeed) push(ctx context.Context) bool {
	if _, ok := f.h.store.Load(ctx, f.s.ID); !ok {
		f.end("session ended")
		return false
	}

	items, err := f.fetch(ctx)
	if err != nil {
		if sessionExpired(err) {
			f.h.auth.Logout(ctx, f.s.ID)
			f.end("session expired")
			return false
		}
		logging.Warn("Queue feed fetch failed", "user_id", f.s.UserID, "error", err)
		return f.send(queueMessage{Type: "error", Message: apiclient.UserMessage(err)})
	}

	return f.send(queueMessage{Type: "queue", Role: f.s.Role.String(), Items: items})
}

func (f *queueFeed) fetch(ctx context.Context) ([]entities.Appointment, error) {
	if f.s.Role == entities.RoleDoctor {
		return f.h.api.DoctorQueue(ctx, f.s.Token)
	}

	appointments, err := f.h.api.Appointments(ctx, f.s.Token)
	if err != nil {
		return nil, err
	}
	upcoming := make([]entities.Appointment, 0, len(appointments))
	for _, a := range appointments {
		if a.Status.Upcoming() {
			upcoming = append(upcoming, a)
		}
	}
	return upcoming, nil
}

func (f *queueFeed) send(msg queueMessage) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		logging.Error("Failed to marshal queue frame", "error", err)
		return false
	}
	if bytes.Equal(data, f.last) {
		return true
	}

	f.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := f.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		logging.Debug("Queue feed write failed", "user_id", f.s.UserID, "error", err)
		return false
	}
	f.last = data
	return true
}

func (f *queueFeed) end(reason string) {
	f.send(queueMessage{Type: "expired", Message: reason})
	f.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason),
		time.Now().Add(writeWait))
	logging.Info("Queue feed ended", "user_id", f.s.UserID, "reason", reason)
}
