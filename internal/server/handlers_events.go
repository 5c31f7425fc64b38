package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"stagehand/internal/api"
	"stagehand/internal/logging"
	"stagehand/internal/pubsub"
)

const (
	defaultEventLimit = 200
	// maxFollowWait keeps a long-poll inside the server write timeout.
	maxFollowWait = 25 * time.Second
	writeWait     = 10 * time.Second
	maxClientMsg  = 512
)

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var topic pubsub.Topic
	if raw := strings.TrimSpace(query.Get("topic")); raw != "" {
		parsed, err := pubsub.ParseTopic(raw)
		if err != nil {
			s.writeError(w, r, badRequest("%v", err))
			return
		}
		topic = parsed
	}
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = defaultEventLimit
	}
	follow := query.Get("follow") == "1" || strings.EqualFold(query.Get("follow"), "true")

	ctx := r.Context()
	if follow {
		wait := maxFollowWait
		if timeout := time.Duration(s.cfg.Server.WriteTimeout) * time.Second; timeout > 0 && timeout-time.Second < wait {
			wait = max(timeout-time.Second, time.Second)
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}

	page, err := s.deps.Hub.Fetch(ctx, topic, since, limit, follow)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		if errors.Is(err, context.Canceled) {
			return
		}
		if !errors.Is(err, pubsub.ErrClosed) {
			s.writeError(w, r, err)
			return
		}
	}
	if page.Events == nil {
		page.Events = []pubsub.Event{}
	}
	s.writeJSON(w, r, http.StatusOK, api.EventsResponse{
		Events: page.Events,
		Next:   page.Next,
		Oldest: page.Oldest,
		Gap:    page.Gap,
	})
}

// handleSubscription streams one topic over a websocket until the client
// disconnects, the notifier closes, or the server shuts down.
func (s *Server) handleSubscription(w http.ResponseWriter, r *http.Request) {
	topic, err := pubsub.ParseTopic(r.PathValue("topic"))
	if err != nil {
		s.writeError(w, r, notFound("%v", err))
		return
	}
	sub, err := s.deps.Hub.Subscribe(topic)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	defer sub.Close()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log(r).Debug("websocket upgrade failed", logging.Error(err))
		return
	}
	defer conn.Close()

	logger := s.log(r).With(
		logging.String(logging.FieldTopic, string(topic)),
		logging.String("subscription_id", sub.ID),
	)
	logger.Info("subscriber connected")

	ping := s.cfg.PingInterval()
	if ping <= 0 {
		ping = 30 * time.Second
	}
	pongWait := ping * 2

	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		conn.SetReadLimit(maxClientMsg)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(ping)
	defer ticker.Stop()

	reason := "client disconnected"
	defer func() {
		logger.Info("subscriber disconnected",
			logging.String("reason", reason),
			logging.Uint64("dropped", sub.Dropped()),
		)
	}()

	for {
		select {
		case <-clientGone:
			return
		case <-s.closing:
			reason = "server shutting down"
			s.closeSocket(conn, websocket.CloseGoingAway, reason)
			return
		case evt, ok := <-sub.Events():
			if !ok {
				reason = "notifier closed"
				s.closeSocket(conn, websocket.CloseGoingAway, reason)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(evt); err != nil {
				reason = "write failed"
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				reason = "ping failed"
				return
			}
		}
	}
}

func (s *Server) closeSocket(conn *websocket.Conn, code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
}

// checkOrigin admits requests without an Origin header, same-host origins,
// and origins listed in server.allowed_origins ("*" admits all).
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.Server.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin) {
			return true
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}
