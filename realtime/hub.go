// Package realtime pushes order events to websocket subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"food-order-service/apperrors"
	"food-order-service/middleware"
	"food-order-service/models"
	"food-order-service/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 32
)

// tokenExpirer is implemented by authenticators that can report a token's
// expiry, so the connection is closed when the token runs out.
type tokenExpirer interface {
	ExpiresAt(token string) (time.Time, error)
}

type subscriber struct {
	conn  *websocket.Conn
	send  chan []byte
	token string

	// guarded by Hub.mu
	userID    uint
	isAdmin   bool
	closeCode int
}

func (s *subscriber) wants(o *models.Order) bool {
	return s.isAdmin || o.UserID == s.userID
}

// Hub fans order events out to connected clients. Admins see every order,
// customers only their own. The subscriber's token is checked again before
// every delivery and on every ping, so a deactivated, demoted or expired
// account stops receiving events. A client whose buffer is full is
// disconnected.
type Hub struct {
	mu       sync.Mutex
	subs     map[*subscriber]struct{}
	auth     middleware.TokenAuthenticator
	upgrader websocket.Upgrader
	log      *logrus.Logger
}

func NewHub(auth middleware.TokenAuthenticator, log *logrus.Logger) *Hub {
	return &Hub{
		subs: make(map[*subscriber]struct{}),
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// CORS is enforced at the HTTP layer; the token is the gate here.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// PublishOrder implements service.Publisher.
func (h *Hub) PublishOrder(ev service.OrderEvent) {
	if ev.Order == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		h.log.WithError(err).Error("encode order event")
		return
	}

	for _, s := range h.snapshot() {
		if !h.reauthenticate(s) {
			continue
		}
		h.deliver(s, ev.Order, data)
	}
}

func (h *Hub) deliver(s *subscriber, o *models.Order, data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; !ok || !s.wants(o) {
		return
	}
	select {
	case s.send <- data:
	default:
		h.log.WithField("user_id", s.userID).Warn("dropping slow websocket subscriber")
		h.removeLocked(s, websocket.CloseTryAgainLater)
	}
}

// reauthenticate reloads the subscriber's account and refreshes its role. A
// subscriber whose token no longer authenticates is disconnected.
func (h *Hub) reauthenticate(s *subscriber) bool {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	user, err := h.auth.Authenticate(ctx, s.token)

	h.mu.Lock()
	defer h.mu.Unlock()
	if err != nil {
		entry := h.log.WithError(err).WithField("user_id", s.userID)
		if apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
			// Keep the connection but skip this delivery.
			entry.Warn("could not verify websocket subscriber")
			return false
		}
		entry.Info("websocket subscriber no longer authorized")
		h.removeLocked(s, websocket.ClosePolicyViolation)
		return false
	}
	s.userID = user.ID
	s.isAdmin = user.IsAdmin
	return true
}

// RevokeUser disconnects every subscription held by userID. It implements
// service.SessionRevoker.
func (h *Hub) RevokeUser(userID uint) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		if s.userID == userID {
			h.removeLocked(s, websocket.ClosePolicyViolation)
		}
	}
}

// Subscribers reports the number of connected clients.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) snapshot() []*subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*subscriber, 0, len(h.subs))
	for s := range h.subs {
		out = append(out, s)
	}
	return out
}

func (h *Hub) add(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[s] = struct{}{}
}

func (h *Hub) remove(s *subscriber, code int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(s, code)
}

// removeLocked closes the send channel; the write loop then sends a close
// frame carrying code.
func (h *Hub) removeLocked(s *subscriber, code int) {
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		s.closeCode = code
		close(s.send)
	}
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		h.removeLocked(s, websocket.CloseGoingAway)
	}
}

// ServeWS upgrades an authenticated request to a websocket subscription.
func (h *Hub) ServeWS(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		middleware.Abort(c, apperrors.Unauthorized("authentication required"))
		return
	}
	token := middleware.CurrentToken(c)

	var expires time.Time
	if te, ok := h.auth.(tokenExpirer); ok {
		exp, err := te.ExpiresAt(token)
		if err != nil {
			middleware.Abort(c, err)
			return
		}
		expires = exp
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.WithError(err).Debug("websocket upgrade failed")
		return
	}

	s := &subscriber{
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		token:   token,
		userID:  user.ID,
		isAdmin: user.IsAdmin,
	}
	h.add(s)
	h.log.WithFields(logrus.Fields{"user_id": user.ID, "admin": user.IsAdmin}).Debug("websocket subscriber connected")

	if !expires.IsZero() {
		timer := time.AfterFunc(time.Until(expires), func() {
			h.log.WithField("user_id", user.ID).Debug("websocket token expired")
			h.remove(s, websocket.ClosePolicyViolation)
		})
		defer timer.Stop()
	}

	go h.writeLoop(s)
	h.readLoop(s)
}

// readLoop discards client messages and returns when the connection drops.
func (h *Hub) readLoop(s *subscriber) {
	defer func() {
		h.remove(s, websocket.CloseNormalClosure)
		s.conn.Close()
	}()
	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writeLoop(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(s.closeCode, "subscription ended"))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			// A revoked subscriber has its send channel closed, which the
			// next iteration picks up.
			h.reauthenticate(s)
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
