package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/volunteerapp/program-server/internal/feed"
	"github.com/volunteerapp/program-server/internal/presence"
	"github.com/volunteerapp/program-server/internal/repository"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The admin dashboard and the API are served from different
	// origins; access control happens via the JWT on the upgrade
	// request, not the Origin header.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// FeedHandler upgrades admin connections onto the presence feed.
type FeedHandler struct {
	Hub      *feed.Hub
	Tracker  *presence.Tracker
	Programs *repository.ProgramRepo
}

func NewFeedHandler(h *feed.Hub, t *presence.Tracker, p *repository.ProgramRepo) *FeedHandler {
	return &FeedHandler{Hub: h, Tracker: t, Programs: p}
}

// Subscribe upgrades the request to a WebSocket and streams presence
// snapshots for the program until the client disconnects.  A recount
// is triggered right after attach so the new subscriber gets an
// immediate snapshot instead of waiting for the next join or leave.
func (h *FeedHandler) Subscribe(c echo.Context) error {
	uid, ok := currentUserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if _, err := h.Programs.GetByIDForOwner(ctx, id, uid); err != nil {
		return repoError(c, err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	sub := h.Hub.Attach(id)
	go h.writePump(conn, sub)
	go h.readPump(conn, sub)

	go func() {
		rctx, rcancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer rcancel()
		_, _ = h.Tracker.Recount(rctx, id)
	}()
	return nil
}

// writePump forwards broadcast snapshots to the connection and keeps
// it alive with pings.
func (h *FeedHandler) writePump(conn *websocket.Conn, sub *feed.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.Close()
		_ = conn.Close()
	}()
	for {
		select {
		case msg, ok := <-sub.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains the connection so control frames are processed and
// a client disconnect detaches the subscription.
func (h *FeedHandler) readPump(conn *websocket.Conn, sub *feed.Subscription) {
	defer func() {
		sub.Close()
		_ = conn.Close()
	}()
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
