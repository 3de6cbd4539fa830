package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/patiponrmutl/ScanAttendance/notify"
)

const (
	writeTimeout = 10 * time.Second
	pingEvery    = 60 * time.Second
)

// FeedHandler ส่งเหตุการณ์สดให้หน้าจอผ่าน websocket
type FeedHandler struct {
	hub  *notify.Hub
	upgr *websocket.Upgrader
}

func NewFeedHandler(hub *notify.Hub) *FeedHandler {
	return &FeedHandler{
		hub: hub,
		// หน้าจอสถานีเปิดจาก origin อื่นได้ (เหมือน CORS ที่เปิดไว้)
		upgr: &websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
}

// GET /ws
func (h *FeedHandler) Serve(c echo.Context) error {
	wc, err := h.upgr.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("[feed] ws upgrade failed, err: %v", err)
		return nil
	}
	events, cancel := h.hub.Subscribe(64)
	t := time.NewTicker(pingEvery)
	defer t.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		writeFeed(wc, events, t)
	}()

	err = readFeed(wc)
	cancel()
	<-done
	if err != nil {
		log.Printf("[feed] ws read failed, err: %v", err)
	}
	return nil
}

// readFeed drains client frames until the peer goes away. The feed is
// one-way, so anything the client sends is discarded.
func readFeed(wc *websocket.Conn) error {
	for {
		if _, _, err := wc.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				return err
			}
			return nil // client disconnected
		}
	}
}

func writeFeed(wc *websocket.Conn, events <-chan notify.Event, t *time.Ticker) {
	defer wc.Close()
Outer:
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				break Outer
			}
			wc.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := wc.WriteJSON(ev); err != nil {
				return
			}
		case <-t.C:
			wc.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := wc.WriteMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		}
	}
	wc.SetWriteDeadline(time.Now().Add(writeTimeout))
	wc.WriteMessage(websocket.CloseMessage, []byte{})
}
