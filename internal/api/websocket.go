package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const wsWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// IngestWebSocket streams ingestion progress as one JSON text message per
// event and closes normally after the terminal event.
func (h *Handler) IngestWebSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	partial := partialMetadata(id, r.URL.Query().Get("metadata"))

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "book_id", id, "error", err)
		return
	}
	defer conn.Close()

	sub := h.ingest.Subscribe(partial)
	defer sub.Close()

	// Reads only surface the peer closing the connection.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			h.logger.Debug("ingestion websocket consumer left", "book_id", id)
			return
		case e, ok := <-sub.Events:
			if !ok {
				msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
				_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(wsWriteWait))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(e); err != nil {
				h.logger.Debug("ingestion websocket write failed", "book_id", id, "error", err)
				return
			}
		}
	}
}
