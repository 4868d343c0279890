package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/wonny/patternscan/internal/scanner"
	"github.com/wonny/patternscan/internal/sink"
)

const (
	writeWait      = 10 * time.Second
	progressEvents = 100 // progress messages per scan, at most
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(_ *http.Request) bool { return true },
}

// StreamMessage is one websocket frame of a streamed scan
type StreamMessage struct {
	Type     string            `json:"type"` // progress | result | error
	Progress *scanner.Progress `json:"progress,omitempty"`
	Data     *sink.ScanData    `json:"data,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// StreamScan runs a fresh scan and streams progress, then the result
// GET /ws/scan/{strategy}
func (h *ScanHandler) StreamScan(w http.ResponseWriter, r *http.Request) {
	entry, err := h.registry.Get(mux.Vars(r)["strategy"])
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cancel the scan as soon as the peer goes away
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(msg StreamMessage) error {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(msg)
	}

	report, err := h.scanner.Run(ctx, entry, func(p scanner.Progress) {
		step := p.Total / progressEvents
		if step < 1 {
			step = 1
		}
		if p.Done%step != 0 && p.Done != p.Total {
			return
		}
		if err := send(StreamMessage{Type: "progress", Progress: &p}); err != nil {
			cancel()
		}
	})
	if err != nil {
		send(StreamMessage{Type: "error", Error: err.Error()})
		return
	}

	data := sink.NewScanData(report)
	if err := send(StreamMessage{Type: "result", Data: &data}); err != nil {
		h.logger.WithError(err).Debug("Client left before result")
		return
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"),
		time.Now().Add(writeWait))
}
