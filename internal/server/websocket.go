package server

import (
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/autobrr/go-mediafix/internal/media"
)

// Ack answers every chunk received over the WebSocket.
type Ack struct {
	ID       string `json:"id,omitempty"`
	Seq      uint64 `json:"seq,omitempty"`
	Size     int    `json:"size"`
	Repaired bool   `json:"repaired"`
	Error    string `json:"error,omitempty"`
	Status   int    `json:"status"`
}

// handleWebSocket reads binary messages as consecutive chunks of one
// recording. The format query parameter sets the format, otherwise it is
// detected on the first chunk.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	format, err := media.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.fail(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(s.cfg.MaxUploadBytes)

	log := s.log.WithField("session", session)
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("websocket read failed")
			}
			return
		}
		if kind != websocket.BinaryMessage {
			if err := conn.WriteJSON(Ack{Error: "chunks must be binary messages", Status: http.StatusBadRequest}); err != nil {
				return
			}
			continue
		}

		ack := Ack{Size: len(data), Status: http.StatusOK}
		res, err := s.ingest(r.Context(), session, format, data)
		if err != nil {
			ack.Error = err.Error()
			ack.Status = statusFor(err)
		} else {
			ack.ID = res.record.ID
			ack.Seq = res.record.Seq
			ack.Repaired = res.repaired
			format = res.format
		}
		if err := conn.WriteJSON(ack); err != nil {
			log.WithError(err).Warn("websocket write failed")
			return
		}
	}
}
