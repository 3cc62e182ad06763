package ws

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/emmett/hark/internal/session"
)

// handleRecognize upgrades the request and runs the connection loop until
// the peer goes away
func (s *Server) handleRecognize(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}
	s.serveConn(r.Context(), conn)
}

// serveConn bridges the inbound frame sequence to a session. Frames are
// processed strictly in arrival order; a bad frame is logged and skipped,
// never fatal. Only transport-level failures end the loop.
func (s *Server) serveConn(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	log := s.log.With(
		"conn_id", uuid.NewString(),
		"remote_addr", conn.RemoteAddr().String(),
	)

	rec, err := s.engine.NewRecognizer()
	if err != nil {
		log.Error("failed to create recognizer", "error", err)
		return
	}

	sess := session.New(rec)
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("session close failed", "error", err)
		}
		log.Info("connection closed")
	}()

	log.Info("client connected")

	for {
		msgType, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				log.Warn("connection read failed", "error", err)
			}
			return
		}

		// Audio frames are binary; anything else is skipped.
		if msgType != websocket.BinaryMessage {
			log.Debug("skipping non-binary message", "message_type", msgType)
			continue
		}

		evt, err := sess.Accept(ctx, payload)
		if err != nil {
			// A single bad chunk never closes the connection.
			log.Warn("failed to process audio chunk", "error", err, "bytes", len(payload))
			continue
		}
		if evt == nil {
			continue
		}

		log.Info("stream flushed", "text", evt.Text)
		if err := conn.WriteJSON(evt); err != nil {
			log.Warn("failed to send result", "error", err)
			return
		}
	}
}
