package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"

	"github.com/foxseedlab/gijirokun/internal/session"
)

const wsReadLimit = 1 << 20 // audio frames stay well under 1 MiB

// wsSubscriber adapts one websocket connection to the session broadcast
// channel. Events go out as text frames.
type wsSubscriber struct {
	conn *websocket.Conn
}

func (s *wsSubscriber) Send(ctx context.Context, data []byte) error {
	return s.conn.Write(ctx, websocket.MessageText, data)
}

// A fetched session can be evicted before Subscribe lands when another
// client's disconnect races the handshake; each retry fetches a fresh one.
const subscribeAttempts = 3

// handleWebSocket attaches one client to a meeting session. Binary frames
// carry raw PCM audio; text frames carry commands. The client receives a
// state snapshot immediately, then every update until it disconnects.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.registry.GetOrCreate(r.Context(), id); err != nil {
		slog.Error("failed to open session", "error", err, "meeting_id", id)
		writeError(w, http.StatusInternalServerError, "failed to open session")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Warn("websocket accept failed", "error", err, "meeting_id", id)
		return
	}
	conn.SetReadLimit(wsReadLimit)

	sub := &wsSubscriber{conn: conn}
	var sess *session.Session
	for attempt := 0; attempt < subscribeAttempts; attempt++ {
		current, err := s.registry.GetOrCreate(r.Context(), id)
		if err != nil {
			slog.Error("failed to open session", "error", err, "meeting_id", id)
			conn.Close(websocket.StatusInternalError, "failed to open session")
			return
		}
		if current.Subscribe(sub) {
			sess = current
			break
		}
	}
	if sess == nil {
		slog.Warn("subscriber could not join session", "meeting_id", id)
		conn.Close(websocket.StatusInternalError, "failed to join session")
		return
	}
	defer s.registry.Release(sess, sub)
	slog.Info("subscriber joined", "meeting_id", id)

	ctx := r.Context()
	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			slog.Info("subscriber left", "meeting_id", id)
			conn.Close(websocket.StatusNormalClosure, "")
			return
		}
		switch msgType {
		case websocket.MessageBinary:
			sess.PushAudio(data)
		case websocket.MessageText:
			s.dispatchCommand(ctx, sess, sub, data)
		}
	}
}

// dispatchCommand handles one inbound text command. Lifecycle replies go to
// the requesting client only; state changes reach everyone through the
// broadcast.
func (s *Server) dispatchCommand(ctx context.Context, sess *session.Session, sub *wsSubscriber, data []byte) {
	var cmd session.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		s.replyError(ctx, sub, "invalid command")
		return
	}

	switch cmd.Type {
	case session.CommandStartRecording:
		if sess.StartStreaming(ctx) {
			s.reply(ctx, sub, session.SignalEventJSON(session.EventRecordingStarted))
		} else {
			s.replyError(ctx, sub, "recording already in progress")
		}
	case session.CommandStopRecording:
		if sess.StopStreaming(ctx) {
			if err := sub.Send(ctx, sess.StateEventJSON(session.EventRecordingStopped)); err != nil {
				slog.Warn("failed to deliver stop confirmation", "error", err, "meeting_id", sess.ID())
			}
		} else {
			s.replyError(ctx, sub, "no recording in progress")
		}
	case session.CommandUpdateTitle:
		sess.UpdateTitle(cmd.Title)
	default:
		s.replyError(ctx, sub, "unknown command type")
	}
}

func (s *Server) reply(ctx context.Context, sub *wsSubscriber, data []byte) {
	if err := sub.Send(ctx, data); err != nil {
		slog.Warn("failed to deliver reply", "error", err)
	}
}

func (s *Server) replyError(ctx context.Context, sub *wsSubscriber, message string) {
	s.reply(ctx, sub, session.ErrorEventJSON(message))
}
