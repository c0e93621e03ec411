package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/image-contest/internal/engine"
	"github.com/DoyleJ11/image-contest/internal/hub"
	"github.com/DoyleJ11/image-contest/internal/session"
	"github.com/DoyleJ11/image-contest/internal/types"
)

type Options struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	OriginPatterns []string
}

func Handler(h *hub.Hub, opts Options, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}

		s := h.Get(code)
		if s == nil {
			http.Error(w, "contest not found", http.StatusNotFound)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Info("websocket accept failed", zap.String("code", code), zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		clog := log.With(zap.String("code", code), zap.String("client", clientID))

		out := make(chan session.Snapshot, 8)
		if err := s.Send(r.Context(), session.Join{ClientID: clientID, Outbox: out}); err != nil {
			conn.Close(websocket.StatusGoingAway, "contest closed")
			return
		}
		defer func() { _ = s.Send(context.Background(), session.Leave{ClientID: clientID}) }()
		clog.Debug("websocket connected")

		// Writer goroutine. A closed outbox means the contest went away.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case snap, ok := <-out:
					if !ok {
						conn.Close(websocket.StatusGoingAway, "contest closed")
						return
					}
					view := types.NewContestView(snap)
					if err := writeMessage(writeCtx, conn, opts.WriteTimeout, types.ServerMessage{Type: "StateSnapshot", Contest: &view}); err != nil {
						clog.Debug("snapshot write failed", zap.Error(err))
					}
				case <-writeCtx.Done():
					return
				}
			}
		}()

		// Reader loop
		for {
			ctx, cancel := context.WithTimeout(r.Context(), opts.ReadTimeout)
			_, data, err := conn.Read(ctx)
			cancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					clog.Debug("websocket read ended", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				sendError(r.Context(), conn, opts.WriteTimeout, "bad json")
				continue
			}

			cmd, ok := toEngineCommand(cm)
			if !ok {
				sendError(r.Context(), conn, opts.WriteTimeout, "unknown type")
				continue
			}

			// The resulting snapshot reaches this client through the outbox;
			// only failures are answered directly.
			if _, err := s.Do(r.Context(), cmd, cm.Version); err != nil {
				if errors.Is(err, session.ErrClosed) {
					return
				}
				sendError(r.Context(), conn, opts.WriteTimeout, err.Error())
			}
		}
	}
}

func toEngineCommand(m types.ClientMessage) (engine.Command, bool) {
	switch m.Type {
	case "SelectWinner":
		if m.WinnerID == nil {
			return engine.Command{}, false
		}
		return engine.Command{Type: engine.CmdSelectWinner, WinnerID: *m.WinnerID}, true
	default:
		return engine.Command{}, false
	}
}

func sendError(ctx context.Context, conn *websocket.Conn, timeout time.Duration, msg string) {
	_ = writeMessage(ctx, conn, timeout, types.ServerMessage{Type: "Error", Error: msg})
}

func writeMessage(ctx context.Context, conn *websocket.Conn, timeout time.Duration, msg types.ServerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, payload)
}
