package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/DoyleJ11/image-contest/internal/engine"
	"github.com/DoyleJ11/image-contest/internal/hub"
	"github.com/DoyleJ11/image-contest/internal/session"
	"github.com/DoyleJ11/image-contest/internal/types"
)

func GenerateCode() (string, error) {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	code := make([]byte, 6)
	for i := 0; i < 6; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		code[i] = charset[num.Int64()]
	}
	return string(code), nil
}

func CreateContest(h *hub.Hub, maxImages int, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.CreateContestRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
			return
		}
		if len(req.Images) > maxImages {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d images per contest, got %d", maxImages, len(req.Images)))
			return
		}

		state, err := engine.CreateContestState(req.Images)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		history, state, err := engine.Apply(state, engine.Command{Type: engine.CmdStartContest})
		if err != nil {
			writeEngineError(w, err)
			return
		}

		var code string
		for {
			c, err := GenerateCode()
			if err != nil {
				writeError(w, http.StatusInternalServerError, "failed to generate code")
				return
			}
			if h.Get(c) == nil {
				code = c
				break
			}
			log.Debug("collision on code, regenerating", zap.String("code", c))
		}

		s, err := h.Create(r.Context(), code, state, history)
		if err != nil || s == nil {
			log.Error("failed to create contest", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to create contest")
			return
		}
		view, err := s.View(r.Context())
		if err != nil {
			writeEngineError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, types.NewContestView(view.Snapshot))
	}
}

func ListContests(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		codes, err := h.List(r.Context())
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Codes []string `json:"codes"`
		}{Codes: codes})
	}
}

func GetContest(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionFor(h, w, r)
		if !ok {
			return
		}
		view, err := s.View(r.Context())
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.NewContestView(view.Snapshot))
	}
}

// GetMatch answers the scheduler query for the contest's current state.
func GetMatch(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionFor(h, w, r)
		if !ok {
			return
		}
		view, err := s.View(r.Context())
		if err != nil {
			writeEngineError(w, err)
			return
		}
		m, ok := engine.GetNextMatch(view.State)
		if !ok || view.State.IsComplete {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Round    int                 `json:"round"`
			Version  int                 `json:"version"`
			Headline string              `json:"headline"`
			Match    engine.ContestMatch `json:"match"`
		}{Round: view.State.Round, Version: view.Version, Headline: engine.Headline(view.State), Match: m})
	}
}

func SelectWinner(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionFor(h, w, r)
		if !ok {
			return
		}

		var req types.SelectWinnerRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad json: "+err.Error())
			return
		}
		if req.WinnerID == nil {
			writeError(w, http.StatusBadRequest, "winner_id is required")
			return
		}

		snap, err := s.Do(r.Context(), engine.Command{Type: engine.CmdSelectWinner, WinnerID: *req.WinnerID}, req.Version)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.NewContestView(snap))
	}
}

func GetHistory(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := sessionFor(h, w, r)
		if !ok {
			return
		}
		events, err := s.History(r.Context())
		if err != nil {
			writeEngineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Events []engine.Event `json:"events"`
		}{Events: events})
	}
}

// DeleteContest is "exit contest": the session stops and its sockets close.
func DeleteContest(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		removed, err := h.Remove(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			writeEngineError(w, err)
			return
		}
		if !removed {
			writeError(w, http.StatusNotFound, "contest not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func sessionFor(h *hub.Hub, w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s := h.Get(chi.URLParam(r, "code"))
	if s == nil {
		writeError(w, http.StatusNotFound, "contest not found")
		return nil, false
	}
	return s, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrNotEnoughImages),
		errors.Is(err, engine.ErrInvalidWinner),
		errors.Is(err, engine.ErrUnsupportedCommand):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrContestCompleted),
		errors.Is(err, engine.ErrNoCurrentMatch),
		errors.Is(err, engine.ErrAlreadyStarted),
		errors.Is(err, session.ErrStaleVersion):
		return http.StatusConflict
	case errors.Is(err, session.ErrClosed):
		return http.StatusNotFound
	case errors.Is(err, hub.ErrStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeEngineError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, types.ErrorResponse{Error: http.StatusText(status), Message: message})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
