package types

import (
	"github.com/DoyleJ11/image-contest/internal/engine"
	"github.com/DoyleJ11/image-contest/internal/session"
)

type ClientMessage struct {
	Type     string `json:"type"` // "SelectWinner"
	WinnerID *int   `json:"winner_id,omitempty"`
	Version  *int   `json:"version,omitempty"`
}

type ServerMessage struct {
	Type    string       `json:"type"` // "StateSnapshot" | "Error"
	Contest *ContestView `json:"contest,omitempty"`
	Error   string       `json:"error,omitempty"`
}

// ContestView is a snapshot plus what the UI derives from it.
type ContestView struct {
	Code     string               `json:"code"`
	Version  int                  `json:"version"`
	Headline string               `json:"headline"`
	Bye      *engine.ContestImage `json:"bye,omitempty"`
	State    engine.State         `json:"state"`
}

func NewContestView(snap session.Snapshot) ContestView {
	v := ContestView{
		Code:     snap.Code,
		Version:  snap.Version,
		Headline: engine.Headline(snap.State),
		State:    snap.State,
	}
	if bye, ok := engine.Bye(snap.State); ok {
		v.Bye = &bye
	}
	return v
}

type CreateContestRequest struct {
	Images []engine.ImageInput `json:"images"`
}

type SelectWinnerRequest struct {
	WinnerID *int `json:"winner_id"`
	Version  *int `json:"version,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
