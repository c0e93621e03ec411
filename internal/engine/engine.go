package engine

import (
	"errors"
	"fmt"
)

var ErrNotEnoughImages = errors.New("contest needs at least two images")
var ErrContestCompleted = errors.New("contest already completed")
var ErrAlreadyStarted = errors.New("contest already started")
var ErrNoCurrentMatch = errors.New("no match awaiting a decision")
var ErrInvalidWinner = errors.New("winner is not a contestant of the current match")
var ErrUnsupportedCommand = errors.New("unsupported command")

// ImageInput is one entry of the batch handed over by the ingestion side.
type ImageInput struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

type ContestImage struct {
	ID         int    `json:"id"`
	URL        string `json:"url"`
	Filename   string `json:"filename"`
	Eliminated bool   `json:"eliminated"`
}

type ContestMatch struct {
	LeftImage   ContestImage `json:"leftImage"`
	RightImage  ContestImage `json:"rightImage"`
	MatchNumber int          `json:"matchNumber"`
}

// State is the whole contest. It is replaced, never mutated: every transition
// returns a value whose slices and pointers are not shared with its input.
type State struct {
	AllImages               []ContestImage `json:"allImages"`
	ActiveImages            []ContestImage `json:"activeImages"`
	CurrentMatch            *ContestMatch  `json:"currentMatch,omitempty"`
	Round                   int            `json:"round"`
	MatchesInRound          int            `json:"matchesInRound"`
	MatchesCompletedInRound int            `json:"matchesCompletedInRound"`
	IsComplete              bool           `json:"isComplete"`
	Winner                  *ContestImage  `json:"winner,omitempty"`
}

type CommandType string

const (
	CmdStartContest CommandType = "StartContest"
	CmdSelectWinner CommandType = "SelectWinner"
)

/*
	CmdStartContest -> EvtContestStarted -> EvtMatchScheduled
	CmdSelectWinner -> EvtMatchDecided -> EvtImageEliminated -> one of
		EvtMatchScheduled                      (round continues)
		EvtRoundAdvanced -> EvtMatchScheduled  (survivors start a new round)
		EvtContestCompleted                    (one image left)

	Only ContestStarted and MatchDecided carry decisions. The others are derived
	and exist for whoever renders the log.
*/

type Command struct {
	Type     CommandType `json:"type"`
	WinnerID int         `json:"winnerId"`
}

type EventType string

const (
	EvtContestStarted   EventType = "ContestStarted"
	EvtMatchScheduled   EventType = "MatchScheduled"
	EvtMatchDecided     EventType = "MatchDecided"
	EvtImageEliminated  EventType = "ImageEliminated"
	EvtRoundAdvanced    EventType = "RoundAdvanced"
	EvtContestCompleted EventType = "ContestCompleted"
)

type Event struct {
	Type        EventType `json:"type"`
	Round       int       `json:"round"`
	MatchNumber int       `json:"matchNumber,omitempty"`
	LeftID      int       `json:"leftId"`
	RightID     int       `json:"rightId"`
	WinnerID    int       `json:"winnerId"`
	LoserID     int       `json:"loserId"`
}

func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdStartContest:
		next, err := StartContest(s)
		if err != nil {
			return nil, s, err
		}

		events := []Event{{Type: EvtContestStarted, Round: next.Round}}
		if next.CurrentMatch != nil {
			events = append(events, scheduledEvent(next))
		}
		return events, next, nil

	case CmdSelectWinner:
		next, err := SelectWinner(s, cmd.WinnerID)
		if err != nil {
			return nil, s, err
		}

		// SelectWinner succeeded, so s.CurrentMatch is set and WinnerID is one of its sides.
		decided := *s.CurrentMatch
		loserID := decided.LeftImage.ID
		if loserID == cmd.WinnerID {
			loserID = decided.RightImage.ID
		}

		events := []Event{
			{
				Type:        EvtMatchDecided,
				Round:       s.Round,
				MatchNumber: decided.MatchNumber,
				LeftID:      decided.LeftImage.ID,
				RightID:     decided.RightImage.ID,
				WinnerID:    cmd.WinnerID,
				LoserID:     loserID,
			},
			{Type: EvtImageEliminated, Round: s.Round, LoserID: loserID},
		}

		switch {
		case next.IsComplete:
			events = append(events, Event{Type: EvtContestCompleted, Round: next.Round, WinnerID: next.Winner.ID})
		case next.Round != s.Round:
			events = append(events, Event{Type: EvtRoundAdvanced, Round: next.Round}, scheduledEvent(next))
		default:
			events = append(events, scheduledEvent(next))
		}
		return events, next, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// Reduce rebuilds a contest from its original batch and the events Apply
// produced for it. Derived events are skipped; decisions are re-applied.
func Reduce(images []ImageInput, events []Event) (State, error) {
	s, err := CreateContestState(images)
	if err != nil {
		return State{}, err
	}

	for i, event := range events {
		switch event.Type {
		case EvtContestStarted:
			s, err = StartContest(s)
		case EvtMatchDecided:
			if s.CurrentMatch != nil && (s.Round != event.Round || s.CurrentMatch.MatchNumber != event.MatchNumber) {
				err = fmt.Errorf("decision for round %d match %d, contest is at round %d match %d",
					event.Round, event.MatchNumber, s.Round, s.CurrentMatch.MatchNumber)
				break
			}
			s, err = SelectWinner(s, event.WinnerID)
		}
		if err != nil {
			return State{}, fmt.Errorf("replay event %d (%s): %w", i, event.Type, err)
		}
	}

	return s, nil
}

func scheduledEvent(s State) Event {
	m := s.CurrentMatch
	return Event{
		Type:        EvtMatchScheduled,
		Round:       s.Round,
		MatchNumber: m.MatchNumber,
		LeftID:      m.LeftImage.ID,
		RightID:     m.RightImage.ID,
	}
}
