package engine

import (
	"errors"
	"fmt"
)

// Remaining returns the non-eliminated images of AllImages in roster order.
func Remaining(s State) []ContestImage {
	out := make([]ContestImage, 0, len(s.AllImages))
	for _, img := range s.AllImages {
		if !img.Eliminated {
			out = append(out, img)
		}
	}
	return out
}

func Eliminations(s State) int {
	return len(s.AllImages) - len(Remaining(s))
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// Headline is the banner shown above the two contestants.
func Headline(s State) string {
	if s.IsComplete {
		return "🏆 We have a winner !"
	}
	if s.CurrentMatch == nil {
		return ""
	}
	return fmt.Sprintf("Round %d - Match %d", s.Round, s.CurrentMatch.MatchNumber)
}

// Validate checks the structural invariants every reachable state satisfies.
func (s State) Validate() error {
	var errs []error

	seen := make(map[int]bool, len(s.AllImages))
	for _, img := range s.AllImages {
		if seen[img.ID] {
			errs = append(errs, fmt.Errorf("duplicate image id %d", img.ID))
		}
		seen[img.ID] = true
	}
	for _, img := range s.ActiveImages {
		if !seen[img.ID] {
			errs = append(errs, fmt.Errorf("active image %d not in roster", img.ID))
		}
	}

	if s.Round < 1 {
		errs = append(errs, fmt.Errorf("round %d < 1", s.Round))
	}
	if s.IsComplete != (s.Winner != nil) {
		errs = append(errs, fmt.Errorf("isComplete=%v but winner set=%v", s.IsComplete, s.Winner != nil))
	}

	if s.IsComplete {
		remaining := Remaining(s)
		if len(remaining) != 1 || s.Winner == nil || remaining[0].ID != s.Winner.ID {
			errs = append(errs, fmt.Errorf("winner is not the sole survivor (%d remaining)", len(remaining)))
		}
		if s.CurrentMatch != nil {
			errs = append(errs, errors.New("completed contest has a current match"))
		}
		return errors.Join(errs...)
	}

	if want := len(s.ActiveImages) / 2; s.MatchesInRound != want {
		errs = append(errs, fmt.Errorf("matchesInRound=%d, want %d", s.MatchesInRound, want))
	}
	if s.CurrentMatch != nil {
		if m, ok := GetNextMatch(s); !ok || m != *s.CurrentMatch {
			errs = append(errs, errors.New("current match is not the scheduled pairing"))
		}
	}
	return errors.Join(errs...)
}

func (s State) clone() State {
	next := s
	next.AllImages = cloneImages(s.AllImages)
	next.ActiveImages = cloneImages(s.ActiveImages)
	if s.CurrentMatch != nil {
		m := *s.CurrentMatch
		next.CurrentMatch = &m
	}
	if s.Winner != nil {
		w := *s.Winner
		next.Winner = &w
	}
	return next
}

func cloneImages(images []ContestImage) []ContestImage {
	if images == nil {
		return nil
	}
	out := make([]ContestImage, len(images))
	copy(out, images)
	return out
}
