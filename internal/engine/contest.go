package engine

import "fmt"

func CreateContestState(images []ImageInput) (State, error) {
	if len(images) < 2 {
		return State{}, fmt.Errorf("%w: got %d", ErrNotEnoughImages, len(images))
	}

	all := make([]ContestImage, len(images))
	for i, img := range images {
		all[i] = ContestImage{ID: i, URL: img.URL, Filename: img.Filename}
	}

	return State{
		AllImages:      all,
		ActiveImages:   cloneImages(all),
		Round:          1,
		MatchesInRound: len(all) / 2,
	}, nil
}

// StartContest schedules the first match of a freshly created contest.
func StartContest(s State) (State, error) {
	if s.IsComplete {
		return s, ErrContestCompleted
	}
	if s.CurrentMatch != nil {
		return s, ErrAlreadyStarted
	}

	next := s.clone()
	if m, ok := GetNextMatch(s); ok {
		next.CurrentMatch = &m
	}
	return next, nil
}

// SelectWinner records the decision on the current match. The other side is
// eliminated; when the round has no pairing left, the survivors of AllImages
// form the next round, or the contest completes if only one is left.
func SelectWinner(s State, winnerID int) (State, error) {
	if s.IsComplete {
		return s, ErrContestCompleted
	}
	if s.CurrentMatch == nil {
		return s, ErrNoCurrentMatch
	}

	match := *s.CurrentMatch
	var loser ContestImage
	switch winnerID {
	case match.LeftImage.ID:
		loser = match.RightImage
	case match.RightImage.ID:
		loser = match.LeftImage
	default:
		return s, fmt.Errorf("%w: image %d is not in round %d match %d (%d vs %d)",
			ErrInvalidWinner, winnerID, s.Round, match.MatchNumber, match.LeftImage.ID, match.RightImage.ID)
	}

	next := s.clone()
	for i := range next.AllImages {
		if next.AllImages[i].ID == loser.ID {
			next.AllImages[i].Eliminated = true
		}
	}
	next.MatchesCompletedInRound = s.MatchesCompletedInRound + 1

	if m, ok := GetNextMatch(next); ok {
		next.CurrentMatch = &m
		return next, nil
	}

	// Round exhausted. A bye image was never matched, so it is still here.
	remaining := Remaining(next)
	if len(remaining) == 1 {
		winner := remaining[0]
		next.ActiveImages = remaining
		next.CurrentMatch = nil
		next.IsComplete = true
		next.Winner = &winner
		return next, nil
	}

	next.Round = s.Round + 1
	next.ActiveImages = remaining
	next.MatchesInRound = len(remaining) / 2
	next.MatchesCompletedInRound = 0
	next.CurrentMatch = nil
	if m, ok := GetNextMatch(next); ok {
		next.CurrentMatch = &m
	}
	return next, nil
}
