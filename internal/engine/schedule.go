package engine

// GetNextMatch pairs ActiveImages two by two in roster order. The pair at
// MatchesCompletedInRound is the next one; ok is false once the round has run
// out of complete pairs.
func GetNextMatch(s State) (ContestMatch, bool) {
	pairIndex := s.MatchesCompletedInRound * 2
	if pairIndex < 0 || pairIndex+1 >= len(s.ActiveImages) {
		return ContestMatch{}, false
	}

	return ContestMatch{
		LeftImage:   s.ActiveImages[pairIndex],
		RightImage:  s.ActiveImages[pairIndex+1],
		MatchNumber: s.MatchesCompletedInRound + 1,
	}, true
}

// Bye reports the image that sits out the current round because the roster
// has odd length. It is not tracked anywhere in State: it advances only
// because it is never eliminated.
func Bye(s State) (ContestImage, bool) {
	if s.IsComplete || len(s.ActiveImages)%2 == 0 {
		return ContestImage{}, false
	}
	return s.ActiveImages[len(s.ActiveImages)-1], true
}
