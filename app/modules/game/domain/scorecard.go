package gamedomain

import "sync"

// FrameScore is one row of a rendered scorecard.
type FrameScore struct {
	Number     int       `json:"number"`
	Rolls      []int     `json:"rolls"`
	Type       FrameType `json:"type"`
	FrameScore int       `json:"frame_score"`
}

// ScoreCard is an ordered sequence of frames for one game. Frames are appended
// in roll order; ordering and count are the caller's responsibility.
// Safe for concurrent use.
type ScoreCard struct {
	mu     sync.Mutex
	frames []Scorable
}

// NewScoreCard returns an empty card, optionally seeded with frames.
func NewScoreCard(frames ...Scorable) *ScoreCard {
	sc := &ScoreCard{}
	sc.frames = append(sc.frames, frames...)
	return sc
}

// AddFrame appends a frame to the end of the sequence.
func (sc *ScoreCard) AddFrame(f Scorable) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.frames = append(sc.frames, f)
}

// Len returns the number of frames appended so far.
func (sc *ScoreCard) Len() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.frames)
}

// Frames returns a snapshot of the frame sequence.
func (sc *ScoreCard) Frames() []Scorable {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return append([]Scorable(nil), sc.frames...)
}

// IsComplete reports whether the final frame has been recorded.
func (sc *ScoreCard) IsComplete() bool {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, f := range sc.frames {
		if f.IsFinal() {
			return true
		}
	}
	return false
}

// FrameTotal refreshes the bonus of the frame at index i and returns its
// contribution. Out-of-range indexes contribute 0.
func (sc *ScoreCard) FrameTotal(i int) int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.frameTotal(i)
}

func (sc *ScoreCard) frameTotal(i int) int {
	if i < 0 || i >= len(sc.frames) {
		return 0
	}
	f := sc.frames[i]
	if !f.IsFinal() && (f.IsStrike() || f.IsSpare()) {
		f.UpdateBonus(ResolveBonus(sc.frames, i))
	}
	return f.CurrentTotal()
}

// ShowScoreCard renders every frame with its cumulative score. Each call
// re-resolves bonuses, so frames appended since the last call are reflected.
func (sc *ScoreCard) ShowScoreCard() []FrameScore {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	rows := make([]FrameScore, 0, len(sc.frames))
	running := 0
	for i, f := range sc.frames {
		running += sc.frameTotal(i)
		rows = append(rows, FrameScore{
			Number:     i + 1,
			Rolls:      f.Rolls(),
			Type:       f.Type(),
			FrameScore: running,
		})
	}
	return rows
}

// GameTotal is the sum of every frame's contribution so far.
func (sc *ScoreCard) GameTotal() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	total := 0
	for i := range sc.frames {
		total += sc.frameTotal(i)
	}
	return total
}

// ResolveBonus computes the bonus earned by frames[i] from the raw rolls of
// the frames after it. Missing look-ahead frames leave the bonus unresolved
// (counted as 0). Open and final frames earn nothing.
func ResolveBonus(frames []Scorable, i int) int {
	if i < 0 || i >= len(frames) {
		return 0
	}
	f := frames[i]
	if f.IsFinal() {
		return 0
	}

	next := frameAt(frames, i+1)
	if next == nil {
		return 0
	}
	nextRolls := next.Rolls()

	switch f.Type() {
	case FrameSpare:
		return nextRolls[0]
	case FrameStrike:
		bonus := nextRolls[0]
		if next.IsStrike() && !next.IsFinal() && i != finalFrameSlot-1 {
			if nextNext := frameAt(frames, i+2); nextNext != nil {
				bonus += nextNext.Rolls()[0]
			}
			return bonus
		}
		return bonus + nextRolls[1]
	default:
		return 0
	}
}

func frameAt(frames []Scorable, i int) Scorable {
	if i < 0 || i >= len(frames) {
		return nil
	}
	return frames[i]
}

// Score folds frames into a game total without keeping a card around.
func Score(frames ...Scorable) int {
	return NewScoreCard(frames...).GameTotal()
}
