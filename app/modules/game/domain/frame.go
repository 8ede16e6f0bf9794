package gamedomain

// Pin and frame limits for ten-pin bowling.
const (
	MaxPins        = 10
	FramesPerGame  = 10
	finalFrameSlot = FramesPerGame - 1
)

// FrameType classifies a frame by how its first rack was cleared.
type FrameType string

const (
	FrameOpen   FrameType = "open"
	FrameSpare  FrameType = "spare"
	FrameStrike FrameType = "strike"
)

func (t FrameType) String() string {
	return string(t)
}

// Scorable is the capability set the ScoreCard needs from a frame.
// Frame and TenthFrame are the only implementations.
type Scorable interface {
	// Rolls returns a copy of the pins knocked down on each delivery.
	Rolls() []int
	Type() FrameType
	IsStrike() bool
	IsSpare() bool
	// IsFinal reports whether the frame is the tenth-frame variant.
	IsFinal() bool
	// CurrentTotal is the frame's own pins plus whatever bonus was last resolved.
	CurrentTotal() int
	// UpdateBonus overwrites the cached bonus. A no-op on the final frame.
	UpdateBonus(bonus int)

	sealed()
}

// classify derives the frame type from the first two rolls of a rack.
func classify(first, second int) FrameType {
	switch {
	case first == MaxPins:
		return FrameStrike
	case first+second == MaxPins:
		return FrameSpare
	default:
		return FrameOpen
	}
}

func checkRange(rolls ...int) error {
	for i, r := range rolls {
		if r < 0 || r > MaxPins {
			return newValidationError(KindRollRange, ErrRollRange, "roll %d is %d", i+1, r)
		}
	}
	return nil
}

// Frame is one of frames 1-9: two rolls and a bonus resolved from later frames.
// INVARIANT: rolls and frameType never change after construction.
type Frame struct {
	rolls     [2]int
	frameType FrameType
	bonus     int
}

// NewFrame validates two rolls and derives the frame type.
// A strike is recorded as (10, 0).
func NewFrame(roll1, roll2 int) (*Frame, error) {
	if err := checkRange(roll1, roll2); err != nil {
		return nil, err
	}
	if roll1+roll2 > MaxPins {
		return nil, newValidationError(KindRollSum, ErrRollSum, "%d + %d", roll1, roll2)
	}
	return &Frame{
		rolls:     [2]int{roll1, roll2},
		frameType: classify(roll1, roll2),
	}, nil
}

// FrameFromRolls builds a Frame from possibly-absent rolls, as decoded from
// JSON or a spreadsheet. A nil entry or a short slice is a missing roll.
func FrameFromRolls(rolls []*int) (*Frame, error) {
	vals, err := requireRolls(rolls, 2)
	if err != nil {
		return nil, err
	}
	if len(vals) > 2 {
		return nil, newValidationError(KindRollSum, ErrRollSum, "frames 1-9 take two rolls, got %d", len(vals))
	}
	return NewFrame(vals[0], vals[1])
}

// InitialTotal is the pins knocked down in this frame, ignoring any bonus.
func (f *Frame) InitialTotal() int {
	return f.rolls[0] + f.rolls[1]
}

func (f *Frame) IsStrike() bool {
	return f.rolls[0] == MaxPins
}

func (f *Frame) IsSpare() bool {
	return f.InitialTotal() == MaxPins && !f.IsStrike()
}

func (f *Frame) Rolls() []int {
	return []int{f.rolls[0], f.rolls[1]}
}

func (f *Frame) Type() FrameType {
	return f.frameType
}

func (f *Frame) IsFinal() bool {
	return false
}

// Bonus returns the last resolved bonus.
func (f *Frame) Bonus() int {
	return f.bonus
}

// UpdateBonus overwrites the bonus. The value is trusted.
func (f *Frame) UpdateBonus(bonus int) {
	f.bonus = bonus
}

// CurrentTotal returns InitialTotal plus the last resolved bonus.
func (f *Frame) CurrentTotal() int {
	return f.InitialTotal() + f.bonus
}

func (f *Frame) sealed() {}

// TenthFrame is the final frame: two rolls, plus a fill ball after a strike or
// spare. It never carries a bonus.
type TenthFrame struct {
	rolls     []int
	frameType FrameType
}

// NewTenthFrame validates the final frame. It accepts two rolls for an open
// frame and exactly three when the first two rolls earn a strike or spare.
// After a strike, a second ball that leaves pins standing also caps the fill
// ball, so (10, 6, 5) is rejected even though the three rolls are each in range.
func NewTenthFrame(rolls ...int) (*TenthFrame, error) {
	if len(rolls) < 2 {
		return nil, newValidationError(KindMissingRoll, ErrMissingRoll, "final frame needs at least two rolls, got %d", len(rolls))
	}
	if len(rolls) > 3 {
		return nil, newValidationError(KindFinalFrameLegality, ErrFinalFrameLegality, "final frame takes at most three rolls, got %d", len(rolls))
	}
	if err := checkRange(rolls...); err != nil {
		return nil, err
	}

	first, second := rolls[0], rolls[1]
	frameType := classify(first, second)

	if frameType != FrameStrike && first+second > MaxPins {
		return nil, newValidationError(KindFinalFrameLegality, ErrFinalFrameLegality,
			"%d + %d exceeds 10 without a strike", first, second)
	}

	switch frameType {
	case FrameOpen:
		if len(rolls) == 3 {
			return nil, newValidationError(KindFinalFrameLegality, ErrFinalFrameLegality,
				"third roll only allowed after a strike or spare")
		}
	default:
		if len(rolls) == 2 {
			return nil, newValidationError(KindMissingRoll, ErrMissingRoll,
				"fill ball required after a %s", frameType)
		}
		// Second ball after a strike leaves pins for the fill ball to clear.
		if frameType == FrameStrike && second < MaxPins && second+rolls[2] > MaxPins {
			return nil, newValidationError(KindFinalFrameLegality, ErrFinalFrameLegality,
				"%d + %d exceeds 10 on the same rack", second, rolls[2])
		}
	}

	return &TenthFrame{
		rolls:     append([]int(nil), rolls...),
		frameType: frameType,
	}, nil
}

// TenthFrameFromRolls builds the final frame from possibly-absent rolls.
// Trailing nils are treated as "not bowled"; a nil inside the first two is missing.
func TenthFrameFromRolls(rolls []*int) (*TenthFrame, error) {
	for len(rolls) > 2 && rolls[len(rolls)-1] == nil {
		rolls = rolls[:len(rolls)-1]
	}
	vals, err := requireRolls(rolls, 2)
	if err != nil {
		return nil, err
	}
	return NewTenthFrame(vals...)
}

func (f *TenthFrame) IsStrike() bool {
	return f.rolls[0] == MaxPins
}

func (f *TenthFrame) IsSpare() bool {
	return f.rolls[0]+f.rolls[1] == MaxPins && !f.IsStrike()
}

func (f *TenthFrame) Rolls() []int {
	return append([]int(nil), f.rolls...)
}

func (f *TenthFrame) Type() FrameType {
	return f.frameType
}

func (f *TenthFrame) IsFinal() bool {
	return true
}

// CurrentTotal is the flat sum of every roll in the frame.
func (f *TenthFrame) CurrentTotal() int {
	total := 0
	for _, r := range f.rolls {
		total += r
	}
	return total
}

// UpdateBonus does nothing; the final frame has no forward dependency.
func (f *TenthFrame) UpdateBonus(int) {}

func (f *TenthFrame) sealed() {}

// requireRolls dereferences the first n rolls, failing on any nil. Extra
// non-nil rolls are returned too so callers can reject them.
func requireRolls(rolls []*int, n int) ([]int, error) {
	if len(rolls) < n {
		return nil, newValidationError(KindMissingRoll, ErrMissingRoll, "expected %d rolls, got %d", n, len(rolls))
	}
	vals := make([]int, 0, len(rolls))
	for i, r := range rolls {
		if r == nil {
			return nil, newValidationError(KindMissingRoll, ErrMissingRoll, "roll %d is empty", i+1)
		}
		vals = append(vals, *r)
	}
	return vals, nil
}

// NewFrameAt builds the right variant for a 1-based frame position.
func NewFrameAt(position int, rolls []*int) (Scorable, error) {
	if position == FramesPerGame {
		return TenthFrameFromRolls(rolls)
	}
	return FrameFromRolls(rolls)
}
