package gameservice

import (
	"fmt"
	"strconv"
	"strings"

	gamedomain "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/domain"
)

// ParseFrameNotation reads one frame written the way bowlers write it:
// "X", "9/", "72", "7-" (7 then a miss) or "10,0". Commas or spaces separate
// rolls; without them "10" still reads as ten pins, so "100" is (10, 0) and a
// one followed by a miss must be written "1-". The final frame takes up to
// three symbols ("XXX", "9/X", "X7/"). A lone "X" or "10" outside the final
// frame is recorded as (10, 0).
func ParseFrameNotation(s string, final bool) ([]*int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("%w: empty frame", ErrInvalidFrame)
	}

	var symbols []string
	if strings.ContainsAny(s, ", ") {
		symbols = strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	} else {
		runes := []rune(s)
		for i := 0; i < len(runes); i++ {
			// "10" is a full rack, not a one followed by a miss.
			if runes[i] == '1' && i+1 < len(runes) && runes[i+1] == '0' {
				symbols = append(symbols, "10")
				i++
				continue
			}
			symbols = append(symbols, string(runes[i]))
		}
	}

	rolls := make([]int, 0, len(symbols))
	// standing is the pin count left by the first ball of an open rack, or -1.
	standing := -1
	for i, sym := range symbols {
		v, err := rollValue(strings.TrimSpace(sym), standing)
		if err != nil {
			return nil, fmt.Errorf("%w: symbol %d of %q: %v", ErrInvalidFrame, i+1, s, err)
		}
		rolls = append(rolls, v)
		if standing < 0 && v < gamedomain.MaxPins {
			standing = gamedomain.MaxPins - v
		} else {
			standing = -1
		}
	}

	if !final && len(rolls) == 1 && rolls[0] == gamedomain.MaxPins {
		rolls = append(rolls, 0)
	}

	out := make([]*int, len(rolls))
	for i := range rolls {
		out[i] = &rolls[i]
	}
	return out, nil
}

// rollValue decodes a single symbol. standing is the number of pins left on
// the deck when the symbol is a second ball, or -1 on a fresh rack.
func rollValue(sym string, standing int) (int, error) {
	switch strings.ToUpper(sym) {
	case "X":
		return gamedomain.MaxPins, nil
	case "/":
		if standing < 0 {
			return 0, fmt.Errorf("spare needs a first ball on the same rack")
		}
		return standing, nil
	case "-", "G":
		return 0, nil
	}
	v, err := strconv.Atoi(sym)
	if err != nil {
		return 0, fmt.Errorf("unknown symbol %q", sym)
	}
	return v, nil
}

// FormatRolls renders rolls back into bowling notation, e.g. [10 0] -> "X",
// [7 3] -> "7/", [10 10 4] -> "XX4".
func FormatRolls(rolls []int, final bool) string {
	if !final && len(rolls) == 2 && rolls[0] == gamedomain.MaxPins {
		return "X"
	}

	var b strings.Builder
	rackStart := true
	prev := 0
	for _, r := range rolls {
		switch {
		case rackStart && r == gamedomain.MaxPins:
			b.WriteString("X")
		case !rackStart && prev+r == gamedomain.MaxPins:
			b.WriteString("/")
			rackStart = true
			continue
		case r == 0:
			b.WriteString("-")
		default:
			b.WriteString(strconv.Itoa(r))
		}
		if rackStart && r != gamedomain.MaxPins {
			rackStart = false
			prev = r
		} else {
			rackStart = true
		}
	}
	return b.String()
}
