package gameservice

import (
	"fmt"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

var playedAtParser = newPlayedAtParser()

func newPlayedAtParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// ParsePlayedAt turns free text such as "last friday 7pm" or an RFC 3339
// timestamp into a UTC time, relative to now. Empty text means now. Games
// cannot be played in the future.
func ParsePlayedAt(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return now.UTC(), nil
	}

	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return checkNotFuture(t.UTC(), now)
	}
	if t, err := time.ParseInLocation("2006-01-02", text, now.Location()); err == nil {
		return checkNotFuture(t.UTC(), now)
	}

	r, err := playedAtParser.Parse(strings.ToLower(text), now)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: could not parse played at %q: %v", ErrInvalidGame, text, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("%w: could not recognize time %q", ErrInvalidGame, text)
	}
	return checkNotFuture(r.Time.UTC(), now)
}

func checkNotFuture(t, now time.Time) (time.Time, error) {
	if t.After(now.Add(time.Minute)) {
		return time.Time{}, fmt.Errorf("%w: played at %s is in the future", ErrInvalidGame, t.Format(time.RFC3339))
	}
	return t, nil
}
