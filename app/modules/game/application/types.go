package gameservice

import (
	"time"

	gamedomain "github.com/Black-And-White-Club/tenpin-bot/app/modules/game/domain"
	"github.com/google/uuid"
)

// GameInfo describes a stored game.
type GameInfo struct {
	GameID      uuid.UUID  `json:"game_id"`
	Bowler      string     `json:"bowler"`
	Lane        *int       `json:"lane,omitempty"`
	PlayedAt    time.Time  `json:"played_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	FinalScore  *int       `json:"final_score,omitempty"`
}

// ScoreCardView is a rendered scorecard. Frames carry cumulative scores.
// CompletedAt is set once the game has been finalized.
type ScoreCardView struct {
	GameID      uuid.UUID               `json:"game_id"`
	Bowler      string                  `json:"bowler"`
	Frames      []gamedomain.FrameScore `json:"frames"`
	Total       int                     `json:"total"`
	Complete    bool                    `json:"complete"`
	CompletedAt *time.Time              `json:"completed_at,omitempty"`
}

// GameCompletion is the outcome of finalizing a game.
type GameCompletion struct {
	GameID      uuid.UUID `json:"game_id"`
	Bowler      string    `json:"bowler"`
	FinalScore  int       `json:"final_score"`
	CompletedAt time.Time `json:"completed_at"`
}

// ImportedFrame is one row read from a roll sheet.
type ImportedFrame struct {
	Number int
	Rolls  []*int
}
