// Package gameevents defines the bowling topics and their payloads.
package gameevents

import (
	"time"

	"github.com/google/uuid"
)

// StreamName is the JetStream stream carrying every bowling topic.
const StreamName = "bowling"

// StreamSubjects is the subject filter for StreamName.
var StreamSubjects = []string{"bowling.>"}

const (
	// FrameRecordRequestedV1 asks for a frame to be appended to a game.
	FrameRecordRequestedV1 = "bowling.frame.record.requested.v1"
	// FrameRecordedV1 carries the updated scorecard after a frame was stored.
	FrameRecordedV1 = "bowling.frame.recorded.v1"
	// FrameRecordFailedV1 reports a rejected frame.
	FrameRecordFailedV1 = "bowling.frame.record.failed.v1"

	ScoreCardRequestedV1 = "bowling.scorecard.requested.v1"
	ScoreCardRetrievedV1 = "bowling.scorecard.retrieved.v1"

	GameFinalizeRequestedV1 = "bowling.game.finalize.requested.v1"
	GameCompletedV1         = "bowling.game.completed.v1"
)

// FrameRowV1 is one rendered scorecard row. FrameScore is cumulative.
type FrameRowV1 struct {
	Number     int    `json:"number"`
	Rolls      []int  `json:"rolls"`
	Type       string `json:"type"`
	FrameScore int    `json:"frame_score"`
}

// FrameRecordRequestedPayloadV1 carries the rolls for the next frame of a
// game. A null roll is reported as missing.
type FrameRecordRequestedPayloadV1 struct {
	GameID uuid.UUID `json:"game_id"`
	Rolls  []*int    `json:"rolls"`
}

type FrameRecordedPayloadV1 struct {
	GameID      uuid.UUID    `json:"game_id"`
	FrameNumber int          `json:"frame_number"`
	Frames      []FrameRowV1 `json:"frames"`
	Total       int          `json:"total"`
	Complete    bool         `json:"complete"`
}

// FrameRecordFailedPayloadV1 explains why a frame was rejected. Kind names the
// violated roll rule when the failure is a validation error.
type FrameRecordFailedPayloadV1 struct {
	GameID uuid.UUID `json:"game_id"`
	Reason string    `json:"reason"`
	Kind   string    `json:"kind,omitempty"`
}

type ScoreCardRequestedPayloadV1 struct {
	GameID uuid.UUID `json:"game_id"`
}

type ScoreCardRetrievedPayloadV1 struct {
	GameID   uuid.UUID    `json:"game_id"`
	Bowler   string       `json:"bowler"`
	Frames   []FrameRowV1 `json:"frames"`
	Total    int          `json:"total"`
	Complete bool         `json:"complete"`
}

type GameFinalizeRequestedPayloadV1 struct {
	GameID uuid.UUID `json:"game_id"`
}

type GameCompletedPayloadV1 struct {
	GameID      uuid.UUID `json:"game_id"`
	Bowler      string    `json:"bowler"`
	FinalScore  int       `json:"final_score"`
	CompletedAt time.Time `json:"completed_at"`
}
