package gamedb

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Game is one bowler's game.
type Game struct {
	bun.BaseModel `bun:"table:games,alias:g"`

	UUID        uuid.UUID  `bun:"uuid,pk,type:uuid"`
	Bowler      string     `bun:"bowler,notnull"`
	Lane        *int       `bun:"lane"`
	PlayedAt    time.Time  `bun:"played_at,notnull"`
	CreatedAt   time.Time  `bun:"created_at,notnull,default:current_timestamp"`
	CompletedAt *time.Time `bun:"completed_at"`
	FinalScore  *int       `bun:"final_score"`
}

// IsCompleted reports whether the game has been finalized.
func (g *Game) IsCompleted() bool {
	return g.CompletedAt != nil
}

// GameFrame stores the raw rolls of one frame. Roll3 is only set on a tenth
// frame that earned a fill ball.
type GameFrame struct {
	bun.BaseModel `bun:"table:game_frames,alias:gf"`

	ID        int64     `bun:"id,pk,autoincrement"`
	GameUUID  uuid.UUID `bun:"game_uuid,notnull,type:uuid"`
	Number    int       `bun:"number,notnull"`
	Roll1     int       `bun:"roll1,notnull"`
	Roll2     int       `bun:"roll2,notnull"`
	Roll3     *int      `bun:"roll3"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// Rolls returns the stored rolls in delivery order.
func (f *GameFrame) Rolls() []int {
	rolls := []int{f.Roll1, f.Roll2}
	if f.Roll3 != nil {
		rolls = append(rolls, *f.Roll3)
	}
	return rolls
}

// RollPointers returns the rolls in the form the frame constructors accept.
func (f *GameFrame) RollPointers() []*int {
	rolls := f.Rolls()
	out := make([]*int, len(rolls))
	for i := range rolls {
		out[i] = &rolls[i]
	}
	return out
}
