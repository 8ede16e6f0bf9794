package gamequeue

// FinalizeGameArgs are the River job args for finalizing a game once its
// tenth frame is stored.
type FinalizeGameArgs struct {
	GameID string `json:"game_id"`
}

// Kind returns the job type identifier for River
func (FinalizeGameArgs) Kind() string { return "finalize_game" }

// JobInfo represents information about a queued job (for debugging/monitoring)
type JobInfo struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	GameID      string `json:"game_id"`
	State       string `json:"state"`
	ScheduledAt string `json:"scheduled_at"`
	CreatedAt   string `json:"created_at"`
	Attempt     int    `json:"attempt"`
	MaxAttempts int    `json:"max_attempts"`
}
