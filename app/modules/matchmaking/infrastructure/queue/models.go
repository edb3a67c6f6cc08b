package matchmakingqueue

// SweepJob evicts queued players whose lobby queue timeout elapsed.
type SweepJob struct{}

// Kind returns the job type identifier for River
func (SweepJob) Kind() string { return "matchmaking_queue_sweep" }
