package sync

// SyncContext holds the shared configuration of one job process.
// It is immutable after construction and shared by every client of the job.
type SyncContext struct {
	Config         Config
	Job            string
	RecordRequests bool
}

// NewSyncContext builds the context for a job from its loaded config.
func NewSyncContext(cfg Config) *SyncContext {
	return &SyncContext{
		Config:         cfg,
		Job:            cfg.Job,
		RecordRequests: cfg.RecordRequests,
	}
}
