package db

// Schema defines the SQLite database schema for installer runs.
// Every run that gets past input acquisition is recorded; runs with a
// mount_point may still hold an attached image.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_key TEXT NOT NULL UNIQUE,
    source_image TEXT NOT NULL,
    sha256 TEXT NOT NULL DEFAULT '',
    device TEXT NOT NULL,
    mount_point TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL CHECK(status IN ('pending', 'mounted', 'prepared', 'copied', 'complete', 'detach_failed', 'failed', 'cleaned')),
    payload_action TEXT NOT NULL DEFAULT '',
    payload_size INTEGER NOT NULL DEFAULT 0,
    error_message TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// Status constants
const (
	StatusPending      = "pending"
	StatusMounted      = "mounted"
	StatusPrepared     = "prepared"
	StatusCopied       = "copied"
	StatusComplete     = "complete"
	StatusDetachFailed = "detach_failed"
	StatusFailed       = "failed"
	StatusCleaned      = "cleaned"
)

// Run represents one installer run
type Run struct {
	ID            int64
	RunKey        string
	SourceImage   string
	SHA256        string
	Device        string
	MountPoint    string
	Status        string
	PayloadAction string
	PayloadSize   int64
	ErrorMessage  string
	CreatedAt     string
	UpdatedAt     string
}

// HoldsMount reports whether the run may have left its source image
// attached. The mount point is cleared once a detach succeeds.
func (r *Run) HoldsMount() bool {
	return r.MountPoint != "" && r.Status != StatusCleaned
}
