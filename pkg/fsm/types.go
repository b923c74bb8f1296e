package fsm

// BurnRequest is the FSM input
type BurnRequest struct {
	RunKey      string
	SourceImage string
	SHA256      string
	Device      string
}

// BurnResponse is the FSM output (accumulated across transitions)
type BurnResponse struct {
	// From Mount
	MountPoint string

	// From Payload
	PayloadAction string
	PayloadSize   int64
	PayloadDest   string

	// From Release/Failed
	Warnings     []string
	DetachFailed bool
	Status       string
	ErrorMessage string
}

// State names
const (
	StateMount   = "mount"
	StatePrepare = "prepare"
	StateCopy    = "copy"
	StatePayload = "payload"
	StateRelease = "release"
	StateFailed  = "failed"
)
