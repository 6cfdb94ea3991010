package lifecycle

// Phase is a step of the server lifecycle. Phases only move forward.
type Phase int

const (
	PhaseUnconfigured Phase = iota
	PhaseConfigured
	PhaseStorageReady
	PhaseListening
	PhaseBlocked
	PhaseStopped
)

func (p Phase) String() string {
	switch p {
	case PhaseUnconfigured:
		return "unconfigured"
	case PhaseConfigured:
		return "configured"
	case PhaseStorageReady:
		return "storage_ready"
	case PhaseListening:
		return "listening"
	case PhaseBlocked:
		return "blocked"
	case PhaseStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Error is a lifecycle failure, tagged with the phase it happened in.
type Error struct {
	Phase Phase
	Op    string
	Err   error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}
