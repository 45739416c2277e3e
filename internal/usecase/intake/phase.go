package intake

// Phase is the per-interaction state shown by the consoles.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseLoading    Phase = "loading"
	PhaseReady      Phase = "ready"
	PhaseSubmitting Phase = "submitting"
	PhaseDone       Phase = "done"
	PhaseError      Phase = "error"
)
