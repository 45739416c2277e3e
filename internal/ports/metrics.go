package ports

// IntakeMetrics receives outcome counters from the intake use cases.
type IntakeMetrics interface {
	SubmissionFinished(outcome string)
	SnapshotFetched(outcome string, rows int)
}

type NopMetrics struct{}

func (NopMetrics) SubmissionFinished(string)   {}
func (NopMetrics) SnapshotFetched(string, int) {}
