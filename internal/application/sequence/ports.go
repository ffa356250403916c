package sequence

// Metrics puerto de métricas de la numeración. nil = sin métricas.
type Metrics interface {
	SequenceAllocated(family string)
	LockTimeout(resource string)
}

type noopMetrics struct{}

func (noopMetrics) SequenceAllocated(string) {}
func (noopMetrics) LockTimeout(string)       {}
