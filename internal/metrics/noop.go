package metrics

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncUserCreated is a no-op.
func (n *NoopRecorder) IncUserCreated() {}

// IncUserLookup is a no-op.
func (n *NoopRecorder) IncUserLookup(result string) {}

// IncEventPublished is a no-op.
func (n *NoopRecorder) IncEventPublished(topic string) {}

// IncSubscriberAttached is a no-op.
func (n *NoopRecorder) IncSubscriberAttached(topic string) {}

// IncSubscriberDetached is a no-op.
func (n *NoopRecorder) IncSubscriberDetached(topic string) {}
