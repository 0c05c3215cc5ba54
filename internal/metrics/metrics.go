// Package metrics provides lightweight hooks for instrumentation.
package metrics

// Recorder captures metric events for the application.
// Implementations can expose these to Prometheus, StatsD, etc.
type Recorder interface {
	// Resolver metrics
	IncUserCreated()
	IncUserLookup(result string) // result: "hit" or "miss"

	// Event bus metrics
	IncEventPublished(topic string)
	IncSubscriberAttached(topic string)
	IncSubscriberDetached(topic string)
}
