package handlers

// Broadcaster is the realtime fan-out capability handlers depend on.
// Delivery is best effort; implementations must never fail the caller.
type Broadcaster interface {
	Publish(room string, event string, payload any)
}

// noopBroadcaster lets handlers run without a realtime layer wired in.
type noopBroadcaster struct{}

func (noopBroadcaster) Publish(string, string, any) {}
