package services

// Broadcaster pushes play session state to connected views.
// Implementations must not block the caller.
type Broadcaster interface {
	BroadcastState(clientID string, state State)
}
