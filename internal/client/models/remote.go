package models

// Remote is a configured remote storage backend together with its sync
// state. Rank 0 is the primary remote.
type Remote struct {
	ID     string
	Name   string
	Rank   int
	Type   string
	Config map[string]any

	Connected bool
	// LastRemoteChange is the highest clock observed in the last successful
	// exchange with this remote.
	LastRemoteChange int64
	// LastPushed is the lastLocalChange value covered by the last successful
	// push; journal entries newer than it are still outstanding here.
	LastPushed int64
	Info       string
}
