package models

import "time"

// Snapshot is the serialized collection a user keeps under one scope.
// Clock is bumped on every write and never goes backwards.
type Snapshot struct {
	UserID    string
	Scope     string
	Content   string
	Clock     int64
	UpdatedAt time.Time
}
