// Package models holds the rows the server persists.
package models

import "time"

// User is an account. The server never sees the password: it stores the
// KDF salt handed to clients and the verifier derived from the master key.
type User struct {
	ID        string
	UserName  string
	Salt      []byte
	Verifier  []byte
	CreatedAt time.Time
}
