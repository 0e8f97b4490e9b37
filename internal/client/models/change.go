package models

// ChangeKind is the kind of a journal entry.
type ChangeKind string

const (
	ChangeAdd    ChangeKind = "add"
	ChangeUpdate ChangeKind = "update"
	ChangeDelete ChangeKind = "delete"
)

func (k ChangeKind) Valid() bool {
	return k == ChangeAdd || k == ChangeUpdate || k == ChangeDelete
}

// Change is one Local Change Journal entry. Field is set only for updates.
type Change struct {
	ID        string
	Item      string
	Kind      ChangeKind
	Field     Field
	Timestamp int64
}
