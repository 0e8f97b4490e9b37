package models

// Values are the collection-wide settings that travel with snapshots.
// The side with the newer LastUpdated wins on merge.
type Values struct {
	DefaultSortBy   string `json:"defaultSortBy,omitempty"`
	DefaultSortDesc bool   `json:"defaultSortDesc,omitempty"`
	LastUpdated     int64  `json:"lastUpdated,omitempty"`
}
