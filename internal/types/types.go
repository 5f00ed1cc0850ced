package types

import "time"

// MediaRecord is a query-time view of one stored image. Records are
// synthesized on every listing call and never persisted; the AccessURL
// expires on its own schedule, so a record is not a stable reference.
type MediaRecord struct {
	ID           string    `json:"id"`
	LastModified time.Time `json:"last_modified"`
	Tags         []string  `json:"tags"`
	AccessURL    string    `json:"access_url"`
}
