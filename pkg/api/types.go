package api

import "time"

// EntityType identifies a browsable content collection
type EntityType string

const (
	EntityTextures EntityType = "textures"
	EntityPacks    EntityType = "packs"
)

// ParseEntityType validates a user-supplied entity type string
func ParseEntityType(s string) (EntityType, bool) {
	switch EntityType(s) {
	case EntityTextures, EntityPacks:
		return EntityType(s), true
	default:
		return "", false
	}
}

// Status is the moderation status of a record
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Record represents one content item (texture or pack)
type Record struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Description   string    `json:"description"`
	Status        Status    `json:"status"`
	Aircraft      string    `json:"aircraft,omitempty"`
	Category      string    `json:"category,omitempty"`
	TextureType   string    `json:"texture_type,omitempty"`
	Upvotes       int       `json:"upvotes"`
	Downvotes     int       `json:"downvotes"`
	DownloadCount int       `json:"download_count,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NetVotes returns upvotes minus downvotes
func (r Record) NetVotes() int {
	return r.Upvotes - r.Downvotes
}

// PageResponse represents one page of records
type PageResponse struct {
	Records    []Record `json:"records"`
	TotalCount int      `json:"total_count"`
	Offset     int      `json:"offset"`
	Limit      int      `json:"limit"`
}

// CountResponse represents a collection count
type CountResponse struct {
	Count int `json:"count"`
}

// DistinctResponse represents a server-side distinct-values aggregate
type DistinctResponse struct {
	Field  string   `json:"field"`
	Values []string `json:"values"`
}
