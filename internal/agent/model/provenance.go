package model

// SourceType is the kind of data source behind a provenance record.
type SourceType string

const (
	SourceDatabase SourceType = "database"
	SourceSemantic SourceType = "semantic"
	SourceOMDB     SourceType = "omdb"
	SourceWeb      SourceType = "web"
)

// Provenance describes one data source consulted while answering a turn.
type Provenance struct {
	Type    SourceType `json:"type"`
	Name    string     `json:"name"`
	URL     string     `json:"url,omitempty"`
	Details string     `json:"details,omitempty"`
}
