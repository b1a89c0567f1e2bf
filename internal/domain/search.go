package domain

// Metadata field names read from index matches.
const (
	MetadataText   = "text"
	MetadataCourse = "course"
)

// SearchRequest is the decoded inbound payload.
type SearchRequest struct {
	Prompt       string `json:"prompt"`
	Instructions string `json:"instructions"`
	CourseID     string `json:"courseID,omitempty"`
}

// Validate checks that prompt and instructions are present.
// The messages are returned to clients verbatim.
func (r SearchRequest) Validate() error {
	if r.Prompt == "" {
		return NewValidationError("Prompt is required")
	}
	if r.Instructions == "" {
		return NewValidationError("Instructions are required")
	}
	return nil
}

// Metadata is the free-form attribute map stored next to an indexed vector.
type Metadata map[string]any

// Text returns the document text, or "" when absent or not a string.
func (m Metadata) Text() string {
	return m.str(MetadataText)
}

// Course returns the course the document belongs to.
func (m Metadata) Course() string {
	return m.str(MetadataCourse)
}

func (m Metadata) str(key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// Match is a single nearest-neighbour hit returned by the vector index.
type Match struct {
	ID       string   `json:"id"`
	Score    float64  `json:"score"`
	Metadata Metadata `json:"metadata,omitempty"`
}

// Completion is the generated chat message returned to the caller unmodified.
type Completion struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
