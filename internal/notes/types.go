// Package notes implements the incremental meeting-notes extractor: a
// periodic trigger that hands accumulated+new transcript segments to an
// LLM and merges back only the genuinely new structured items it returns.
package notes

// KeyPoint is a topic worth remembering from the transcript.
type KeyPoint struct {
	Topic     string `json:"topic"`
	Summary   string `json:"summary"`
	Timestamp string `json:"timestamp"`
}

// Decision is something the meeting settled on.
type Decision struct {
	Decision  string `json:"decision"`
	Rationale string `json:"rationale,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ActionItem is a task assigned during the meeting. Owner/Deadline/Priority
// are inferred by the LLM from context, so they're frequently absent.
type ActionItem struct {
	Task     string `json:"task"`
	Owner    string `json:"owner,omitempty"`
	Deadline string `json:"deadline,omitempty"`
	Priority string `json:"priority,omitempty"` // "high" | "medium" | "low"
}

// Risk is a concern raised during the meeting.
type Risk struct {
	Risk       string `json:"risk"`
	Impact     string `json:"impact,omitempty"`
	Mitigation string `json:"mitigation,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// Category names a note's storage type.
type Category string

const (
	CategoryKeyPoint   Category = "key_point"
	CategoryDecision   Category = "decision"
	CategoryActionItem Category = "action_item"
	CategoryRisk       Category = "risk"
)

// IncrementalNotesResponse is both the LLM's structured output per update
// and the note engine's running accumulated state.
type IncrementalNotesResponse struct {
	KeyPoints   []KeyPoint   `json:"key_points"`
	Decisions   []Decision   `json:"decisions"`
	ActionItems []ActionItem `json:"action_items"`
	Risks       []Risk       `json:"risks"`
}

// Empty returns a response with no items in any category.
func Empty() IncrementalNotesResponse {
	return IncrementalNotesResponse{}
}

// IsEmpty reports whether every category is empty.
func (r IncrementalNotesResponse) IsEmpty() bool {
	return len(r.KeyPoints) == 0 && len(r.Decisions) == 0 && len(r.ActionItems) == 0 && len(r.Risks) == 0
}

// Merge appends other's items onto r's, per category, with no
// deduplication — the LLM is instructed to return only new items.
func (r *IncrementalNotesResponse) Merge(other IncrementalNotesResponse) {
	r.KeyPoints = append(r.KeyPoints, other.KeyPoints...)
	r.Decisions = append(r.Decisions, other.Decisions...)
	r.ActionItems = append(r.ActionItems, other.ActionItems...)
	r.Risks = append(r.Risks, other.Risks...)
}

// Count returns the total number of items across all categories.
func (r IncrementalNotesResponse) Count() int {
	return len(r.KeyPoints) + len(r.Decisions) + len(r.ActionItems) + len(r.Risks)
}

// TranscriptSegment is the minimal view of a finalized transcript segment
// the note engine needs: just enough to format it into a prompt.
type TranscriptSegment struct {
	Text        string
	TimestampMs int64
	SegmentID   string
}
