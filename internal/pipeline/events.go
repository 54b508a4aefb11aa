package pipeline

// EventType identifies a progress event
type EventType string

const (
	EventInit     EventType = "init"
	EventProgress EventType = "progress"
	EventError    EventType = "error"
	EventComplete EventType = "complete"
	EventFatal    EventType = "fatal_error"
	EventFinish   EventType = "finish"
)

// Stage is the phase a progress event reports
type Stage string

const (
	StageAnalyzing   Stage = "analyzing"
	StageTranslating Stage = "translating"
	StageGenerating  Stage = "generating"
)

// Event is one message of the progress stream. Counters are pointers so that
// zero values are still written. Pages and blocks are numbered from 1, files
// from 0.
type Event struct {
	Type EventType `json:"type"`

	RunID      string `json:"run_id,omitempty"`
	TotalFiles *int   `json:"total_files,omitempty"`

	FileIndex *int   `json:"file_index,omitempty"`
	FilePath  string `json:"file_path,omitempty"`

	Stage          Stage `json:"stage,omitempty"`
	CurrentPage    *int  `json:"current_page,omitempty"`
	TotalPages     *int  `json:"total_pages,omitempty"`
	CurrentSegment *int  `json:"current_segment,omitempty"`
	TotalSegments  *int  `json:"total_segments,omitempty"`

	// Page and Block scope an error event
	Page  *int `json:"page,omitempty"`
	Block *int `json:"block,omitempty"`

	SavePath string `json:"save_path,omitempty"`
	Success  *bool  `json:"success,omitempty"`

	// Forced counts blocks written past their box on a complete event
	Forced *int `json:"forced,omitempty"`

	Succeeded *int `json:"succeeded,omitempty"`
	Failed    *int `json:"failed,omitempty"`

	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func ptr[T any](v T) *T {
	return &v
}

// Terminal reports whether no event can follow e in a batch stream
func (e Event) Terminal() bool {
	return e.Type == EventFinish || e.Type == EventFatal
}
