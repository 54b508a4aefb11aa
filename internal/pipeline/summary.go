package pipeline

import (
	"fmt"
	"strings"
	"time"
)

// Summary aggregates a batch stream into per-file outcomes
type Summary struct {
	RunID       string
	TotalFiles  int
	Succeeded   int
	Failed      int
	BlockErrors int
	Forced      int
	Fatal       string
	Duration    time.Duration
	Files       []FileResult

	started time.Time
	byIndex map[int]int
}

// FileResult is the outcome of one input file
type FileResult struct {
	Index       int
	Path        string
	SavePath    string
	Success     bool
	Errors      []string
	BlockErrors int
	Forced      int
}

// NewSummary creates an empty summary
func NewSummary() *Summary {
	return &Summary{
		Files:   make([]FileResult, 0),
		started: time.Now(),
		byIndex: make(map[int]int),
	}
}

func (s *Summary) file(ev Event) *FileResult {
	idx := 0
	if ev.FileIndex != nil {
		idx = *ev.FileIndex
	}
	if i, ok := s.byIndex[idx]; ok {
		fr := &s.Files[i]
		if fr.Path == "" {
			fr.Path = ev.FilePath
		}
		return fr
	}
	s.Files = append(s.Files, FileResult{Index: idx, Path: ev.FilePath})
	s.byIndex[idx] = len(s.Files) - 1
	return &s.Files[len(s.Files)-1]
}

// Observe folds ev into the summary
func (s *Summary) Observe(ev Event) {
	switch ev.Type {
	case EventInit:
		s.RunID = ev.RunID
		if ev.TotalFiles != nil {
			s.TotalFiles = *ev.TotalFiles
		}
	case EventError:
		fr := s.file(ev)
		fr.Errors = append(fr.Errors, ev.Error)
		if ev.Page != nil || ev.Block != nil {
			fr.BlockErrors++
			s.BlockErrors++
		}
	case EventComplete:
		fr := s.file(ev)
		fr.SavePath = ev.SavePath
		fr.Success = ev.Success != nil && *ev.Success
		if ev.Forced != nil {
			fr.Forced = *ev.Forced
			s.Forced += *ev.Forced
		}
	case EventFatal:
		s.Fatal = ev.Error
	case EventFinish:
		if ev.Succeeded != nil {
			s.Succeeded = *ev.Succeeded
		}
		if ev.Failed != nil {
			s.Failed = *ev.Failed
		}
	}
	s.Duration = time.Since(s.started)
}

// HasFailures returns true if any file failed or the run aborted
func (s *Summary) HasFailures() bool {
	return s.Failed > 0 || s.Fatal != ""
}

// String returns a human-readable summary
func (s *Summary) String() string {
	var sb strings.Builder

	sb.WriteString("Translation Summary:\n")
	sb.WriteString(fmt.Sprintf("  Run: %s\n", s.RunID))
	sb.WriteString(fmt.Sprintf("  Total Files: %d\n", s.TotalFiles))
	sb.WriteString(fmt.Sprintf("  Successful: %d\n", s.Succeeded))
	sb.WriteString(fmt.Sprintf("  Failed: %d\n", s.Failed))
	sb.WriteString(fmt.Sprintf("  Block Errors: %d\n", s.BlockErrors))
	sb.WriteString(fmt.Sprintf("  Forced Insertions: %d\n", s.Forced))
	sb.WriteString(fmt.Sprintf("  Duration: %v\n", s.Duration.Round(time.Millisecond)))

	if s.Fatal != "" {
		sb.WriteString(fmt.Sprintf("\nAborted: %s\n", s.Fatal))
	}

	var failed []FileResult
	for _, fr := range s.Files {
		if !fr.Success && len(fr.Errors) > 0 {
			failed = append(failed, fr)
		}
	}
	if len(failed) > 0 {
		sb.WriteString("\nFailures:\n")
		for _, fr := range failed {
			sb.WriteString(fmt.Sprintf("  - %s: %s\n", fr.Path, fr.Errors[len(fr.Errors)-1]))
		}
	}

	return sb.String()
}
