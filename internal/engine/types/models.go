package types

import "strings"

// ResolutionBest disables the height limit passed to the downloader.
const ResolutionBest = "best"

// DownloadRequest describes one item to fetch. It is not modified once a batch starts.
type DownloadRequest struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Title         string `json:"title"`
	SeasonEpisode string `json:"season_episode,omitempty"` // e.g. "S01E02"
	Resolution    string `json:"resolution"`               // "720", "1080" or "best"
	Language      string `json:"language,omitempty"`
	Selected      bool   `json:"selected"`
}

// DisplayName returns the title with the season/episode tag appended when present.
func (r DownloadRequest) DisplayName() string {
	title := strings.TrimSpace(r.Title)
	if se := strings.TrimSpace(r.SeasonEpisode); se != "" {
		return title + " - " + se
	}
	return title
}

// HasHeightLimit reports whether the request caps the video height.
func (r DownloadRequest) HasHeightLimit() bool {
	res := NormalizeResolution(r.Resolution)
	return res != "" && res != ResolutionBest
}

// ItemStatus is the lifecycle state of a batch item.
type ItemStatus string

const (
	StatusPending   ItemStatus = "pending"
	StatusRunning   ItemStatus = "running"
	StatusCompleted ItemStatus = "completed"
	StatusCancelled ItemStatus = "cancelled"
	StatusFailed    ItemStatus = "failed"
)

// IsActive reports whether the item is currently being worked on.
func (s ItemStatus) IsActive() bool {
	return s == StatusRunning
}

// IsFinished reports whether the item reached a terminal state.
func (s ItemStatus) IsFinished() bool {
	switch s {
	case StatusCompleted, StatusCancelled, StatusFailed:
		return true
	}
	return false
}

// OutcomeKind classifies how a single download run ended.
type OutcomeKind int

const (
	OutcomeCompleted OutcomeKind = iota
	OutcomeCancelled
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Status maps the outcome onto the item lifecycle.
func (k OutcomeKind) Status() ItemStatus {
	switch k {
	case OutcomeCompleted:
		return StatusCompleted
	case OutcomeCancelled:
		return StatusCancelled
	}
	return StatusFailed
}

// Outcome is the single result of running one item.
type Outcome struct {
	Kind     OutcomeKind
	Reason   string // set for failures
	DestPath string // set on completion
}

func Completed(dest string) Outcome {
	return Outcome{Kind: OutcomeCompleted, DestPath: dest}
}

func Cancelled() Outcome {
	return Outcome{Kind: OutcomeCancelled}
}

func Failed(reason string) Outcome {
	return Outcome{Kind: OutcomeFailed, Reason: reason}
}

// DownloadEntry is a finished item as stored in the history database.
type DownloadEntry struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	DestPath    string `json:"dest_path,omitempty"`
	Status      string `json:"status"` // "completed", "cancelled", "failed"
	Reason      string `json:"reason,omitempty"`
	Resolution  string `json:"resolution"`
	CompletedAt int64  `json:"completed_at"` // Unix timestamp
	TimeTaken   int64  `json:"time_taken"`   // Duration in milliseconds
}
