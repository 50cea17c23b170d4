package ocr

import (
	"encoding/json"
	"fmt"
)

// JobState is the job_state reported by the status endpoint.
type JobState string

const (
	StateAccepted           JobState = "Accepted"
	StatePending            JobState = "Pending"
	StateRunning            JobState = "Running"
	StateCompleted          JobState = "Completed"
	StatePartiallyCompleted JobState = "PartiallyCompleted"
	StateFailed             JobState = "Failed"
)

// Succeeded reports whether results can be downloaded.
func (s JobState) Succeeded() bool {
	return s == StateCompleted || s == StatePartiallyCompleted
}

// Terminal reports whether polling should stop.
func (s JobState) Terminal() bool {
	return s.Succeeded() || s == StateFailed
}

// PageCounts aggregates the per-file page counters of a status answer.
type PageCounts struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// Snapshot is the state of a job at one poll.
type Snapshot struct {
	JobID        string     `json:"job_id"`
	State        JobState   `json:"state"`
	Pages        PageCounts `json:"pages"`
	ErrorMessage string     `json:"error_message,omitempty"`
	PageErrors   []string   `json:"page_errors,omitempty"`
}

// FailureMessage picks the most specific error text the service gave us.
func (s Snapshot) FailureMessage() string {
	if s.ErrorMessage != "" {
		return s.ErrorMessage
	}
	if len(s.PageErrors) > 0 {
		return s.PageErrors[0]
	}
	return "unknown error"
}

type statusResponse struct {
	JobID        string  `json:"job_id"`
	JobState     string  `json:"job_state"`
	ErrorMessage *string `json:"error_message"`
	JobDetails   []struct {
		TotalPages     int               `json:"total_pages"`
		PagesProcessed int               `json:"pages_processed"`
		PagesSucceeded int               `json:"pages_succeeded"`
		PagesFailed    int               `json:"pages_failed"`
		State          string            `json:"state"`
		ErrorMessage   string            `json:"error_message"`
		ErrorCode      string            `json:"error_code"`
		PageErrors     []json.RawMessage `json:"page_errors"`
	} `json:"job_details"`
}

func parseSnapshot(jobID string, body []byte) (Snapshot, error) {
	var raw statusResponse
	if err := json.Unmarshal(body, &raw); err != nil {
		return Snapshot{}, fmt.Errorf("parse status: %w (body: %s)", err, string(body))
	}

	snap := Snapshot{JobID: raw.JobID, State: JobState(raw.JobState)}
	if snap.JobID == "" {
		snap.JobID = jobID
	}
	if raw.ErrorMessage != nil {
		snap.ErrorMessage = *raw.ErrorMessage
	}
	for _, d := range raw.JobDetails {
		snap.Pages.Total += d.TotalPages
		snap.Pages.Processed += d.PagesProcessed
		snap.Pages.Succeeded += d.PagesSucceeded
		snap.Pages.Failed += d.PagesFailed
		if d.ErrorMessage != "" {
			snap.PageErrors = append(snap.PageErrors, d.ErrorMessage)
		}
		for _, pe := range d.PageErrors {
			snap.PageErrors = append(snap.PageErrors, rawErrorText(pe))
		}
	}
	return snap, nil
}

// rawErrorText accepts page errors given either as strings or as objects.
func rawErrorText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message      string `json:"message"`
		ErrorMessage string `json:"error_message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.ErrorMessage != "" {
			return obj.ErrorMessage
		}
		if obj.Message != "" {
			return obj.Message
		}
	}
	return string(raw)
}
