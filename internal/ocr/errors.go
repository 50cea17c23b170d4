package ocr

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout means the job was still queued or running at the polling deadline.
	ErrTimeout = errors.New("OCR job timed out")
	// ErrNoUploadURL means upload-files answered without a URL for our file.
	ErrNoUploadURL = errors.New("no upload URL returned from Sarvam")
	// ErrNoDownloadURL means download-files answered without any result URL.
	ErrNoDownloadURL = errors.New("no download URL returned from Sarvam")
)

// APIError is a non-2xx answer from the job-management API.
type APIError struct {
	Step       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s failed (%d): %s", e.Step, e.StatusCode, e.Body)
}

// TransferError is a non-2xx answer from blob storage during the presigned
// upload or the result bundle download.
type TransferError struct {
	Step       string
	StatusCode int
	Body       string
}

func (e *TransferError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s failed (%d)", e.Step, e.StatusCode)
	}
	return fmt.Sprintf("%s failed (%d): %s", e.Step, e.StatusCode, e.Body)
}

// JobFailedError is returned when the remote job reaches the Failed state.
type JobFailedError struct {
	JobID   string
	Message string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("Sarvam job %s failed: %s", e.JobID, e.Message)
}
