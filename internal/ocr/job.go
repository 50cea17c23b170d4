package ocr

import (
	"context"
	"fmt"
	"log"
	"strings"

	"notescan/internal/extractor"
	"notescan/internal/lang"

	"github.com/google/uuid"
)

const (
	mimePDF = "application/pdf"
	mimeZip = "application/zip"

	// WrappedUploadName is the file name used when an image is sent inside a zip.
	WrappedUploadName = "upload.zip"
)

// Upload is the caller's document.
type Upload struct {
	Data     []byte
	FileName string
	MIMEType string
	Language lang.Code
}

// Stage is how far a Job has progressed through the remote protocol.
type Stage int

const (
	StageNew      Stage = iota // nothing sent yet
	StageCreated               // job exists remotely
	StageUploaded              // payload is in blob storage
	StageStarted               // processing requested
	StageFinished              // remote job reached a success state
	StageDone                  // text extracted
)

var stageNames = [...]string{"new", "created", "uploaded", "started", "finished", "done"}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Progress is reported after every stage change and every status poll.
type Progress struct {
	JobID  string    `json:"job_id,omitempty"`
	Stage  string    `json:"stage"`
	Status *Snapshot `json:"status,omitempty"`
}

// ProgressFunc receives Progress updates on the goroutine running the job.
type ProgressFunc func(Progress)

// RunOption customises a single job run.
type RunOption func(*Job)

// WithProgress registers fn to receive progress updates.
func WithProgress(fn ProgressFunc) RunOption {
	return func(j *Job) { j.progress = fn }
}

// Result is the outcome of a finished job.
type Result struct {
	JobID      string     `json:"job_id"`
	Text       string     `json:"text"`
	State      JobState   `json:"state"`
	Pages      PageCounts `json:"pages"`
	PageErrors []string   `json:"page_errors,omitempty"`
}

// Partial reports whether some pages failed even though the job succeeded.
func (r *Result) Partial() bool {
	return r.State == StatePartiallyCompleted || r.Pages.Failed > 0
}

// Job walks one upload through create, upload, start, poll and download.
// Each call to Run continues from the current Stage, so a job that failed
// after its payload was uploaded can be resumed without re-uploading.
type Job struct {
	ID     string
	Stage  Stage
	Status Snapshot
	Text   string

	upload   Upload
	client   *Client
	progress ProgressFunc
	runID    string
}

// NewJob prepares a job for up; nothing is sent until Run.
func (c *Client) NewJob(up Upload, opts ...RunOption) *Job {
	j := &Job{
		Stage:  StageNew,
		upload: up,
		client: c,
		runID:  uuid.NewString()[:8],
	}
	for _, o := range opts {
		o(j)
	}
	return j
}

// ProcessImage runs the whole pipeline for one document and returns its text.
// The first failing step aborts the run and its error is returned unchanged.
func (c *Client) ProcessImage(ctx context.Context, up Upload, opts ...RunOption) (*Result, error) {
	return c.NewJob(up, opts...).Run(ctx)
}

// Run executes the remaining steps in order.
func (j *Job) Run(ctx context.Context) (*Result, error) {
	for j.Stage != StageDone {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := j.step(ctx); err != nil {
			log.Printf("[%s] Sarvam: job %s failed at stage %s: %v", j.runID, j.ID, j.Stage, err)
			return nil, err
		}
		j.report(nil)
	}
	return &Result{
		JobID:      j.ID,
		Text:       j.Text,
		State:      j.Status.State,
		Pages:      j.Status.Pages,
		PageErrors: j.Status.PageErrors,
	}, nil
}

func (j *Job) step(ctx context.Context) error {
	c := j.client
	switch j.Stage {
	case StageNew:
		id, err := c.CreateJob(ctx, j.upload.Language)
		if err != nil {
			return err
		}
		j.ID = id
		j.Stage = StageCreated
		log.Printf("[%s] Sarvam: created job %s (language=%s)", j.runID, id, j.upload.Language)

	case StageCreated:
		p, err := preparePayload(j.upload)
		if err != nil {
			return err
		}
		uploadURL, err := c.UploadURL(ctx, j.ID, p.fileName)
		if err != nil {
			return err
		}
		if err := c.UploadFile(ctx, uploadURL, p.data, p.mimeType); err != nil {
			return err
		}
		j.Stage = StageUploaded
		log.Printf("[%s] Sarvam: uploaded %s as %s (%d bytes)", j.runID, j.upload.FileName, p.fileName, len(p.data))

	case StageUploaded:
		if err := c.StartJob(ctx, j.ID); err != nil {
			return err
		}
		j.Stage = StageStarted
		log.Printf("[%s] Sarvam: processing started for job %s", j.runID, j.ID)

	case StageStarted:
		snap, err := c.pollStatus(ctx, j.ID, func(s Snapshot) {
			j.Status = s
			j.report(&s)
		})
		if err != nil {
			return err
		}
		j.Status = snap
		j.Stage = StageFinished
		if snap.State == StatePartiallyCompleted {
			log.Printf("[%s] Sarvam: job %s partially completed: %d/%d pages failed", j.runID, j.ID, snap.Pages.Failed, snap.Pages.Total)
		} else {
			log.Printf("[%s] Sarvam: job %s completed with state=%s", j.runID, j.ID, snap.State)
		}

	case StageFinished:
		text, err := c.DownloadAndExtractText(ctx, j.ID)
		if err != nil {
			return err
		}
		j.Text = text
		j.Stage = StageDone
		log.Printf("[%s] Sarvam: extracted %d characters from job %s", j.runID, len(text), j.ID)

	default:
		return fmt.Errorf("job %s: unexpected stage %s", j.ID, j.Stage)
	}
	return nil
}

func (j *Job) report(s *Snapshot) {
	if j.progress == nil {
		return
	}
	j.progress(Progress{JobID: j.ID, Stage: j.Stage.String(), Status: s})
}

type payload struct {
	data     []byte
	fileName string
	mimeType string
}

// preparePayload applies the format rule: the service takes only PDF or zip,
// so PDFs go as they are and everything else is wrapped in a one-file zip.
func preparePayload(up Upload) (payload, error) {
	if up.MIMEType == mimePDF {
		name := up.FileName
		if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
			name += ".pdf"
		}
		return payload{data: up.Data, fileName: name, mimeType: mimePDF}, nil
	}

	zipped, err := extractor.WrapFile(up.FileName, up.Data)
	if err != nil {
		return payload{}, fmt.Errorf("wrap %s in zip: %w", up.FileName, err)
	}
	return payload{data: zipped, fileName: WrappedUploadName, mimeType: mimeZip}, nil
}
