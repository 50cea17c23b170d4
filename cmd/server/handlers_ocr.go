package main

import (
	"log"
	"net/http"
	"time"

	"notescan/internal/ocr"
)

// OCRResponse is the body of a successful POST /api/ocr.
type OCRResponse struct {
	Text        string         `json:"text"`
	JobID       string         `json:"job_id,omitempty"`
	State       ocr.JobState   `json:"state,omitempty"`
	Pages       ocr.PageCounts `json:"pages"`
	PagesFailed int            `json:"pages_failed"`
	Warnings    []string       `json:"warnings,omitempty"`
}

func newOCRResponse(res *ocr.Result) OCRResponse {
	resp := OCRResponse{
		Text:        res.Text,
		JobID:       res.JobID,
		State:       res.State,
		Pages:       res.Pages,
		PagesFailed: res.Pages.Failed,
	}
	if res.Partial() {
		resp.Warnings = append(resp.Warnings, res.PageErrors...)
		if len(resp.Warnings) == 0 {
			resp.Warnings = []string{"Some pages could not be read."}
		}
	}
	return resp
}

func (s *Server) handleOCR(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rid := requestID(r)

	up, err := s.readUpload(w, r)
	if err != nil {
		code, msg := classifyOCR(err)
		log.Printf("[%s] OCR rejected: %v", rid, err)
		jsonErr(w, msg, code)
		return
	}

	start := time.Now()
	log.Printf("[%s] OCR: %s (%s, %d bytes, language=%s)", rid, up.FileName, up.MIMEType, len(up.Data), up.Language)
	res, err := s.ocr.ProcessImage(r.Context(), up)
	if err != nil {
		code, msg := classifyOCR(err)
		log.Printf("[%s] [OCR API Error] %v (-> %d)", rid, err, code)
		jsonErr(w, msg, code)
		return
	}

	log.Printf("[%s] OCR: job %s done in %v, %d chars", rid, res.JobID, time.Since(start).Round(time.Millisecond), len(res.Text))
	jsonResp(w, newOCRResponse(res))
}
