package main

import (
	"context"
	"errors"
	"net/http"

	"notescan/internal/config"
	"notescan/internal/extractor"
	"notescan/internal/llm"
	"notescan/internal/ocr"
)

// validationError is a bad request caught before any network call.
type validationError struct {
	msg string
}

func (e *validationError) Error() string { return e.msg }

func invalid(msg string) error { return &validationError{msg: msg} }

const (
	msgNoText       = "No handwritten text could be detected. Please try a clearer image with better lighting and contrast."
	msgTimeout      = "Processing took too long. Please try again with a smaller or clearer image."
	msgOCRFailed    = "The OCR service could not process this image. Please try a different image."
	msgConfigOCR    = "Server configuration error: API key not set. Please contact the administrator."
	msgConfigStudy  = "Server configuration error: API key not set."
	msgGeneric      = "Something went wrong. Please try again."
	msgStudyFailed  = "Failed to process your request. Please try again."
	msgCancelled    = "Request cancelled."
	msgInvalidMode  = "Invalid mode. Use: summarize, explain, quiz, translate"
	statusCancelled = 499
)

// classifyOCR picks the HTTP status and user-facing message for an OCR error.
func classifyOCR(err error) (int, string) {
	var (
		ve       *validationError
		failed   *ocr.JobFailedError
		apiErr   *ocr.APIError
		transfer *ocr.TransferError
	)
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.msg
	case errors.Is(err, extractor.ErrNoTextDetected):
		return http.StatusUnprocessableEntity, msgNoText
	case errors.Is(err, ocr.ErrTimeout):
		return http.StatusGatewayTimeout, msgTimeout
	case errors.As(err, &failed), errors.As(err, &apiErr), errors.As(err, &transfer),
		errors.Is(err, ocr.ErrNoUploadURL), errors.Is(err, ocr.ErrNoDownloadURL):
		return http.StatusBadGateway, msgOCRFailed
	case errors.Is(err, config.ErrMissingAPIKey):
		return http.StatusInternalServerError, msgConfigOCR
	case errors.Is(err, context.Canceled):
		return statusCancelled, msgCancelled
	default:
		return http.StatusInternalServerError, msgGeneric
	}
}

// classifyStudy does the same for study-assist errors.
func classifyStudy(err error) (int, string) {
	var ve *validationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.msg
	case errors.Is(err, llm.ErrInvalidMode):
		return http.StatusBadRequest, msgInvalidMode
	case errors.Is(err, config.ErrMissingAPIKey):
		return http.StatusInternalServerError, msgConfigStudy
	case errors.Is(err, context.Canceled):
		return statusCancelled, msgCancelled
	default:
		return http.StatusInternalServerError, msgStudyFailed
	}
}
