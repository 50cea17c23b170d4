package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"strings"

	"notescan/internal/extractor"
	"notescan/internal/lang"
	"notescan/internal/ocr"
)

const (
	maxUploadBytes = 10 << 20
	// Multipart framing and the language field ride on top of the file.
	maxRequestBytes = 2*maxUploadBytes + 1<<20
)

var allowedMIMETypes = map[string]bool{
	"image/png":       true,
	"image/jpeg":      true,
	"image/webp":      true,
	"image/bmp":       true,
	"image/tiff":      true,
	"application/pdf": true,
}

var (
	errNoFile   = invalid("No file provided. Please upload an image.")
	errTooLarge = invalid("File too large. Maximum size is 10 MB.")
)

func errUnsupportedType(t string) error {
	return invalid(fmt.Sprintf("Unsupported file type: %s. Please use PNG, JPG, PDF, TIFF, BMP, or WebP.", t))
}

func errUnsupportedLanguage(l string) error {
	return invalid(fmt.Sprintf("Unsupported language: %s.", l))
}

// validateUpload applies the size, type and language rules in that order.
func validateUpload(size int64, mimeType, language string) error {
	if size > maxUploadBytes {
		return errTooLarge
	}
	if !allowedMIMETypes[mimeType] {
		return errUnsupportedType(mimeType)
	}
	if !lang.Valid(language) {
		return errUnsupportedLanguage(language)
	}
	return nil
}

// normalizeMIME strips parameters ("image/png; q=1") and lowercases.
func normalizeMIME(raw string) string {
	if raw == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(raw))
	}
	return mt
}

// fallbackFileName names an upload that arrived without a file name.
func fallbackFileName(name, mimeType string) string {
	if name != "" {
		return name
	}
	sub := "png"
	if i := strings.IndexByte(mimeType, '/'); i >= 0 && i+1 < len(mimeType) {
		sub = mimeType[i+1:]
	}
	return "upload." + sub
}

// readUpload parses the multipart form of POST /api/ocr into a validated Upload.
// Nothing here touches the network.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (ocr.Upload, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return ocr.Upload{}, errTooLarge
		}
		if errors.Is(err, http.ErrNotMultipart) || errors.Is(err, http.ErrMissingBoundary) {
			return ocr.Upload{}, errNoFile
		}
		return ocr.Upload{}, invalid("Failed to parse upload: " + err.Error())
	}

	file, fh, err := r.FormFile("file")
	if err != nil {
		return ocr.Upload{}, errNoFile
	}
	defer file.Close()

	language := r.FormValue("language")
	if language == "" {
		language = string(lang.Default)
	}

	mimeType := normalizeMIME(fh.Header.Get("Content-Type"))
	if fh.Size > maxUploadBytes {
		return ocr.Upload{}, errTooLarge
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return ocr.Upload{}, invalid("Failed to read upload: " + err.Error())
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = normalizeMIME(http.DetectContentType(data))
	}

	if err := validateUpload(int64(len(data)), mimeType, language); err != nil {
		return ocr.Upload{}, err
	}
	if mimeType == "application/pdf" {
		if err := s.checkPDF(data); err != nil {
			return ocr.Upload{}, err
		}
	}

	return ocr.Upload{
		Data:     data,
		FileName: fallbackFileName(fh.Filename, mimeType),
		MIMEType: mimeType,
		Language: lang.Code(language),
	}, nil
}

// checkPDF enforces MAX_PDF_PAGES when the page count can be read locally.
// PDFs the local parser cannot open are passed through to the OCR service.
func (s *Server) checkPDF(data []byte) error {
	info, err := extractor.InspectPDF(data)
	if err != nil {
		log.Printf("PDF inspection skipped: %v", err)
		return nil
	}
	log.Printf("PDF upload: %d pages", info.Pages)
	if s.maxPDFPages > 0 && info.Pages > s.maxPDFPages {
		return invalid(fmt.Sprintf("PDF has too many pages (%d). Maximum is %d.", info.Pages, s.maxPDFPages))
	}
	return nil
}
