package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"notescan/internal/lang"
	"notescan/internal/llm"
	"notescan/internal/ocr"

	"github.com/google/uuid"
)

// recognizer runs the OCR pipeline for one upload.
type recognizer interface {
	ProcessImage(ctx context.Context, up ocr.Upload, opts ...ocr.RunOption) (*ocr.Result, error)
}

// studyAssistant turns notes into a study aid.
type studyAssistant interface {
	Assist(ctx context.Context, req llm.Request) (string, error)
}

// Server holds the long-lived clients; handlers keep no per-request state on it.
type Server struct {
	ocr         recognizer
	assistant   studyAssistant
	maxPDFPages int
}

func newServer(rec recognizer, assistant studyAssistant, maxPDFPages int) *Server {
	return &Server{ocr: rec, assistant: assistant, maxPDFPages: maxPDFPages}
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/ocr", s.handleOCR)
	mux.HandleFunc("/api/ocr/ws", s.handleOCRStream)
	mux.HandleFunc("/api/study", s.handleStudy)
	mux.HandleFunc("/api/languages", s.handleLanguages)
	mux.HandleFunc("/health", s.handleHealth)

	return requestIDMiddleware(corsMiddleware(mux))
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jsonResp(w, map[string]interface{}{
		"languages": lang.All(),
		"default":   lang.Default,
		"modes":     llm.Modes,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResp(w, map[string]string{"status": "ok"})
}

// ========== Middleware ==========

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type ctxKey int

const requestIDKey ctxKey = 0

// requestIDMiddleware tags every request with an id that shows up in the
// X-Request-ID response header and in log lines.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey).(string)
	return id
}

// ========== Helper ==========

func jsonResp(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Warning: failed to write response: %v", err)
	}
}

func jsonErr(w http.ResponseWriter, msg string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
