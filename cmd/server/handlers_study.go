package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"notescan/internal/lang"
	"notescan/internal/llm"
)

type StudyRequest struct {
	Text           string `json:"text"`
	Mode           string `json:"mode"`
	Language       string `json:"language"`
	TargetLanguage string `json:"targetLanguage,omitempty"`
}

type StudyResponse struct {
	Result string `json:"result"`
}

// toAssistRequest validates req and truncates its text for the model.
func (req StudyRequest) toAssistRequest() (llm.Request, error) {
	if strings.TrimSpace(req.Text) == "" {
		return llm.Request{}, invalid("No text provided.")
	}
	mode, err := llm.ParseMode(req.Mode)
	if err != nil {
		return llm.Request{}, invalid(msgInvalidMode)
	}
	if !lang.Valid(req.Language) {
		return llm.Request{}, invalid("Invalid language code.")
	}
	return llm.Request{
		Text:     llm.TruncateText(req.Text, llm.MaxInputChars),
		Mode:     mode,
		Language: lang.Code(req.Language),
		Target:   lang.Code(req.TargetLanguage),
	}, nil
}

func (s *Server) handleStudy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rid := requestID(r)

	var req StudyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		jsonErr(w, "No text provided.", http.StatusBadRequest)
		return
	}
	areq, err := req.toAssistRequest()
	if err != nil {
		code, msg := classifyStudy(err)
		jsonErr(w, msg, code)
		return
	}

	log.Printf("[%s] Study: mode=%s language=%s target=%s (%d chars)", rid, areq.Mode, areq.Language, areq.Target, len(areq.Text))
	result, err := s.assistant.Assist(r.Context(), areq)
	if err != nil {
		code, msg := classifyStudy(err)
		log.Printf("[%s] [Study API Error] %v (-> %d)", rid, err, code)
		jsonErr(w, msg, code)
		return
	}
	jsonResp(w, StudyResponse{Result: result})
}
