package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"notescan/internal/lang"
	"notescan/internal/ocr"

	"github.com/gorilla/websocket"
)

// Stream protocol for GET /api/ocr/ws:
//   client -> text frame   {"file_name","mime_type","language"}
//   client -> binary frame  the document bytes
//   server -> {"type":"progress", ...} for every stage change and status poll
//   server -> {"type":"result", ...OCRResponse} or {"type":"error","error","status"}
// The server closes the connection after the final message.

type streamHeader struct {
	FileName string `json:"file_name"`
	MIMEType string `json:"mime_type"`
	Language string `json:"language"`
}

type streamMessage struct {
	Type string `json:"type"`

	// progress
	JobID  string        `json:"job_id,omitempty"`
	Stage  string        `json:"stage,omitempty"`
	Status *ocr.Snapshot `json:"status,omitempty"`

	// result
	Result *OCRResponse `json:"result,omitempty"`

	// error
	Error      string `json:"error,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

const wsWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  32 << 10,
	WriteBufferSize: 32 << 10,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

func (s *Server) handleOCRStream(w http.ResponseWriter, r *http.Request) {
	rid := requestID(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[%s] websocket upgrade failed: %v", rid, err)
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxUploadBytes + 64<<10)

	send := func(m streamMessage) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(m)
	}
	fail := func(err error) {
		code, msg := classifyOCR(err)
		log.Printf("[%s] OCR stream error: %v (-> %d)", rid, err, code)
		_ = send(streamMessage{Type: "error", Error: msg, StatusCode: code})
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
	}

	up, err := s.readStreamUpload(conn)
	if err != nil {
		fail(err)
		return
	}

	// The client closing its side cancels the job.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	log.Printf("[%s] OCR stream: %s (%s, %d bytes, language=%s)", rid, up.FileName, up.MIMEType, len(up.Data), up.Language)
	res, err := s.ocr.ProcessImage(ctx, up, ocr.WithProgress(func(p ocr.Progress) {
		if err := send(streamMessage{Type: "progress", JobID: p.JobID, Stage: p.Stage, Status: p.Status}); err != nil {
			cancel()
		}
	}))
	if err != nil {
		fail(err)
		return
	}

	resp := newOCRResponse(res)
	_ = send(streamMessage{Type: "result", Result: &resp})
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
}

func (s *Server) readStreamUpload(conn *websocket.Conn) (ocr.Upload, error) {
	var hdr streamHeader
	if err := conn.ReadJSON(&hdr); err != nil {
		return ocr.Upload{}, invalid("Expected a JSON header with file_name, mime_type and language.")
	}
	kind, data, err := conn.ReadMessage()
	if err != nil {
		if err == websocket.ErrReadLimit {
			return ocr.Upload{}, errTooLarge
		}
		return ocr.Upload{}, errNoFile
	}
	if kind != websocket.BinaryMessage || len(data) == 0 {
		return ocr.Upload{}, errNoFile
	}

	language := hdr.Language
	if language == "" {
		language = string(lang.Default)
	}
	mimeType := normalizeMIME(hdr.MIMEType)
	if mimeType == "" {
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
		FileName: fallbackFileName(hdr.FileName, mimeType),
		MIMEType: mimeType,
		Language: lang.Code(language),
	}, nil
}
