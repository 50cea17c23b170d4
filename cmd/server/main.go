package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notescan/internal/config"
	"notescan/internal/llm"
	"notescan/internal/ocr"
)

func main() {
	cfg := config.Load()

	if _, err := cfg.APIKey(); err != nil {
		log.Printf("WARNING: %v; OCR and study requests will fail until it is set", err)
	} else {
		log.Printf("Sarvam API key loaded (%s)", cfg.MaskedKey())
	}
	log.Printf("OCR: %s (poll every %v, give up after %v)", cfg.OCRBaseURL, cfg.PollInterval, cfg.MaxWait)
	log.Printf("Chat: %s model=%s", cfg.ChatBaseURL, cfg.ChatModel)
	if cfg.MaxPDFPages > 0 {
		log.Printf("PDF uploads limited to %d pages", cfg.MaxPDFPages)
	}

	srv := newServer(ocr.NewClientFromConfig(cfg), llm.NewAssistantFromConfig(cfg), cfg.MaxPDFPages)

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.MaxWait+10*time.Second)
		defer cancel()
		log.Printf("Shutting down, waiting for in-flight jobs...")
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Shutdown: %v", err)
		}
	}()

	log.Printf("NoteScan server starting on http://localhost:%s", cfg.Port)
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	<-done
}
