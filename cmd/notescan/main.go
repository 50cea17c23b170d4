package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"notescan/internal/config"
	"notescan/internal/lang"
	"notescan/internal/llm"
	"notescan/internal/ocr"
)

func main() {
	var (
		dir      = flag.String("dir", "notes", "directory of note images/PDFs")
		language = flag.String("lang", string(lang.Default), "language of the notes")
		mode     = flag.String("mode", "", "optional study mode: summarize, explain, quiz, translate")
		target   = flag.String("target", "", "target language for -mode translate (default English)")
		workers  = flag.Int("workers", 2, "documents processed concurrently")
		force    = flag.Bool("force", false, "re-process files that already have a .txt")
		verbose  = flag.Bool("v", false, "log every job stage and status poll")
	)
	flag.Parse()

	cfg := config.Load()
	if _, err := cfg.APIKey(); err != nil {
		log.Fatal(err)
	}
	if !lang.Valid(*language) {
		log.Fatalf("Unsupported language: %s", *language)
	}
	opts := batchOptions{
		Dir:      *dir,
		Language: lang.Code(*language),
		Target:   lang.Code(*target),
		Workers:  *workers,
		Force:    *force,
		Verbose:  *verbose,
	}
	if *mode != "" {
		m, err := llm.ParseMode(*mode)
		if err != nil {
			log.Fatal(err)
		}
		opts.Mode = m
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sum, err := runBatch(ctx, opts, ocr.NewClientFromConfig(cfg), llm.NewAssistantFromConfig(cfg))
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Finished %d files in %v: %d ok, %d partial, %d skipped, %d failed\n",
		len(sum.Files), sum.Duration.Round(time.Millisecond), sum.OK, sum.Partial, sum.Skipped, sum.Failed)
	if sum.Failed > 0 {
		os.Exit(1)
	}
}
