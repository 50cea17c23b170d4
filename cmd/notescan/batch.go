package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"notescan/internal/lang"
	"notescan/internal/llm"
	"notescan/internal/ocr"
)

var extMIME = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
	".pdf":  "application/pdf",
}

const maxFileBytes = 10 << 20

type recognizer interface {
	ProcessImage(ctx context.Context, up ocr.Upload, opts ...ocr.RunOption) (*ocr.Result, error)
}

type studyAssistant interface {
	Assist(ctx context.Context, req llm.Request) (string, error)
}

type batchOptions struct {
	Dir      string
	Language lang.Code
	Mode     llm.Mode // empty: OCR only
	Target   lang.Code
	Workers  int
	Force    bool
	Verbose  bool
}

type fileOutcome struct {
	Name    string
	Status  string // "ok", "partial", "skipped" or "failed"
	Err     error
	Chars   int
	Elapsed time.Duration
}

type batchSummary struct {
	Files    []fileOutcome
	OK       int
	Partial  int
	Skipped  int
	Failed   int
	Duration time.Duration
}

// listInputs returns the supported files in dir, sorted by name.
func listInputs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := extMIME[strings.ToLower(filepath.Ext(e.Name()))]; ok {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func textPath(dir, name string) string {
	return filepath.Join(dir, strings.TrimSuffix(name, filepath.Ext(name))+".txt")
}

func studyPath(dir, name string, mode llm.Mode) string {
	return filepath.Join(dir, strings.TrimSuffix(name, filepath.Ext(name))+"."+string(mode)+".md")
}

// runBatch OCRs every supported file in opts.Dir with at most opts.Workers
// jobs in flight, writing <name>.txt (and <name>.<mode>.md) next to each file.
func runBatch(ctx context.Context, opts batchOptions, rec recognizer, asst studyAssistant) (*batchSummary, error) {
	files, err := listInputs(opts.Dir)
	if err != nil {
		return nil, fmt.Errorf("read input directory: %w", err)
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	start := time.Now()
	outcomes := make([]fileOutcome, len(files))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	var done int32

	for i, name := range files {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()

			select {
			case <-ctx.Done():
				outcomes[i] = fileOutcome{Name: name, Status: "failed", Err: ctx.Err()}
				return
			case sem <- struct{}{}:
			}
			defer func() { <-sem }()

			outcomes[i] = processFile(ctx, opts, rec, asst, name)
			n := atomic.AddInt32(&done, 1)
			o := outcomes[i]
			if o.Err != nil {
				log.Printf("[%d/%d] %s: %s after %v: %v", n, len(files), name, o.Status, o.Elapsed.Round(time.Millisecond), o.Err)
			} else {
				log.Printf("[%d/%d] %s: %s (%d chars in %v)", n, len(files), name, o.Status, o.Chars, o.Elapsed.Round(time.Millisecond))
			}
		}(i, name)
	}
	wg.Wait()

	sum := &batchSummary{Files: outcomes, Duration: time.Since(start)}
	for _, o := range outcomes {
		switch o.Status {
		case "ok":
			sum.OK++
		case "partial":
			sum.Partial++
		case "skipped":
			sum.Skipped++
		default:
			sum.Failed++
		}
	}
	return sum, nil
}

func processFile(ctx context.Context, opts batchOptions, rec recognizer, asst studyAssistant, name string) (out fileOutcome) {
	start := time.Now()
	out.Name = name
	defer func() { out.Elapsed = time.Since(start) }()
	txt := textPath(opts.Dir, name)

	if !opts.Force {
		if _, err := os.Stat(txt); err == nil {
			out.Status = "skipped"
			return out
		}
	}

	data, err := os.ReadFile(filepath.Join(opts.Dir, name))
	if err != nil {
		out.Status, out.Err = "failed", err
		return out
	}
	if len(data) > maxFileBytes {
		out.Status, out.Err = "failed", fmt.Errorf("file is %d bytes, maximum is %d", len(data), maxFileBytes)
		return out
	}

	var runOpts []ocr.RunOption
	if opts.Verbose {
		runOpts = append(runOpts, ocr.WithProgress(func(p ocr.Progress) {
			if p.Status != nil {
				log.Printf("  %s: job %s %s (%d/%d pages)", name, p.JobID, p.Status.State, p.Status.Pages.Processed, p.Status.Pages.Total)
				return
			}
			log.Printf("  %s: %s", name, p.Stage)
		}))
	}

	res, err := rec.ProcessImage(ctx, ocr.Upload{
		Data:     data,
		FileName: name,
		MIMEType: extMIME[strings.ToLower(filepath.Ext(name))],
		Language: opts.Language,
	}, runOpts...)
	if err != nil {
		out.Status, out.Err = "failed", err
		return out
	}
	if err := os.WriteFile(txt, []byte(res.Text+"\n"), 0644); err != nil {
		out.Status, out.Err = "failed", fmt.Errorf("write %s: %w", txt, err)
		return out
	}
	out.Status = "ok"
	if res.Partial() {
		out.Status = "partial"
	}
	out.Chars = len(res.Text)

	if opts.Mode != "" {
		result, err := asst.Assist(ctx, llm.Request{
			Text:     llm.TruncateText(res.Text, llm.MaxInputChars),
			Mode:     opts.Mode,
			Language: opts.Language,
			Target:   opts.Target,
		})
		if err != nil {
			out.Status, out.Err = "failed", fmt.Errorf("%s: %w", opts.Mode, err)
			return out
		}
		p := studyPath(opts.Dir, name, opts.Mode)
		if err := os.WriteFile(p, []byte(result+"\n"), 0644); err != nil {
			out.Status, out.Err = "failed", fmt.Errorf("write %s: %w", p, err)
			return out
		}
	}
	return out
}
