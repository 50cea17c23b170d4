package extractor

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"path"
	"sort"
	"strings"
	"unicode/utf8"
)

// ErrNoTextDetected means the bundle was read fine but held no non-empty text.
var ErrNoTextDetected = errors.New("no text detected")

// PageSeparator joins blocks within a page and pages within a document.
const PageSeparator = "\n\n"

var logf = log.Printf

// Block is one recognised region of a page in a JSON result entry.
type Block struct {
	Text         string  `json:"text"`
	LayoutTag    string  `json:"layout_tag,omitempty"`
	ReadingOrder float64 `json:"reading_order"`
}

type pageResult struct {
	Blocks []Block `json:"blocks"`
}

type entryKind int

const (
	kindIgnored entryKind = iota
	kindBlocks
	kindText
)

func kindOf(name string) entryKind {
	switch path.Ext(name) {
	case ".json":
		return kindBlocks
	case ".md", ".txt", ".html":
		return kindText
	}
	return kindIgnored
}

// Assemble turns bundle entries into one ordered text.
//
// Entries are ordered by name with a plain byte comparison, which is the only
// notion of page order: "page-10" sorts before "page-2" unless the producer
// zero-pads. JSON entries contribute their blocks sorted by reading order;
// .md, .txt and .html entries are used verbatim. Extensions match exactly, so
// "PAGE.MD" is ignored. Entries that are empty,
// undecodable or of another type are skipped. Returns ErrNoTextDetected if
// nothing survives.
func Assemble(entries []Entry) (string, error) {
	pages := PageTexts(entries)
	if len(pages) == 0 {
		return "", ErrNoTextDetected
	}
	return strings.Join(pages, PageSeparator), nil
}

// PageTexts returns the per-page texts Assemble would join.
func PageTexts(entries []Entry) []string {
	files := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.IsDir {
			continue
		}
		files = append(files, e)
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Name != files[j].Name {
			return files[i].Name < files[j].Name
		}
		return string(files[i].Data) < string(files[j].Data)
	})

	var pages []string
	for _, f := range files {
		text, err := pageText(f)
		if err != nil {
			logf("Warning: skipping bundle entry %s: %v", f.Name, err)
			continue
		}
		if text != "" {
			pages = append(pages, text)
		}
	}
	return pages
}

func pageText(e Entry) (string, error) {
	kind := kindOf(e.Name)
	if kind == kindIgnored {
		return "", nil
	}
	if !utf8.Valid(e.Data) {
		return "", fmt.Errorf("not valid UTF-8")
	}
	content := strings.TrimSpace(string(e.Data))
	if content == "" {
		return "", nil
	}
	if kind == kindText {
		return content, nil
	}

	var page pageResult
	if err := json.Unmarshal([]byte(content), &page); err != nil {
		return "", fmt.Errorf("parse blocks: %w", err)
	}
	return joinBlocks(page.Blocks), nil
}

func joinBlocks(blocks []Block) string {
	sorted := make([]Block, len(blocks))
	copy(sorted, blocks)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].ReadingOrder < sorted[j].ReadingOrder
	})

	parts := make([]string, 0, len(sorted))
	for _, b := range sorted {
		if t := strings.TrimSpace(b.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, PageSeparator)
}

// ExtractBundle decodes a zip bundle and assembles its text.
func ExtractBundle(bundle []byte) (string, error) {
	entries, err := ReadBundle(bundle)
	if err != nil {
		return "", err
	}
	return Assemble(entries)
}
