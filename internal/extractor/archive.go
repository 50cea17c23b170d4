package extractor

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Entry is one named file from a result bundle.
type Entry struct {
	Name  string
	IsDir bool
	Data  []byte
}

// WrapFile packs data into a new zip archive holding a single entry called name.
// The OCR service only accepts PDF or ZIP uploads, so images travel this way.
func WrapFile(name string, data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	if err != nil {
		return nil, fmt.Errorf("zip create %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("zip write %s: %w", name, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("zip close: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadBundle decodes a zip result bundle into its entries, in archive order.
// Members that fail to decompress are logged and left out; only a bundle that
// is not a readable zip at all is an error.
func ReadBundle(bundle []byte) ([]Entry, error) {
	zr, err := zip.NewReader(bytes.NewReader(bundle), int64(len(bundle)))
	if err != nil {
		return nil, fmt.Errorf("open zip: %w", err)
	}

	entries := make([]Entry, 0, len(zr.File))
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasSuffix(f.Name, "/") {
			entries = append(entries, Entry{Name: f.Name, IsDir: true})
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			logf("Warning: skipping bundle entry %s: %v", f.Name, err)
			continue
		}
		entries = append(entries, Entry{Name: f.Name, Data: data})
	}
	return entries, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
