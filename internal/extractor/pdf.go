package extractor

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// PDFInfo is what we learn locally about a PDF before sending it for OCR.
type PDFInfo struct {
	Pages int
}

// InspectPDF opens a PDF held in memory and counts its pages from the page
// tree. Page content is not decoded.
// Some valid PDFs are beyond what the parser handles, so callers should treat
// an error as "unknown" rather than as a rejection.
func InspectPDF(data []byte) (info PDFInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to read pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return PDFInfo{}, fmt.Errorf("failed to open pdf: %w", err)
	}
	info.Pages = r.NumPage()
	return info, nil
}
