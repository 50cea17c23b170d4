package extractor

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"log"
	"strings"
	"testing"
)

func buildZip(t *testing.T, files map[string]string, dirs ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, d := range dirs {
		if _, err := zw.Create(d); err != nil {
			t.Fatalf("create dir %s: %v", d, err)
		}
	}
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

// ========== Assemble ==========

func TestAssemble_BlocksThenMarkdown(t *testing.T) {
	entries := []Entry{
		{Name: "page-002.md", Data: []byte("  second page  \n")},
		{Name: "page-001.json", Data: []byte(`{"blocks":[
			{"text":"b","layout_tag":"paragraph","reading_order":2},
			{"text":"a","layout_tag":"paragraph","reading_order":1}
		]}`)},
	}

	got, err := Assemble(entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "a\n\nb\n\nsecond page"
	if got != want {
		t.Errorf("Assemble = %q, want %q", got, want)
	}
	if !strings.HasPrefix(got, "a\n\nb") {
		t.Errorf("Assemble should start with the blocks in reading order, got %q", got)
	}
}

func TestAssemble_InvariantUnderInputOrder(t *testing.T) {
	base := []Entry{
		{Name: "p03.txt", Data: []byte("three")},
		{Name: "p01.html", Data: []byte("<p>one</p>")},
		{Name: "p02.json", Data: []byte(`{"blocks":[{"text":"two-b","reading_order":5},{"text":"two-a","reading_order":0}]}`)},
		{Name: "p04.md", Data: []byte("# four")},
	}
	want, err := Assemble(base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	perms := [][]int{{3, 2, 1, 0}, {1, 3, 0, 2}, {2, 0, 3, 1}}
	for _, p := range perms {
		shuffled := make([]Entry, len(base))
		for i, idx := range p {
			shuffled[i] = base[idx]
		}
		got, err := Assemble(shuffled)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != want {
			t.Errorf("order %v: Assemble = %q, want %q", p, got, want)
		}
	}
	if want != "<p>one</p>\n\ntwo-a\n\ntwo-b\n\nthree\n\n# four" {
		t.Errorf("unexpected assembly %q", want)
	}
}

func TestAssemble_AllEmpty(t *testing.T) {
	entries := []Entry{
		{Name: "a.md", Data: []byte("   \n\t ")},
		{Name: "b.txt", Data: []byte("")},
		{Name: "c.json", Data: []byte(`{"blocks":[{"text":"  ","reading_order":1}]}`)},
		{Name: "dir/", IsDir: true},
	}
	_, err := Assemble(entries)
	if !errors.Is(err, ErrNoTextDetected) {
		t.Fatalf("err = %v, want ErrNoTextDetected", err)
	}
}

func TestAssemble_NoEntries(t *testing.T) {
	if _, err := Assemble(nil); !errors.Is(err, ErrNoTextDetected) {
		t.Fatalf("err = %v, want ErrNoTextDetected", err)
	}
}

func TestAssemble_SkipsBrokenEntries(t *testing.T) {
	var warned []string
	logf = func(format string, args ...interface{}) { warned = append(warned, format) }
	defer func() { logf = log.Printf }()

	entries := []Entry{
		{Name: "1.json", Data: []byte(`{"blocks": [`)},
		{Name: "2.md", Data: []byte{0xff, 0xfe, 0xfd}},
		{Name: "3.md", Data: []byte("survivor")},
	}
	got, err := Assemble(entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "survivor" {
		t.Errorf("Assemble = %q, want survivor", got)
	}
	if len(warned) != 2 {
		t.Errorf("expected 2 warnings, got %d", len(warned))
	}
}

func TestAssemble_IgnoresOtherExtensions(t *testing.T) {
	entries := []Entry{
		{Name: "meta.xml", Data: []byte("<x>ignored</x>")},
		{Name: "image.png", Data: []byte("\x89PNG")},
		{Name: "page.MD", Data: []byte("upper-case extension")},
		{Name: "page.md", Data: []byte("kept")},
	}
	got, err := Assemble(entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "kept" {
		t.Errorf("Assemble = %q, want kept", got)
	}
}

func TestAssemble_JSONWithoutBlocks(t *testing.T) {
	entries := []Entry{
		{Name: "1.json", Data: []byte(`{"pages": 3}`)},
		{Name: "2.txt", Data: []byte("text")},
	}
	got, err := Assemble(entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "text" {
		t.Errorf("Assemble = %q, want text", got)
	}
}

func TestAssemble_LexicographicNotNumeric(t *testing.T) {
	entries := []Entry{
		{Name: "page-2.md", Data: []byte("two")},
		{Name: "page-10.md", Data: []byte("ten")},
	}
	got, _ := Assemble(entries)
	if got != "ten\n\ntwo" {
		t.Errorf("Assemble = %q, want byte order (ten before two)", got)
	}
}

func TestJoinBlocks_StableForEqualOrder(t *testing.T) {
	got := joinBlocks([]Block{
		{Text: "first", ReadingOrder: 1},
		{Text: "second", ReadingOrder: 1},
		{Text: "zero", ReadingOrder: 0.5},
	})
	if got != "zero\n\nfirst\n\nsecond" {
		t.Errorf("joinBlocks = %q", got)
	}
}

// ========== Archive codec ==========

func TestWrapFile_SingleEntry(t *testing.T) {
	payload := []byte("\x89PNG\r\n fake image bytes")
	zipped, err := WrapFile("notes.png", payload)
	if err != nil {
		t.Fatalf("WrapFile error: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(zipped), int64(len(zipped)))
	if err != nil {
		t.Fatalf("not a valid zip: %v", err)
	}
	if len(zr.File) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(zr.File))
	}
	if zr.File[0].Name != "notes.png" {
		t.Errorf("entry name = %q, want notes.png", zr.File[0].Name)
	}
	data, err := readZipFile(zr.File[0])
	if err != nil {
		t.Fatalf("read entry: %v", err)
	}
	if !bytes.Equal(data, payload) {
		t.Error("entry content differs from original bytes")
	}
}

func TestReadBundle_MarksDirectories(t *testing.T) {
	bundle := buildZip(t, map[string]string{"out/page-1.md": "hello"}, "out/")
	entries, err := ReadBundle(bundle)
	if err != nil {
		t.Fatalf("ReadBundle error: %v", err)
	}
	var dirs, files int
	for _, e := range entries {
		if e.IsDir {
			dirs++
		} else {
			files++
		}
	}
	if dirs != 1 || files != 1 {
		t.Errorf("dirs=%d files=%d, want 1/1", dirs, files)
	}
}

func TestReadBundle_NotAZip(t *testing.T) {
	if _, err := ReadBundle([]byte("definitely not a zip")); err == nil {
		t.Error("expected error for non-zip bundle")
	}
}

func TestExtractBundle(t *testing.T) {
	bundle := buildZip(t, map[string]string{
		"page-001.json": `{"blocks":[{"text":"b","reading_order":2},{"text":"a","reading_order":1}]}`,
		"page-002.md":   "second",
	}, "out/")
	got, err := ExtractBundle(bundle)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "a\n\nb\n\nsecond" {
		t.Errorf("ExtractBundle = %q", got)
	}
}

// ========== InspectPDF ==========

func TestInspectPDF_Garbage(t *testing.T) {
	if _, err := InspectPDF([]byte("%PDF-1.4 not really a pdf")); err == nil {
		t.Error("expected error for malformed PDF")
	}
}

// minimalPDF builds a valid PDF with n empty pages and a correct xref table.
func minimalPDF(n int) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	kids := make([]string, n)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n))
	for i := 0; i < n; i++ {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func TestInspectPDF_CountsPages(t *testing.T) {
	info, err := InspectPDF(minimalPDF(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Pages != 3 {
		t.Errorf("pages = %d, want 3", info.Pages)
	}
}
