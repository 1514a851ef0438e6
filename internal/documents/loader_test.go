package documents

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeExtractor struct {
	pages map[string][]string
	errs  map[string]error
}

func (f *fakeExtractor) PageTexts(path string) ([]string, error) {
	name := filepath.Base(path)
	if err, ok := f.errs[name]; ok {
		return nil, err
	}
	return f.pages[name], nil
}

type fakeScanner struct {
	calls []string
	pages int
}

func (s *fakeScanner) Recognize(_ context.Context, path string) []PageRecord {
	s.calls = append(s.calls, filepath.Base(path))
	var out []PageRecord
	for p := s.pages; p >= 1; p-- {
		out = append(out, PageRecord{Source: filepath.Base(path), Page: PageNumber(p), Text: "ocr text"})
	}
	return out
}

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("%PDF-1.4"), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestLoadEmptyFolder(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "readme.txt")

	l := NewLoader(&fakeExtractor{}, nil, nil)
	_, err := l.Load(context.Background(), dir)
	if !errors.Is(err, ErrNoDocumentsFound) {
		t.Fatalf("expected ErrNoDocumentsFound, got %v", err)
	}
}

func TestListPDFs(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "b.pdf", "A.PDF", "notes.txt", "manual.pdf.bak")
	if err := os.Mkdir(filepath.Join(dir, "old.pdf"), 0755); err != nil {
		t.Fatal(err)
	}

	files, err := ListPDFs(dir)
	if err != nil {
		t.Fatalf("ListPDFs: %v", err)
	}
	if len(files) != 2 || files[0] != "A.PDF" || files[1] != "b.pdf" {
		t.Errorf("unexpected files %v", files)
	}
}

func TestLoadMissingFolder(t *testing.T) {
	l := NewLoader(&fakeExtractor{}, nil, nil)
	_, err := l.Load(context.Background(), filepath.Join(t.TempDir(), "nope"))
	if !errors.Is(err, ErrNoDocumentsFound) {
		t.Fatalf("expected ErrNoDocumentsFound, got %v", err)
	}
}

func TestLoadTextPDFAttribution(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "pump.pdf", "Boiler.PDF")

	ext := &fakeExtractor{pages: map[string][]string{
		"pump.pdf":   {"page one", "", "page three"},
		"Boiler.PDF": {"boiler intro"},
	}}
	l := NewLoader(ext, &fakeScanner{}, nil)

	res, err := l.Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(res.Records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(res.Records))
	}

	// Name order: "Boiler.PDF" sorts before "pump.pdf".
	want := []PageRecord{
		{Source: "Boiler.PDF", Page: 1, Text: "boiler intro"},
		{Source: "pump.pdf", Page: 1, Text: "page one"},
		{Source: "pump.pdf", Page: 2, Text: ""},
		{Source: "pump.pdf", Page: 3, Text: "page three"},
	}
	for i, w := range want {
		if res.Records[i] != w {
			t.Errorf("record %d = %+v, want %+v", i, res.Records[i], w)
		}
	}
	if len(res.Scanned) != 0 {
		t.Errorf("expected no scanned files, got %v", res.Scanned)
	}
}

func TestLoadBlankPDFGoesToScanner(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "scan.pdf")

	ext := &fakeExtractor{pages: map[string][]string{"scan.pdf": {"  ", "\n"}}}
	scanner := &fakeScanner{pages: 3}
	l := NewLoader(ext, scanner, nil)

	res, err := l.Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(scanner.calls) != 1 || scanner.calls[0] != "scan.pdf" {
		t.Fatalf("expected scanner call for scan.pdf, got %v", scanner.calls)
	}
	if len(res.Records) != 3 {
		t.Fatalf("expected 3 OCR records, got %d", len(res.Records))
	}
	if len(res.Scanned) != 1 {
		t.Errorf("expected scan.pdf in Scanned, got %v", res.Scanned)
	}
}

func TestLoadSkipsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "broken.pdf", "good.pdf")

	ext := &fakeExtractor{
		pages: map[string][]string{"good.pdf": {"fine"}},
		errs:  map[string]error{"broken.pdf": errors.New("malformed xref")},
	}
	l := NewLoader(ext, nil, nil)

	res, err := l.Load(context.Background(), dir)
	if err != nil {
		t.Fatalf("Load should absorb per-file errors, got %v", err)
	}
	if len(res.Records) != 1 || res.Records[0].Source != "good.pdf" {
		t.Errorf("expected only good.pdf records, got %+v", res.Records)
	}
	if len(res.Failed) != 1 || res.Failed[0].File != "broken.pdf" {
		t.Errorf("expected broken.pdf in Failed, got %+v", res.Failed)
	}
}

func TestLoadAllFilesBroken(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.pdf", "b.pdf")

	ext := &fakeExtractor{errs: map[string]error{
		"a.pdf": errors.New("malformed xref"),
		"b.pdf": errors.New("encrypted"),
	}}
	_, err := NewLoader(ext, nil, nil).Load(context.Background(), dir)
	if !errors.Is(err, ErrNoDocumentsFound) {
		t.Fatalf("expected ErrNoDocumentsFound, got %v", err)
	}
	if !strings.Contains(err.Error(), "malformed xref") {
		t.Errorf("error should name the first failure: %v", err)
	}
}

func TestLoadCancelled(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "a.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := NewLoader(&fakeExtractor{pages: map[string][]string{"a.pdf": {"x"}}}, nil, nil)
	if _, err := l.Load(ctx, dir); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestPageNumber(t *testing.T) {
	if UnknownPage.Known() {
		t.Error("UnknownPage should not be known")
	}
	if got := UnknownPage.String(); got != "unknown" {
		t.Errorf("UnknownPage.String() = %q", got)
	}
	if got := PageNumber(7).String(); got != "7" {
		t.Errorf("PageNumber(7).String() = %q", got)
	}
	for in, want := range map[string]PageNumber{"12": 12, "unknown": UnknownPage, "0": UnknownPage, "-3": UnknownPage} {
		if got := ParsePageNumber(in); got != want {
			t.Errorf("ParsePageNumber(%q) = %d, want %d", in, got, want)
		}
	}
}

func TestNormalized(t *testing.T) {
	r := PageRecord{Text: "x", Page: -2}.Normalized()
	if r.Source != UnknownSource || r.Page != UnknownPage {
		t.Errorf("unexpected normalized record %+v", r)
	}
}
