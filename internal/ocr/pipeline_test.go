package ocr

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/ziadkadry99/manualqa/internal/documents"
)

// fakeRasterizer encodes the page number as the image payload.
type fakeRasterizer struct {
	pages     int
	countErr  error
	failFirst map[int]bool // batch first page -> fail
	calls     int64
	dpis      sync.Map
}

func (f *fakeRasterizer) PageCount(string) (int, error) {
	return f.pages, f.countErr
}

func (f *fakeRasterizer) Rasterize(_ string, first, last, dpi int) ([][]byte, error) {
	atomic.AddInt64(&f.calls, 1)
	f.dpis.Store(dpi, true)
	if f.failFirst[first] {
		return nil, errors.New("poppler exploded")
	}
	var out [][]byte
	for p := first; p <= last; p++ {
		out = append(out, []byte(fmt.Sprintf("%d", p)))
	}
	return out, nil
}

type fakeRecognizer struct {
	failPages map[string]bool
}

func (r *fakeRecognizer) Recognize(_ context.Context, image []byte) (string, error) {
	if r.failPages[string(image)] {
		return "", errors.New("tesseract crashed")
	}
	return "text of page " + string(image), nil
}

func sortedPages(records []documents.PageRecord) []int {
	var pages []int
	for _, r := range records {
		pages = append(pages, int(r.Page))
	}
	sort.Ints(pages)
	return pages
}

func TestPartition(t *testing.T) {
	tests := []struct {
		n, size int
		want    []batch
	}{
		{0, 10, nil},
		{7, 10, []batch{{1, 7}}},
		{10, 10, []batch{{1, 10}}},
		{25, 10, []batch{{1, 10}, {11, 20}, {21, 25}}},
	}
	for _, tt := range tests {
		got := partition(tt.n, tt.size)
		if len(got) != len(tt.want) {
			t.Errorf("partition(%d, %d) = %v, want %v", tt.n, tt.size, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("partition(%d, %d)[%d] = %v, want %v", tt.n, tt.size, i, got[i], tt.want[i])
			}
		}
	}
}

func TestRecognizeCoversEveryPageOnce(t *testing.T) {
	raster := &fakeRasterizer{pages: 23}
	p := NewPipeline(raster, &fakeRecognizer{}, Options{BatchSize: 5, MaxWorkers: 3})

	records := p.Recognize(context.Background(), "/manuals/scan.pdf")
	if len(records) != 23 {
		t.Fatalf("expected 23 records, got %d", len(records))
	}
	for i, page := range sortedPages(records) {
		if page != i+1 {
			t.Fatalf("page coverage broken at %d: got %d", i+1, page)
		}
	}
	for _, r := range records {
		if r.Source != "scan.pdf" {
			t.Errorf("expected source scan.pdf, got %q", r.Source)
		}
		if r.Text != fmt.Sprintf("text of page %d", r.Page) {
			t.Errorf("page %d has text %q", r.Page, r.Text)
		}
	}
	if got := atomic.LoadInt64(&raster.calls); got != 5 {
		t.Errorf("expected 5 batches, got %d", got)
	}
}

func TestRecognizeUsesDefaultDPI(t *testing.T) {
	raster := &fakeRasterizer{pages: 2}
	NewPipeline(raster, &fakeRecognizer{}, Options{}).Recognize(context.Background(), "a.pdf")
	if _, ok := raster.dpis.Load(DefaultDPI); !ok {
		t.Errorf("expected rasterization at %d dpi", DefaultDPI)
	}
}

func TestRecognizePageFailureKeepsEmptyRecord(t *testing.T) {
	raster := &fakeRasterizer{pages: 4}
	rec := &fakeRecognizer{failPages: map[string]bool{"3": true}}
	p := NewPipeline(raster, rec, Options{BatchSize: 10})

	records := p.Recognize(context.Background(), "scan.pdf")
	if len(records) != 4 {
		t.Fatalf("expected 4 records, got %d", len(records))
	}
	for _, r := range records {
		if r.Page == 3 && r.Text != "" {
			t.Errorf("failed page should have empty text, got %q", r.Text)
		}
		if r.Page != 3 && r.Text == "" {
			t.Errorf("page %d should have text", r.Page)
		}
	}
}

func TestRecognizeBatchFailureDropsOnlyThatBatch(t *testing.T) {
	raster := &fakeRasterizer{pages: 30, failFirst: map[int]bool{11: true}}
	p := NewPipeline(raster, &fakeRecognizer{}, Options{BatchSize: 10, MaxWorkers: 2})

	records := p.Recognize(context.Background(), "scan.pdf")
	if len(records) != 20 {
		t.Fatalf("expected 20 records, got %d", len(records))
	}
	for _, r := range records {
		if r.Page >= 11 && r.Page <= 20 {
			t.Errorf("page %d from failed batch should be absent", r.Page)
		}
	}
}

func TestRecognizePageCountFailure(t *testing.T) {
	raster := &fakeRasterizer{countErr: errors.New("not a pdf")}
	p := NewPipeline(raster, &fakeRecognizer{}, Options{})

	if records := p.Recognize(context.Background(), "x.pdf"); len(records) != 0 {
		t.Errorf("expected no records, got %d", len(records))
	}
	if raster.calls != 0 {
		t.Errorf("rasterizer should not be called")
	}
}

func TestRecognizeReportsProgressPerBatch(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	p := NewPipeline(&fakeRasterizer{pages: 12}, &fakeRecognizer{}, Options{
		BatchSize: 4,
		OnProgress: func(done, total int, msg string) {
			mu.Lock()
			defer mu.Unlock()
			if total != 3 {
				t.Errorf("expected total 3, got %d", total)
			}
			seen = append(seen, msg)
		},
	})

	p.Recognize(context.Background(), "scan.pdf")
	if len(seen) != 3 {
		t.Fatalf("expected 3 progress calls, got %d", len(seen))
	}
	for _, msg := range seen {
		if !strings.HasPrefix(msg, "scan.pdf pages ") {
			t.Errorf("unexpected progress message %q", msg)
		}
	}
}

func TestRecognizeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	raster := &fakeRasterizer{pages: 20}
	records := NewPipeline(raster, &fakeRecognizer{}, Options{BatchSize: 10}).Recognize(ctx, "scan.pdf")
	if len(records) != 0 {
		t.Errorf("expected no records after cancellation, got %d", len(records))
	}
}
