package pdftest

import (
	"strings"
	"testing"

	"github.com/tsawler/tabula/reader"
)

// TestBuildParses tests that the generated file is readable by the reader
// and that fragment positions are the positions that were written.
func TestBuildParses(t *testing.T) {
	path := File(t,
		Lines("Hello world", "Second line"),
		Page{Width: 300, Height: 400, Image: true},
	)

	r, err := reader.Open(path)
	if err != nil {
		t.Fatalf("failed to open: %v", err)
	}
	defer r.Close()

	count, err := r.PageCount()
	if err != nil {
		t.Fatalf("PageCount failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 pages, got %d", count)
	}

	page, err := r.GetPage(0)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	frags, err := r.ExtractTextFragments(page)
	if err != nil {
		t.Fatalf("ExtractTextFragments failed: %v", err)
	}
	if len(frags) != 2 {
		t.Fatalf("expected 2 fragments, got %d", len(frags))
	}
	if frags[0].Text != "Hello world" {
		t.Errorf("fragment text = %q", frags[0].Text)
	}
	if frags[0].X != 72 || frags[0].Y != 720 {
		t.Errorf("fragment position = (%v, %v), want (72, 720)", frags[0].X, frags[0].Y)
	}
	if frags[1].Y != 704 {
		t.Errorf("second line Y = %v, want 704", frags[1].Y)
	}

	second, err := r.GetPage(1)
	if err != nil {
		t.Fatalf("GetPage(1) failed: %v", err)
	}
	w, _ := second.Width()
	h, _ := second.Height()
	if w != 300 || h != 400 {
		t.Errorf("page 2 size = %vx%v, want 300x400", w, h)
	}
}

// TestEscape tests that parentheses and backslashes survive the content stream.
func TestEscape(t *testing.T) {
	got := escape(`a(b)\c`)
	if got != `a\(b\)\\c` {
		t.Errorf("escape = %q", got)
	}
	if !strings.Contains(string(Build(Lines("(x)"))), `(\(x\)) Tj`) {
		t.Error("expected escaped string in content stream")
	}
}

// TestNum tests compact number formatting.
func TestNum(t *testing.T) {
	tests := map[float64]string{0: "0", 12: "12", 100: "100", 72.5: "72.5", 0.25: "0.25"}
	for in, want := range tests {
		if got := num(in); got != want {
			t.Errorf("num(%v) = %q, want %q", in, got, want)
		}
	}
}
