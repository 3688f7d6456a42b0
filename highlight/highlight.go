// Package highlight projects character-offset diff segments onto the
// positioned text runs of a document, producing page-space rectangles.
//
// A segment may cover several runs, or only part of one. For each overlapping
// run the covered fraction of the run's offsets is applied to its width:
//
//	fracStart = (overlapStart - run.Start) / max(1, run.End - run.Start)
//	fracWidth = (overlapEnd - overlapStart) / max(1, run.End - run.Start)
//
// and the rectangle is padded vertically so glyph ascenders and descenders
// stay inside it.
package highlight

import (
	"sort"

	"github.com/tsawler/pdfcompare/diff"
	"github.com/tsawler/pdfcompare/extract"
)

// DefaultHeightFactor inflates the run height of every region.
const DefaultHeightFactor = 1.1

// Region is a rectangle to draw on one page, in page space (origin
// bottom-left, y up).
type Region struct {
	Page   int       `json:"page" yaml:"page"`
	X      float64   `json:"x" yaml:"x"`
	Y      float64   `json:"y" yaml:"y"`
	Width  float64   `json:"width" yaml:"width"`
	Height float64   `json:"height" yaml:"height"`
	Kind   diff.Kind `json:"kind" yaml:"kind"`
}

// Option configures Map.
type Option func(*options)

type options struct {
	heightFactor float64
}

// WithHeightFactor sets the vertical padding factor. Values below 1 are
// ignored.
func WithHeightFactor(f float64) Option {
	return func(o *options) {
		if f >= 1 {
			o.heightFactor = f
		}
	}
}

// Map returns one region per pair of a changed segment and a run it
// overlaps, in segment order then run order. Unchanged and removed segments
// produce nothing.
func Map(segments []diff.Segment, runs []extract.TextRun, opts ...Option) []Region {
	o := options{heightFactor: DefaultHeightFactor}
	for _, opt := range opts {
		opt(&o)
	}

	sorted := sortedRuns(runs)

	var regions []Region
	for _, seg := range segments {
		if seg.Kind != diff.Added && seg.Kind != diff.Modified {
			continue
		}
		if seg.End <= seg.Start {
			continue
		}
		for i := firstOverlap(sorted, seg.Start); i < len(sorted); i++ {
			run := sorted[i]
			if run.Start >= seg.End {
				break
			}
			r, ok := project(seg, run, o.heightFactor)
			if ok {
				regions = append(regions, r)
			}
		}
	}
	return regions
}

// project intersects one segment with one run.
func project(seg diff.Segment, run extract.TextRun, heightFactor float64) (Region, bool) {
	overlapStart := max(seg.Start, run.Start)
	overlapEnd := min(seg.End, run.End)
	if overlapEnd <= overlapStart {
		return Region{}, false
	}

	length := float64(max(1, run.End-run.Start))
	fracStart := float64(overlapStart-run.Start) / length
	fracWidth := float64(overlapEnd-overlapStart) / length

	height := run.Height * heightFactor
	return Region{
		Page:   run.Page,
		X:      run.X + run.Width*fracStart,
		Y:      run.Y - (height-run.Height)/2,
		Width:  run.Width * fracWidth,
		Height: height,
		Kind:   seg.Kind,
	}, true
}

// Coverage returns the number of the segment's offsets that fall inside a
// run. Offsets on separators between runs are not covered.
func Coverage(seg diff.Segment, runs []extract.TextRun) int {
	sorted := sortedRuns(runs)
	covered := 0
	for i := firstOverlap(sorted, seg.Start); i < len(sorted); i++ {
		run := sorted[i]
		if run.Start >= seg.End {
			break
		}
		if n := min(seg.End, run.End) - max(seg.Start, run.Start); n > 0 {
			covered += n
		}
	}
	return covered
}

// firstOverlap returns the index of the first run that ends after offset.
func firstOverlap(runs []extract.TextRun, offset int) int {
	return sort.Search(len(runs), func(i int) bool {
		return runs[i].End > offset
	})
}

// sortedRuns returns the runs in offset order without modifying the input.
func sortedRuns(runs []extract.TextRun) []extract.TextRun {
	if sort.SliceIsSorted(runs, func(i, j int) bool { return runs[i].Start < runs[j].Start }) {
		return runs
	}
	out := make([]extract.TextRun, len(runs))
	copy(out, runs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start < out[j].Start
	})
	return out
}

// ByPage groups regions by page index.
func ByPage(regions []Region) map[int][]Region {
	out := make(map[int][]Region)
	for _, r := range regions {
		out[r.Page] = append(out[r.Page], r)
	}
	return out
}
