package pipeline

import (
	"context"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/gridsmith/sldgen/pkg/cache"
	"github.com/gridsmith/sldgen/pkg/errors"
	"github.com/gridsmith/sldgen/pkg/extract"
)

func testRows() *extract.Rows {
	return &extract.Rows{
		Substations:   []extract.SubstationRow{{URI: "ss", Name: "Quimper"}},
		VoltageLevels: []extract.VoltageLevelRow{{URI: "vl", Name: "E1", Voltage: "225kV", SubstationURI: "ss"}},
		Bays:          []extract.BayRow{{URI: "b1", Name: "D1", VoltageLevelURI: "vl"}},
		Equipment: []extract.EquipmentRow{
			{URI: "d1", Name: "SA", Type: "DIS", Subtype: "SA1", BayURI: "b1", SourceOrder: extract.Order(1)},
			{URI: "c1", Name: "CB", Type: "CBR", BayURI: "b1", SourceOrder: extract.Order(2)},
		},
		Terminals: []extract.TerminalRow{
			{URI: "t1", EquipmentURI: "d1", NodeURI: "n1", SourceOrder: extract.Order(1)},
			{URI: "t2", EquipmentURI: "d1", NodeURI: "n2", SourceOrder: extract.Order(2)},
			{URI: "t3", EquipmentURI: "c1", NodeURI: "n2", SourceOrder: extract.Order(1)},
			{URI: "t4", EquipmentURI: "c1", NodeURI: "n3", SourceOrder: extract.Order(2)},
		},
	}
}

func quietLogger() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{})
}

// countingSource records how often the endpoint was actually hit.
type countingSource struct {
	rows  *extract.Rows
	calls int
}

func (s *countingSource) Fetch(ctx context.Context) (*extract.Rows, error) {
	s.calls++
	return s.rows, nil
}

func TestRunnerExecute(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	defer r.Close()

	result, err := r.Execute(context.Background(), &StaticSource{Rows: testRows()}, Options{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("Execute error: %v", err)
	}

	if result.Document == nil {
		t.Fatal("no document produced")
	}
	if result.Document.Generator != "component-based" {
		t.Errorf("generator = %s", result.Document.Generator)
	}
	if result.Resolution == nil {
		t.Error("fresh run should carry the busbar resolution")
	}
	if result.Stats.FindingCount != result.Findings.Count() {
		t.Errorf("FindingCount = %d, findings = %d", result.Stats.FindingCount, result.Findings.Count())
	}
	if result.RowsHash == "" {
		t.Error("RowsHash should be computed")
	}
	if result.CacheInfo.RowsHit || result.CacheInfo.DocumentHit {
		t.Error("null cache must never report hits")
	}
}

func TestRunnerDocumentCache(t *testing.T) {
	ctx := context.Background()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil, quietLogger())
	defer r.Close()

	opts := Options{Logger: quietLogger()}
	first, err := r.Execute(ctx, &StaticSource{Rows: testRows()}, opts)
	if err != nil {
		t.Fatalf("first Execute error: %v", err)
	}
	if first.CacheInfo.DocumentHit {
		t.Fatal("first run cannot hit the document cache")
	}

	second, err := r.Execute(ctx, &StaticSource{Rows: testRows()}, Options{Logger: quietLogger()})
	if err != nil {
		t.Fatalf("second Execute error: %v", err)
	}
	if !second.CacheInfo.DocumentHit {
		t.Fatal("identical rows and convention should hit the document cache")
	}
	// A cached document skips resolve and validate entirely.
	if second.Resolution != nil || second.Findings != nil {
		t.Error("cached run should not carry resolution or findings")
	}
	if second.Stats.FindingCount != first.Stats.FindingCount {
		t.Error("finding count should survive through the document statistics")
	}

	a, _ := first.Document.Marshal()
	b, _ := second.Document.Marshal()
	if string(a) != string(b) {
		t.Error("cached document differs from the fresh one")
	}

	// Refresh bypasses the cache and recomputes.
	third, err := r.Execute(ctx, &StaticSource{Rows: testRows()}, Options{Refresh: true, Logger: quietLogger()})
	if err != nil {
		t.Fatalf("refresh Execute error: %v", err)
	}
	if third.CacheInfo.DocumentHit {
		t.Error("refresh must not hit the document cache")
	}
	if third.Resolution == nil {
		t.Error("refresh run should carry the busbar resolution")
	}
}

func TestRunnerRowsCache(t *testing.T) {
	ctx := context.Background()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil, quietLogger())
	defer r.Close()

	src := &countingSource{rows: testRows()}
	opts := Options{Endpoint: "http://fuseki:3030", Dataset: "grid", Logger: quietLogger()}

	first, err := r.Execute(ctx, src, opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheInfo.RowsHit || src.calls != 1 {
		t.Fatalf("first run: hit=%v calls=%d", first.CacheInfo.RowsHit, src.calls)
	}

	second, err := r.Execute(ctx, src, Options{Endpoint: "http://fuseki:3030", Dataset: "grid", Logger: quietLogger()})
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.RowsHit {
		t.Error("second run should hit the rows cache")
	}
	if src.calls != 1 {
		t.Errorf("endpoint hit %d times, want 1", src.calls)
	}
}

func TestRunnerRowsNotCachedWithoutDataset(t *testing.T) {
	ctx := context.Background()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r := NewRunner(fc, nil, quietLogger())
	defer r.Close()

	src := &countingSource{rows: testRows()}
	// File replay leaves endpoint and dataset empty, so rows never cache
	// (the document still does, keyed by content hash).
	for i := 0; i < 2; i++ {
		result, err := r.Execute(ctx, src, Options{Refresh: true, Logger: quietLogger()})
		if err != nil {
			t.Fatal(err)
		}
		if result.CacheInfo.RowsHit {
			t.Error("replayed rows must not report cache hits")
		}
	}
	if src.calls != 2 {
		t.Errorf("source called %d times, want 2", src.calls)
	}
}

func TestRunnerUnknownConvention(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	_, err := r.Execute(context.Background(), &StaticSource{Rows: testRows()}, Options{
		Convention: "ansi",
		Logger:     quietLogger(),
	})
	if !errors.Is(err, errors.ErrCodeInvalidConvention) {
		t.Errorf("Execute error = %v, want INVALID_CONVENTION", err)
	}
}

func TestRunnerFetchFailure(t *testing.T) {
	r := NewRunner(nil, nil, quietLogger())
	_, err := r.Execute(context.Background(), &StaticSource{}, Options{Logger: quietLogger()})
	if err == nil {
		t.Fatal("empty static source should fail the run")
	}
}

func TestStaticSource(t *testing.T) {
	rows := testRows()
	src := &StaticSource{Rows: rows}
	got, err := src.Fetch(context.Background())
	if err != nil || got != rows {
		t.Errorf("Fetch = %v, %v", got, err)
	}
}
