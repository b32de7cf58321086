package analyzer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/seenimoa/cfpattern/internal/cashflow"
	"github.com/seenimoa/cfpattern/internal/datasource"
	"github.com/seenimoa/cfpattern/pkg/models"
)

func sampleRows() []models.RawRow {
	return []models.RawRow{
		{"2021.03", "通期", "1,000", "−300", "−200", "700", "−250", "5,000"},
		{"2022.03", "通期", "1,200", "−900", "400", "300", "−800", "5,700"},
		{"注記"},
		{"2023.03", "通期", "−150", "−100", "−50", "−250", "−90", "5,400"},
	}
}

func newTestAnalyzer(t *testing.T, buf *bytes.Buffer) (*Analyzer, *datasource.StaticSource) {
	t.Helper()
	src := datasource.NewStaticSource()
	src.Put("E00001", sampleRows())
	src.Put("E00002", []models.RawRow{{"broken"}})
	src.Put("E00003", []models.RawRow{{"2023.03", "通期", "x", "1", "1", "1", "1", "1"}})

	log := zerolog.Nop()
	if buf != nil {
		log = zerolog.New(buf)
	}
	return New(Config{Source: src, Concurrency: 2, Logger: log}), src
}

func TestAnalyze(t *testing.T) {
	buf := &bytes.Buffer{}
	a, _ := newTestAnalyzer(t, buf)
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	a.now = func() time.Time { return fixed }

	res, err := a.Analyze(context.Background(), "E00001")
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if res.RunID == "" {
		t.Error("RunID should be set")
	}
	if res.Source != "E00001" || !res.FetchedAt.Equal(fixed) {
		t.Errorf("metadata: got source=%q fetched=%v", res.Source, res.FetchedAt)
	}
	if res.Dropped != 1 {
		t.Errorf("Dropped: got %d, want 1", res.Dropped)
	}
	if len(res.Entries) != 3 || !res.Entries[0].Latest || res.Entries[0].Record.Period != "2023.03" {
		t.Errorf("entries: got %+v", res.Entries)
	}
	if res.Entries[0].Classification.Category != models.CategoryDistress {
		t.Errorf("latest category: got %s", res.Entries[0].Classification.Category)
	}

	out := buf.String()
	if !strings.Contains(out, `"dropped_rows":1`) || !strings.Contains(out, "analysis complete") {
		t.Errorf("expected dropped count in log, got: %s", out)
	}
}

func TestAnalyzeErrors(t *testing.T) {
	a, _ := newTestAnalyzer(t, nil)

	if _, err := a.Analyze(context.Background(), "missing"); !errors.Is(err, datasource.ErrTableNotFound) {
		t.Errorf("missing: got %v, want ErrTableNotFound", err)
	}
	if _, err := a.Analyze(context.Background(), "E00002"); !errors.Is(err, cashflow.ErrEmptyResult) {
		t.Errorf("empty: got %v, want ErrEmptyResult", err)
	}
	var pe *cashflow.ParseError
	if _, err := a.Analyze(context.Background(), "E00003"); !errors.As(err, &pe) {
		t.Errorf("parse: got %v, want *ParseError", err)
	}
}

func TestAnalyzeParseZero(t *testing.T) {
	src := datasource.NewStaticSource()
	src.Put("E00003", []models.RawRow{{"2023.03", "通期", "x", "1", "1", "1", "1", "1"}})
	a := New(Config{Source: src, ParsePolicy: cashflow.ParseZero, Logger: zerolog.Nop()})

	res, err := a.Analyze(context.Background(), "E00003")
	if err != nil {
		t.Fatalf("Analyze error: %v", err)
	}
	if res.Substituted != 1 {
		t.Errorf("Substituted: got %d, want 1", res.Substituted)
	}
	if res.Entries[0].Classification.Category != models.CategoryUnclassified {
		t.Errorf("zeroed operating CF should be unclassified, got %s", res.Entries[0].Classification.Category)
	}
}

func TestAnalyzeNoSource(t *testing.T) {
	a := New(Config{Logger: zerolog.Nop()})
	if _, err := a.Analyze(context.Background(), "E00001"); err == nil {
		t.Fatal("expected error without a source")
	}
}

func TestAnalyzeTable(t *testing.T) {
	a := New(Config{Logger: zerolog.Nop()})
	res, err := a.AnalyzeTable(&models.Table{Source: "cf.csv", Title: "demo", Rows: sampleRows()})
	if err != nil {
		t.Fatalf("AnalyzeTable error: %v", err)
	}
	if res.Source != "cf.csv" || res.Title != "demo" {
		t.Errorf("metadata: got %q %q", res.Source, res.Title)
	}
}

func TestAnalyzeTableWith(t *testing.T) {
	buf := &bytes.Buffer{}
	a := New(Config{Logger: zerolog.New(buf)})

	var notified string
	a.SetObserver(func(target string, res *models.Analysis, err error) {
		if err == nil {
			notified = res.RunID
		}
	})

	rows := []models.RawRow{{"2023.03", "通期", "x", "1", "1", "1", "1", "1"}, {"short"}}
	table := &models.Table{Source: "request", Rows: rows}

	// The analyzer's default policy aborts on the bad amount.
	if _, err := a.AnalyzeTableWith(table, cashflow.ExtractOptions{}); err == nil {
		t.Fatal("expected parse error under the default policy")
	}

	res, err := a.AnalyzeTableWith(table, cashflow.ExtractOptions{ParsePolicy: cashflow.ParseZero})
	if err != nil {
		t.Fatalf("AnalyzeTableWith error: %v", err)
	}
	if res.RunID == "" || notified != res.RunID {
		t.Errorf("run id: got %q, observer saw %q", res.RunID, notified)
	}
	if res.Substituted != 1 || res.Dropped != 1 {
		t.Errorf("counts: substituted=%d dropped=%d", res.Substituted, res.Dropped)
	}
	out := buf.String()
	if !strings.Contains(out, `"substituted_amounts":1`) || !strings.Contains(out, `"dropped_rows":1`) {
		t.Errorf("expected counts in log, got: %s", out)
	}
}

func TestAnalyzeMany(t *testing.T) {
	a, _ := newTestAnalyzer(t, nil)

	var mu sync.Mutex
	seen := make(map[string]bool)
	a.SetObserver(func(target string, res *models.Analysis, err error) {
		mu.Lock()
		seen[target] = err == nil
		mu.Unlock()
	})

	targets := []string{"E00001", "E00002", "missing", "E00001"}
	results, err := a.AnalyzeMany(context.Background(), targets)
	if err != nil {
		t.Fatalf("AnalyzeMany error: %v", err)
	}
	if len(results) != len(targets) {
		t.Fatalf("got %d results, want %d", len(results), len(targets))
	}
	for i, r := range results {
		if r.Target != targets[i] {
			t.Errorf("results[%d].Target = %q, want %q", i, r.Target, targets[i])
		}
	}
	if results[0].Err != nil || results[0].Analysis == nil {
		t.Errorf("results[0]: %+v", results[0])
	}
	if !errors.Is(results[1].Err, cashflow.ErrEmptyResult) {
		t.Errorf("results[1].Err: got %v", results[1].Err)
	}
	if !errors.Is(results[2].Err, datasource.ErrTableNotFound) {
		t.Errorf("results[2].Err: got %v", results[2].Err)
	}
	if results[0].Analysis.RunID == results[3].Analysis.RunID {
		t.Error("each run should get its own RunID")
	}

	if !seen["E00001"] || seen["E00002"] || seen["missing"] {
		t.Errorf("observer: got %v", seen)
	}
}

func TestAnalyzeManyCancelled(t *testing.T) {
	a, _ := newTestAnalyzer(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.AnalyzeMany(ctx, []string{"E00001"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
