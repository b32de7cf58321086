package models

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestClassificationLocalized(t *testing.T) {
	c := Classification{
		Category:    CategoryDistress,
		Label:       "distress",
		Rationale:   "all negative",
		LabelJA:     "倒産危機企業",
		RationaleJA: "すべて赤字",
	}

	tests := []struct {
		locale        string
		wantLabel     string
		wantRationale string
	}{
		{"ja", "倒産危機企業", "すべて赤字"},
		{"en", "distress", "all negative"},
		{"", "distress", "all negative"},
		{"fr", "distress", "all negative"},
	}
	for _, tt := range tests {
		label, rationale := c.Localized(tt.locale)
		if label != tt.wantLabel || rationale != tt.wantRationale {
			t.Errorf("Localized(%q) = %q, %q", tt.locale, label, rationale)
		}
	}
}

func TestAnalysisLatestEntry(t *testing.T) {
	var nilAnalysis *Analysis
	if _, ok := nilAnalysis.LatestEntry(); ok {
		t.Error("nil analysis should have no latest entry")
	}
	if _, ok := (&Analysis{}).LatestEntry(); ok {
		t.Error("empty analysis should have no latest entry")
	}

	a := &Analysis{Entries: []Entry{
		{Record: PeriodRecord{Period: "2024.03"}, Latest: true},
		{Record: PeriodRecord{Period: "2023.03"}},
	}}
	e, ok := a.LatestEntry()
	if !ok || e.Record.Period != "2024.03" {
		t.Errorf("LatestEntry = %+v, %v", e, ok)
	}
}

func TestPeriodRecordJSONFieldNames(t *testing.T) {
	data, err := json.Marshal(PeriodRecord{Period: "2023.03", OperatingCF: -5})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"period"`, `"quarter"`, `"operating_cf":-5`, `"capital_expenditure"`, `"cash_equivalents"`} {
		if !strings.Contains(string(data), key) {
			t.Errorf("JSON missing %s: %s", key, data)
		}
	}
}
