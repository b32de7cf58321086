// Package models defines the data types shared across cfpattern: scraped
// rows, period records, classifications and analysis results.
package models

import "time"

// RawRow is one scraped table row: the trimmed text of each data cell, in
// column order. A well-formed row has exactly eight cells.
type RawRow []string

// Table is the raw result of scraping a cash-flow page.
type Table struct {
	Source string   `json:"source"` // resolved URL or file name
	Title  string   `json:"title,omitempty"`
	Rows   []RawRow `json:"rows"`
}

// PeriodRecord is one reporting period of the cash-flow statement.
// Amounts are in millions of yen.
type PeriodRecord struct {
	Period             string `json:"period"`  // e.g., "2023.12"
	Quarter            string `json:"quarter"` // quarter or annual designator
	OperatingCF        int64  `json:"operating_cf"`
	InvestingCF        int64  `json:"investing_cf"`
	FinancingCF        int64  `json:"financing_cf"`
	FreeCF             int64  `json:"free_cf"`
	CapitalExpenditure int64  `json:"capital_expenditure"`
	CashEquivalents    int64  `json:"cash_equivalents"`
}

// Category identifies one of the cash-flow archetypes.
type Category string

const (
	CategoryHealthy              Category = "healthy"
	CategoryAggressiveInvestment Category = "aggressive_investment"
	CategoryExcessCash           Category = "excess_cash"
	CategoryDebtRepayment        Category = "debt_repayment"
	CategoryRestructuring        Category = "restructuring"
	CategoryEmerging             Category = "emerging"
	CategoryWarningSign          Category = "warning_sign"
	CategoryDistress             Category = "distress"
	CategoryUnclassified         Category = "unclassified"
)

// Classification is the archetype assigned to one period, with its fixed
// label and rationale in both supported locales.
type Classification struct {
	Category    Category `json:"category"`
	Label       string   `json:"label"`
	Rationale   string   `json:"rationale"`
	LabelJA     string   `json:"label_ja"`
	RationaleJA string   `json:"rationale_ja"`
}

// Localized returns the label and rationale for the given locale ("ja" or "en").
// Anything other than "ja" yields English.
func (c Classification) Localized(locale string) (label, rationale string) {
	if locale == "ja" {
		return c.LabelJA, c.RationaleJA
	}
	return c.Label, c.Rationale
}

// Entry pairs a period with its classification.
type Entry struct {
	Record         PeriodRecord   `json:"record"`
	Classification Classification `json:"classification"`
	Latest         bool           `json:"latest"` // most recent period, highlighted
}

// Series holds the three primary flows keyed by period, in ascending period
// order, for line-chart rendering.
type Series struct {
	Periods   []string `json:"periods"`
	Operating []int64  `json:"operating_cf"`
	Investing []int64  `json:"investing_cf"`
	Financing []int64  `json:"financing_cf"`
}

// Analysis is the full result of classifying one cash-flow table.
type Analysis struct {
	RunID       string    `json:"run_id,omitempty"`
	Source      string    `json:"source,omitempty"`
	Title       string    `json:"title,omitempty"`
	FetchedAt   time.Time `json:"fetched_at,omitempty"`
	Entries     []Entry   `json:"entries"` // period-descending
	Series      Series    `json:"series"`
	Dropped     int       `json:"dropped"`     // rows discarded for wrong cell count
	Substituted int       `json:"substituted"` // amounts replaced with zero
}

// LatestEntry returns the highlighted most-recent entry, if any.
func (a *Analysis) LatestEntry() (Entry, bool) {
	if a == nil || len(a.Entries) == 0 {
		return Entry{}, false
	}
	return a.Entries[0], true
}
