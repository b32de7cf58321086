package cashflow

import "github.com/seenimoa/cfpattern/pkg/models"

// Analyze runs extraction, classification and presentation ordering over one
// table. Entries come back period-descending with the first marked Latest;
// Series is ascending for charting.
func Analyze(rows []models.RawRow, opts ExtractOptions) (*models.Analysis, error) {
	ex, err := Extract(rows, opts)
	if err != nil {
		return nil, err
	}

	sorted := SortByPeriodDesc(ex.Records)
	a := &models.Analysis{
		Entries:     make([]models.Entry, len(sorted)),
		Dropped:     len(ex.Dropped),
		Substituted: len(ex.Substituted),
	}
	for i, rec := range sorted {
		a.Entries[i] = models.Entry{
			Record:         rec,
			Classification: ClassifyRecord(rec),
			Latest:         i == 0,
		}
	}
	a.Series = BuildSeries(sorted)
	return a, nil
}

// BuildSeries lays the three primary flows out in ascending period order,
// whatever the order of records.
func BuildSeries(records []models.PeriodRecord) models.Series {
	desc := SortByPeriodDesc(records)
	n := len(desc)
	s := models.Series{
		Periods:   make([]string, n),
		Operating: make([]int64, n),
		Investing: make([]int64, n),
		Financing: make([]int64, n),
	}
	for i, rec := range desc {
		j := n - 1 - i
		s.Periods[j] = rec.Period
		s.Operating[j] = rec.OperatingCF
		s.Investing[j] = rec.InvestingCF
		s.Financing[j] = rec.FinancingCF
	}
	return s
}
