package cashflow

import (
	"sort"

	"github.com/seenimoa/cfpattern/pkg/models"
)

// SortByPeriodDesc returns a copy of records ordered most recent first.
// Periods are compared as strings, which matches calendar order only while
// labels stay zero-padded ("2023.03", not "2023.3"). Ties keep input order.
func SortByPeriodDesc(records []models.PeriodRecord) []models.PeriodRecord {
	out := make([]models.PeriodRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Period > out[j].Period
	})
	return out
}

// Latest returns the most recent record: the first of SortByPeriodDesc.
func Latest(records []models.PeriodRecord) (models.PeriodRecord, bool) {
	if len(records) == 0 {
		return models.PeriodRecord{}, false
	}
	return SortByPeriodDesc(records)[0], true
}
