package datasource

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/seenimoa/cfpattern/internal/cashflow"
	"github.com/seenimoa/cfpattern/pkg/models"
)

const byteOrderMark = "\ufeff"

// ReadCSV reads rows exported from a cash-flow table. Records may have any
// number of fields so that malformed rows are left for extraction to drop.
// A leading byte-order mark is removed. A first record starting with the
// period heading ("期間" or "period") is treated as a header and skipped.
func ReadCSV(r io.Reader) ([]models.RawRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows []models.RawRow
	for i := 0; ; i++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV: %w", err)
		}
		if i == 0 && len(rec) > 0 {
			rec[0] = strings.TrimPrefix(rec[0], byteOrderMark)
			if isHeaderCell(rec[0]) {
				continue
			}
		}
		row := make(models.RawRow, len(rec))
		for j, cell := range rec {
			row[j] = strings.TrimSpace(cell)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ReadCSVFile opens path and reads it with ReadCSV.
func ReadCSVFile(path string) (*models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &models.Table{Source: path, Rows: rows}, nil
}

func isHeaderCell(s string) bool {
	s = strings.TrimSpace(s)
	return s == cashflow.FieldLabelsJA[0] || strings.EqualFold(s, cashflow.FieldNames[0])
}
