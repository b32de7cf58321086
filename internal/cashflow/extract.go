// Package cashflow turns scraped cash-flow table rows into period records and
// classifies each period into a cash-flow archetype from the signs of its
// operating, investing and financing flows.
//
// Everything here is pure: no I/O and no shared state.
package cashflow

import (
	"errors"
	"fmt"

	"github.com/seenimoa/cfpattern/pkg/models"
)

// FieldNames is the fixed column order of a cash-flow table row.
var FieldNames = []string{
	"period",
	"quarter",
	"operating_cf",
	"investing_cf",
	"financing_cf",
	"free_cf",
	"capital_expenditure",
	"cash_equivalents",
}

// FieldLabelsJA are the source page's column headings, aligned with FieldNames.
var FieldLabelsJA = []string{"期間", "四半期", "営業CF", "投資CF", "財務CF", "フリーCF", "設備投資", "現金等"}

// ParsePolicy decides what happens when an amount cell does not parse.
type ParsePolicy string

const (
	// ParseAbort fails the whole extraction with a *ParseError.
	ParseAbort ParsePolicy = "abort"
	// ParseZero substitutes 0 for the offending amount and keeps going.
	ParseZero ParsePolicy = "zero"
)

// ParsePolicyFromString maps a config value to a ParsePolicy.
func ParsePolicyFromString(s string) (ParsePolicy, error) {
	switch p := ParsePolicy(s); p {
	case ParseAbort, ParseZero:
		return p, nil
	case "":
		return ParseAbort, nil
	default:
		return "", fmt.Errorf("unknown parse policy %q (want %q or %q)", s, ParseAbort, ParseZero)
	}
}

// ExtractOptions configures Extract.
type ExtractOptions struct {
	ParsePolicy ParsePolicy
}

// Extraction is the result of Extract.
type Extraction struct {
	Records []models.PeriodRecord

	// Dropped lists rows discarded for having the wrong number of cells.
	Dropped []*MalformedRowError

	// Substituted lists amounts replaced with zero under ParseZero.
	Substituted []*ParseError
}

// Extract converts raw rows into period records, preserving input order.
//
// Rows whose cell count differs from len(FieldNames) are dropped and reported
// in Extraction.Dropped. If no record survives, an *EmptyResultError is
// returned.
func Extract(rows []models.RawRow, opts ExtractOptions) (*Extraction, error) {
	policy := opts.ParsePolicy
	if policy == "" {
		policy = ParseAbort
	}

	ex := &Extraction{Records: make([]models.PeriodRecord, 0, len(rows))}
	for i, row := range rows {
		if len(row) != len(FieldNames) {
			ex.Dropped = append(ex.Dropped, &MalformedRowError{Row: i, Cells: len(row)})
			continue
		}

		rec := models.PeriodRecord{Period: row[0], Quarter: row[1]}
		amounts := []*int64{
			&rec.OperatingCF,
			&rec.InvestingCF,
			&rec.FinancingCF,
			&rec.FreeCF,
			&rec.CapitalExpenditure,
			&rec.CashEquivalents,
		}
		for j, dst := range amounts {
			col := j + 2
			n, err := Normalize(row[col])
			if err != nil {
				var pe *ParseError
				if !errors.As(err, &pe) {
					return nil, err
				}
				pe.Row = i
				pe.Field = FieldNames[col]
				if policy == ParseAbort {
					return nil, pe
				}
				ex.Substituted = append(ex.Substituted, pe)
				n = 0
			}
			*dst = n
		}
		ex.Records = append(ex.Records, rec)
	}

	if len(ex.Records) == 0 {
		return nil, &EmptyResultError{Rows: len(rows), Dropped: len(ex.Dropped)}
	}
	return ex, nil
}
