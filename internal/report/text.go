package report

import (
	"fmt"
	"strings"

	"github.com/seenimoa/cfpattern/internal/cashflow"
	"github.com/seenimoa/cfpattern/pkg/models"
	"github.com/seenimoa/cfpattern/pkg/utils"
)

// texts holds the fixed UI strings of one locale.
type texts struct {
	title, chartTitle, chartYLabel, period       string
	operating, investing, financing, rationale   string
	latest, noData, dropped, substituted, source string
	category, generated                          string
}

var localeTexts = map[string]texts{
	"ja": {
		title:       "キャッシュフロー分析",
		chartTitle:  "キャッシュフローの推移",
		chartYLabel: "キャッシュフロー (百万円)",
		period:      cashflow.FieldLabelsJA[0],
		operating:   cashflow.FieldLabelsJA[2],
		investing:   cashflow.FieldLabelsJA[3],
		financing:   cashflow.FieldLabelsJA[4],
		rationale:   "特徴",
		latest:      "最新",
		noData:      "データがありません",
		dropped:     "列数が不正な行を除外しました",
		substituted: "数値を解析できず0で補完しました",
		source:      "取得元",
		category:    "分類",
		generated:   "作成日時",
	},
	"en": {
		title:       "Cash-Flow Analysis",
		chartTitle:  "Cash-Flow Trend",
		chartYLabel: "Cash flow (JPY millions)",
		period:      "Period",
		operating:   "Operating CF",
		investing:   "Investing CF",
		financing:   "Financing CF",
		rationale:   "Rationale",
		latest:      "latest",
		noData:      "No data available",
		dropped:     "malformed rows dropped",
		substituted: "unparseable amounts replaced with 0",
		source:      "Source",
		category:    "Category",
		generated:   "Generated",
	},
}

func textsFor(locale string) texts {
	if t, ok := localeTexts[locale]; ok {
		return t
	}
	return localeTexts["en"]
}

// Text renders an analysis in the line-per-period layout:
//
//	2023.03 通期 => 倒産危機企業
//	特徴: ...
//	-------------------------------------------------
//
// The latest period is marked with ★.
func Text(a *models.Analysis, locale string) string {
	t := textsFor(locale)
	if a == nil || len(a.Entries) == 0 {
		return t.noData + "\n"
	}

	var sb strings.Builder
	sep := strings.Repeat("-", 49)

	if a.Title != "" {
		sb.WriteString(a.Title + "\n")
	}
	if a.Source != "" {
		fmt.Fprintf(&sb, "%s: %s\n", t.source, a.Source)
	}
	if a.Dropped > 0 {
		fmt.Fprintf(&sb, "(%d %s)\n", a.Dropped, t.dropped)
	}
	if a.Substituted > 0 {
		fmt.Fprintf(&sb, "(%d %s)\n", a.Substituted, t.substituted)
	}
	if sb.Len() > 0 {
		sb.WriteString(sep + "\n")
	}

	for _, e := range a.Entries {
		label, rationale := e.Classification.Localized(locale)
		marker := ""
		if e.Latest {
			marker = fmt.Sprintf("★ [%s] ", t.latest)
		}
		fmt.Fprintf(&sb, "%s%s %s => %s\n", marker, e.Record.Period, e.Record.Quarter, label)
		fmt.Fprintf(&sb, "  %s %s / %s %s / %s %s\n",
			t.operating, utils.FormatSigned(e.Record.OperatingCF),
			t.investing, utils.FormatSigned(e.Record.InvestingCF),
			t.financing, utils.FormatSigned(e.Record.FinancingCF))
		fmt.Fprintf(&sb, "%s: %s\n", t.rationale, rationale)
		sb.WriteString(sep + "\n")
	}
	return sb.String()
}

// Categories renders the category table, one block per category.
func Categories(cats []models.Classification, locale string) string {
	t := textsFor(locale)
	var sb strings.Builder
	for i, c := range cats {
		label, rationale := c.Localized(locale)
		fmt.Fprintf(&sb, "%d. %s (%s)\n   %s: %s\n", i+1, label, c.Category, t.rationale, rationale)
	}
	return sb.String()
}
