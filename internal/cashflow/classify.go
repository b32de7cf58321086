package cashflow

import "github.com/seenimoa/cfpattern/pkg/models"

type sign int

const (
	neg sign = -1
	pos sign = 1
)

func signOf(n int64) sign {
	switch {
	case n > 0:
		return pos
	case n < 0:
		return neg
	}
	return 0
}

// rule matches a sign triple (operating, investing, financing).
type rule struct {
	operating, investing, financing sign
	category                        models.Category
}

// rules are evaluated in order; the first match wins. The debt-repayment rule
// has the same pattern as the healthy rule and therefore never matches.
var rules = []rule{
	{pos, neg, neg, models.CategoryHealthy},
	{pos, neg, pos, models.CategoryAggressiveInvestment},
	{pos, pos, neg, models.CategoryExcessCash},
	{pos, neg, neg, models.CategoryDebtRepayment},
	{neg, pos, neg, models.CategoryRestructuring},
	{neg, neg, pos, models.CategoryEmerging},
	{neg, pos, pos, models.CategoryWarningSign},
	{neg, neg, neg, models.CategoryDistress},
}

var definitions = map[models.Category]models.Classification{
	models.CategoryHealthy: {
		Label:       "healthy / low-risk company",
		Rationale:   "Operating CF positive, investing CF negative, financing CF negative. The business is run soundly, investing actively while paying down borrowings. Stable long-term growth is expected, so it is regarded as a low-risk investment.",
		LabelJA:     "優良企業",
		RationaleJA: "営業CFが黒字、投資CFが赤字、財務CFが赤字。健全な事業運営を行っており、投資を積極的に行いつつ、借入金返済も進んでいる。長期的な安定成長が見込まれるため、低リスクの投資先と見なされる。",
	},
	models.CategoryAggressiveInvestment: {
		Label:       "aggressive-investment company",
		Rationale:   "Operating CF positive, investing CF negative, financing CF positive. Actively raising funds and investing for growth. There is risk, but high growth can be expected.",
		LabelJA:     "積極投資企業",
		RationaleJA: "営業CFが黒字、投資CFが赤字、財務CFが黒字。積極的に資金調達を行い、成長のための投資を進めている。リスクはあるが、高成長が期待できる。",
	},
	models.CategoryExcessCash: {
		Label:       "excess-cash company",
		Rationale:   "Operating CF positive, investing CF positive, financing CF negative. Holds a large amount of cash with few investment opportunities, so shareholder returns or M&A are possible.",
		LabelJA:     "過剰CF企業",
		RationaleJA: "営業CFが黒字、投資CFが黒字、財務CFが赤字。現金の保有量が多く、投資機会が少ないため、株主還元やM&Aの可能性がある。",
	},
	models.CategoryDebtRepayment: {
		Label:       "debt-repayment / mature-declining company",
		Rationale:   "Operating CF positive, investing CF negative, financing CF negative. Repaying debt; growth is unlikely, but cash flow is stable.",
		LabelJA:     "債務返済企業/成熟・衰退企業",
		RationaleJA: "営業CFが黒字、投資CFが赤字、財務CFが赤字。債務返済を進めており、成長は見込まれにくいが、安定したキャッシュフローがある。",
	},
	models.CategoryRestructuring: {
		Label:       "restructuring company",
		Rationale:   "Operating CF negative, investing CF positive, financing CF negative. Possibly carrying out business reorganization or restructuring; the risk is high.",
		LabelJA:     "リストラ企業",
		RationaleJA: "営業CFが赤字、投資CFが黒字、財務CFが赤字。事業再編やリストラを進めている可能性があり、リスクが高い。",
	},
	models.CategoryEmerging: {
		Label:       "emerging company",
		Rationale:   "Operating CF negative, investing CF negative, financing CF positive. Raising funds for growth and investing actively. There is growth potential, but the risk is also large.",
		LabelJA:     "新興企業",
		RationaleJA: "営業CFが赤字、投資CFが赤字、財務CFが黒字。成長のために資金調達を行い、積極的な投資をしている。成長の可能性があるが、リスクも大きい。",
	},
	models.CategoryWarningSign: {
		Label:       "warning-sign company",
		Rationale:   "Operating CF negative, investing CF positive, financing CF positive. Operating activities are sluggish and warning signs are showing.",
		LabelJA:     "危険信号企業",
		RationaleJA: "営業CFが赤字、投資CFが黒字、財務CFが黒字。営業活動が低迷しており、危険信号が出ている。",
	},
	models.CategoryDistress: {
		Label:       "distress / bankruptcy-risk company",
		Rationale:   "Operating CF negative, investing CF negative, financing CF negative. Management is in a critical situation and the risk of bankruptcy is high.",
		LabelJA:     "倒産危機企業",
		RationaleJA: "営業CFが赤字、投資CFが赤字、財務CFが赤字。経営が危機的状況にあり、倒産のリスクが高い。",
	},
	models.CategoryUnclassified: {
		Label:       "unclassified",
		Rationale:   "The data format is incorrect, or no category applies.",
		LabelJA:     "分類不明",
		RationaleJA: "データの形式が正しくないか、該当する分類がありません。",
	},
}

func init() {
	for cat, def := range definitions {
		def.Category = cat
		definitions[cat] = def
	}
}

// Classify assigns a category from the signs of the three primary flows.
// It is total: any triple with a zero term, or matching no rule, is
// unclassified.
func Classify(operating, investing, financing int64) models.Classification {
	o, i, f := signOf(operating), signOf(investing), signOf(financing)
	for _, r := range rules {
		if r.operating == o && r.investing == i && r.financing == f {
			return definitions[r.category]
		}
	}
	return definitions[models.CategoryUnclassified]
}

// ClassifyRecord classifies one period record.
func ClassifyRecord(rec models.PeriodRecord) models.Classification {
	return Classify(rec.OperatingCF, rec.InvestingCF, rec.FinancingCF)
}

// Categories returns every category definition in rule order, unclassified last.
func Categories() []models.Classification {
	out := make([]models.Classification, 0, len(rules)+1)
	for _, r := range rules {
		out = append(out, definitions[r.category])
	}
	return append(out, definitions[models.CategoryUnclassified])
}
