package report

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/seenimoa/cfpattern/pkg/models"
	"github.com/seenimoa/cfpattern/pkg/utils"
)

// pageTemplate is the HTML report. It is embedded as a Go constant so the
// binary has no external file dependencies.
const pageTemplate = `<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Heading}}</title>
<style>
  body { font-family: -apple-system, 'Hiragino Sans', 'Segoe UI', sans-serif; color: #1a1a2e; max-width: 900px; margin: 0 auto; padding: 20px; line-height: 1.6; }
  h1 { font-size: 1.5rem; border-bottom: 3px solid #2563eb; padding-bottom: 8px; }
  .muted { color: #6b7280; font-size: 0.85rem; }
  .notice { background: #fff7ed; border-left: 4px solid #ea580c; padding: 6px 10px; margin: 8px 0; }
  table { border-collapse: collapse; width: 100%; margin-top: 16px; font-size: 0.9rem; }
  th, td { border-bottom: 1px solid #e5e7eb; padding: 6px 8px; text-align: left; vertical-align: top; }
  td.num { text-align: right; font-variant-numeric: tabular-nums; }
  tr.latest { background: #fff3cd; font-weight: 600; }
  .neg { color: #dc2626; }
</style>
</head>
<body>
<h1>{{.Heading}}</h1>
<p class="muted">{{if .Source}}{{.T.Source}}: {{.Source}} · {{end}}{{.T.Generated}}: {{.Generated}}</p>
{{if .Dropped}}<p class="notice">{{.Dropped}} {{.T.Dropped}}</p>{{end}}
{{if .Substituted}}<p class="notice">{{.Substituted}} {{.T.Substituted}}</p>{{end}}
<div class="chart">{{.Chart}}</div>
<table>
<thead><tr><th>{{.T.Period}}</th><th></th><th>{{.T.Operating}}</th><th>{{.T.Investing}}</th><th>{{.T.Financing}}</th><th>{{.T.Category}}</th></tr></thead>
<tbody>
{{range .Rows}}<tr{{if .Latest}} class="latest"{{end}}>
<td>{{.Period}}{{if .Latest}} ★{{end}}</td><td>{{.Quarter}}</td>
<td class="num{{if .OperatingNeg}} neg{{end}}">{{.Operating}}</td>
<td class="num{{if .InvestingNeg}} neg{{end}}">{{.Investing}}</td>
<td class="num{{if .FinancingNeg}} neg{{end}}">{{.Financing}}</td>
<td><strong>{{.Label}}</strong><br><span class="muted">{{.Rationale}}</span></td>
</tr>
{{end}}</tbody>
</table>
</body>
</html>
`

var page = template.Must(template.New("report").Parse(pageTemplate))

// htmlTexts exposes locale strings to the template.
type htmlTexts struct {
	Source, Generated, Dropped, Substituted string
	Period, Operating, Investing, Financing string
	Category                                string
}

type htmlRow struct {
	Period, Quarter                 string
	Operating, Investing, Financing string
	OperatingNeg, InvestingNeg      bool
	FinancingNeg                    bool
	Label, Rationale                string
	Latest                          bool
}

type htmlData struct {
	Lang, Heading, Source, Generated string
	Dropped, Substituted             int
	Chart                            template.HTML
	Rows                             []htmlRow
	T                                htmlTexts
}

// HTML renders a standalone HTML report with the chart inlined.
func HTML(a *models.Analysis, locale string) (string, error) {
	if a == nil {
		return "", fmt.Errorf("analysis is nil")
	}
	t := textsFor(locale)
	lang := "en"
	if locale == "ja" {
		lang = "ja"
	}

	heading := t.title
	if a.Title != "" {
		heading = a.Title
	}
	generated := utils.NowJST()
	if !a.FetchedAt.IsZero() {
		generated = a.FetchedAt
	}

	data := htmlData{
		Lang:        lang,
		Heading:     heading,
		Source:      a.Source,
		Generated:   utils.FormatDateTimeJST(generated),
		Dropped:     a.Dropped,
		Substituted: a.Substituted,
		// The chart is built from escaped labels only.
		Chart: template.HTML(CashFlowChart(a, locale)),
		T: htmlTexts{
			Source: t.source, Generated: t.generated,
			Dropped: t.dropped, Substituted: t.substituted,
			Period: t.period, Operating: t.operating, Investing: t.investing, Financing: t.financing,
			Category: t.category,
		},
	}
	for _, e := range a.Entries {
		label, rationale := e.Classification.Localized(locale)
		r := e.Record
		data.Rows = append(data.Rows, htmlRow{
			Period:       r.Period,
			Quarter:      r.Quarter,
			Operating:    utils.FormatMillions(r.OperatingCF),
			Investing:    utils.FormatMillions(r.InvestingCF),
			Financing:    utils.FormatMillions(r.FinancingCF),
			OperatingNeg: r.OperatingCF < 0,
			InvestingNeg: r.InvestingCF < 0,
			FinancingNeg: r.FinancingCF < 0,
			Label:        label,
			Rationale:    rationale,
			Latest:       e.Latest,
		})
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}
