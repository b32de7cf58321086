// Package report renders cash-flow analyses as SVG line charts, plain text
// and HTML pages.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/seenimoa/cfpattern/pkg/models"
	"github.com/seenimoa/cfpattern/pkg/utils"
)

// ════════════════════════════════════════════════════════════════════
// SVG Line Chart
// ════════════════════════════════════════════════════════════════════

// ChartConfig holds rendering parameters for SVG charts.
type ChartConfig struct {
	Width        int    // SVG width in pixels (default: 800)
	Height       int    // SVG height in pixels (default: 480)
	MarginTop    int    // top margin (default: 40)
	MarginRight  int    // right margin (default: 30)
	MarginBottom int    // bottom margin, room for rotated labels (default: 80)
	MarginLeft   int    // left margin (default: 90)
	BgColor      string // background color (default: "#ffffff")
	GridColor    string // grid line color (default: "#e8e8e8")
	TextColor    string // axis label color (default: "#333333")
	FontSize     int    // axis label font size (default: 11)
	Title        string // chart title
	XLabel       string // x-axis caption
	YLabel       string // y-axis caption
}

// DefaultChartConfig returns sensible defaults for chart rendering.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Width:        800,
		Height:       480,
		MarginTop:    40,
		MarginRight:  30,
		MarginBottom: 80,
		MarginLeft:   90,
		BgColor:      "#ffffff",
		GridColor:    "#e8e8e8",
		TextColor:    "#333333",
		FontSize:     11,
	}
}

// plotArea returns the usable drawing area dimensions.
func (c ChartConfig) plotArea() (x, y, w, h int) {
	return c.MarginLeft, c.MarginTop,
		c.Width - c.MarginLeft - c.MarginRight,
		c.Height - c.MarginTop - c.MarginBottom
}

// LineChartSeries represents a named data series for line charts.
type LineChartSeries struct {
	Name   string
	Values []int64
	Color  string // hex color (optional, auto-assigned if empty)
}

// LineChart generates an SVG line chart with one or more series over the
// given x-axis labels. Every point gets a circle marker, a zero line is drawn
// when the range crosses zero, and the point at index highlight (if >= 0)
// is shaded.
func LineChart(series []LineChartSeries, labels []string, highlight int, cfg ChartConfig) string {
	if cfg.Width == 0 {
		cfg = mergeDefaults(cfg)
	}

	maxLen := 0
	minVal, maxVal := int64(math.MaxInt64), int64(math.MinInt64)
	for _, s := range series {
		if len(s.Values) > maxLen {
			maxLen = len(s.Values)
		}
		for _, v := range s.Values {
			minVal = min(minVal, v)
			maxVal = max(maxVal, v)
		}
	}
	if maxLen == 0 {
		return emptySVG(cfg, "No data available")
	}
	if cfg.Title == "" {
		cfg.Title = "Line Chart"
	}

	px, py, pw, ph := cfg.plotArea()

	lo, hi := float64(minVal), float64(maxVal)
	vRange := hi - lo
	if vRange < 1 {
		vRange = math.Max(math.Abs(hi), 1)
	}
	lo -= vRange * 0.05
	hi += vRange * 0.05
	vRange = hi - lo

	xAt := func(i int) float64 {
		if maxLen == 1 {
			return float64(px) + float64(pw)/2
		}
		return float64(px) + float64(i)*float64(pw)/float64(maxLen-1)
	}
	yAt := func(v float64) float64 {
		return float64(py+ph) - (v-lo)/vRange*float64(ph)
	}

	var sb strings.Builder
	sb.WriteString(svgHeader(cfg))
	sb.WriteString(fmt.Sprintf(`<rect x="0" y="0" width="%d" height="%d" fill="%s"/>`,
		cfg.Width, cfg.Height, cfg.BgColor))
	sb.WriteString(fmt.Sprintf(`<text x="%d" y="20" font-size="14" font-weight="bold" fill="%s" text-anchor="middle">%s</text>`,
		cfg.Width/2, cfg.TextColor, escapeXML(cfg.Title)))

	// Highlight band for the latest period
	if highlight >= 0 && highlight < maxLen {
		step := float64(pw)
		if maxLen > 1 {
			step = float64(pw) / float64(maxLen-1)
		}
		bw := math.Min(step*0.6, 40)
		sb.WriteString(fmt.Sprintf(`<rect class="latest" x="%.1f" y="%d" width="%.1f" height="%d" fill="#fff3cd"/>`,
			xAt(highlight)-bw/2, py, bw, ph))
	}

	// Y-axis grid
	gridLines := 5
	for i := 0; i <= gridLines; i++ {
		val := lo + vRange*float64(i)/float64(gridLines)
		y := yAt(val)
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="%s" stroke-dasharray="3,3"/>`,
			px, y, px+pw, y, cfg.GridColor))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%.1f" font-size="%d" fill="%s" text-anchor="end">%s</text>`,
			px-5, y+4, cfg.FontSize, cfg.TextColor, utils.FormatMillions(int64(math.Round(val)))))
	}

	// Zero line
	if lo < 0 && hi > 0 {
		y := yAt(0)
		sb.WriteString(fmt.Sprintf(`<line class="zero" x1="%d" y1="%.1f" x2="%d" y2="%.1f" stroke="#999" stroke-width="1"/>`,
			px, y, px+pw, y))
	}

	// Draw series
	defaultColors := []string{"#1f77b4", "#d62728", "#2ca02c", "#ff7f0e", "#9467bd", "#17becf"}
	for si, s := range series {
		color := s.Color
		if color == "" {
			color = defaultColors[si%len(defaultColors)]
		}

		pathParts := make([]string, 0, len(s.Values))
		for i, v := range s.Values {
			cmd := "L"
			if i == 0 {
				cmd = "M"
			}
			pathParts = append(pathParts, fmt.Sprintf("%s%.1f,%.1f", cmd, xAt(i), yAt(float64(v))))
		}
		if len(pathParts) > 1 {
			sb.WriteString(fmt.Sprintf(`<path d="%s" fill="none" stroke="%s" stroke-width="2"/>`,
				strings.Join(pathParts, " "), color))
		}
		for i, v := range s.Values {
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="3.5" fill="%s"/>`,
				xAt(i), yAt(float64(v)), color))
		}

		// Legend
		ly := py + 10 + si*16
		sb.WriteString(fmt.Sprintf(`<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s" stroke-width="2"/>`,
			px+10, ly, px+30, ly, color))
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="10" fill="%s">%s</text>`,
			px+35, ly+4, cfg.TextColor, escapeXML(s.Name)))
	}

	// X-axis labels, every period, rotated 45°
	for i := 0; i < len(labels) && i < maxLen; i++ {
		x, y := xAt(i), py+ph+14
		sb.WriteString(fmt.Sprintf(`<text x="%.1f" y="%d" font-size="%d" fill="%s" text-anchor="end" transform="rotate(-45 %.1f %d)">%s</text>`,
			x, y, cfg.FontSize-1, cfg.TextColor, x, y, escapeXML(labels[i])))
	}

	// Axis captions
	if cfg.XLabel != "" {
		sb.WriteString(fmt.Sprintf(`<text x="%d" y="%d" font-size="%d" fill="%s" text-anchor="middle">%s</text>`,
			px+pw/2, cfg.Height-8, cfg.FontSize, cfg.TextColor, escapeXML(cfg.XLabel)))
	}
	if cfg.YLabel != "" {
		sb.WriteString(fmt.Sprintf(`<text x="16" y="%d" font-size="%d" fill="%s" text-anchor="middle" transform="rotate(-90 16 %d)">%s</text>`,
			py+ph/2, cfg.FontSize, cfg.TextColor, py+ph/2, escapeXML(cfg.YLabel)))
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// CashFlowChart draws the operating, investing and financing series of an
// analysis, highlighting the latest period.
func CashFlowChart(a *models.Analysis, locale string) string {
	cfg := DefaultChartConfig()
	t := textsFor(locale)
	cfg.Title, cfg.XLabel, cfg.YLabel = t.chartTitle, t.period, t.chartYLabel

	if a == nil || len(a.Series.Periods) == 0 {
		return emptySVG(cfg, t.noData)
	}

	s := a.Series
	return LineChart([]LineChartSeries{
		{Name: t.operating, Values: s.Operating, Color: "#1f77b4"},
		{Name: t.investing, Values: s.Investing, Color: "#d62728"},
		{Name: t.financing, Values: s.Financing, Color: "#2ca02c"},
	}, s.Periods, latestIndex(a), cfg)
}

// latestIndex finds the latest entry's position in the ascending series.
func latestIndex(a *models.Analysis) int {
	latest, ok := a.LatestEntry()
	if !ok {
		return -1
	}
	for i := len(a.Series.Periods) - 1; i >= 0; i-- {
		if a.Series.Periods[i] == latest.Record.Period {
			return i
		}
	}
	return -1
}

func mergeDefaults(cfg ChartConfig) ChartConfig {
	d := DefaultChartConfig()
	d.Title, d.XLabel, d.YLabel = cfg.Title, cfg.XLabel, cfg.YLabel
	return d
}

// ════════════════════════════════════════════════════════════════════

func svgHeader(cfg ChartConfig) string {
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif">`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height)
}

func emptySVG(cfg ChartConfig, msg string) string {
	if cfg.Width == 0 {
		cfg.Width = 400
	}
	if cfg.Height == 0 {
		cfg.Height = 200
	}
	return fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d"><rect width="%d" height="%d" fill="#f5f5f5"/><text x="%d" y="%d" text-anchor="middle" fill="#999" font-size="14">%s</text></svg>`,
		cfg.Width, cfg.Height, cfg.Width, cfg.Height, cfg.Width/2, cfg.Height/2, escapeXML(msg))
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	s = strings.ReplaceAll(s, `"`, "&quot;")
	return s
}
