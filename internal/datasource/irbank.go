package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/seenimoa/cfpattern/internal/config"
	"github.com/seenimoa/cfpattern/pkg/models"
	"github.com/seenimoa/cfpattern/pkg/utils"
)

// IRBank implements RowSource by scraping IRBANK cash-flow pages
// (e.g. https://irbank.net/E05080/cf).
type IRBank struct {
	baseURL   string
	selector  string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
	log       zerolog.Logger
}

// NewIRBank creates an IRBANK source from the source config.
func NewIRBank(cfg config.SourceConfig, log zerolog.Logger) *IRBank {
	selector := cfg.TableSelector
	if selector == "" {
		selector = "table.cs"
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	limit := rate.Limit(cfg.RatePerSec)
	if cfg.RatePerSec <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}
	return &IRBank{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		selector:  selector,
		userAgent: ua,
		client:    NewHTTPClient(cfg),
		limiter:   rate.NewLimiter(limit, burst),
		log:       log,
	}
}

// Name returns the data source name.
func (s *IRBank) Name() string { return "IRBANK" }

// ResolveURL turns a target into the page URL. A bare EDINET code such as
// "E05080" expands to <base>/E05080/cf; anything else must be an absolute
// http(s) URL.
func (s *IRBank) ResolveURL(target string) (string, error) {
	target = utils.NormalizeTarget(target)
	if target == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidTarget)
	}
	if utils.IsEDINETCode(target) {
		if s.baseURL == "" {
			return "", fmt.Errorf("%w: no base URL to expand %s", ErrInvalidTarget, target)
		}
		return fmt.Sprintf("%s/%s/cf", s.baseURL, target), nil
	}

	u, err := url.Parse(target)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q is neither an EDINET code nor an http(s) URL", ErrInvalidTarget, target)
	}
	return u.String(), nil
}

// FetchRows downloads the page and extracts the cash-flow table rows.
func (s *IRBank) FetchRows(ctx context.Context, target string) (*models.Table, error) {
	pageURL, err := s.ResolveURL(target)
	if err != nil {
		return nil, err
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	s.log.Debug().Str("url", pageURL).Msg("fetching cash-flow page")
	body, status, err := doGet(ctx, s.client, pageURL, map[string]string{
		"User-Agent": s.userAgent,
		"Accept":     "text/html",
	})
	if err != nil {
		s.log.Warn().Err(err).Str("url", pageURL).Int("status", status).Msg("fetch failed")
		return nil, fmt.Errorf("irbank %s: %w", pageURL, err)
	}
	defer body.Close()

	table, err := ParseTable(body, s.selector)
	if err != nil {
		return nil, fmt.Errorf("irbank %s: %w", pageURL, err)
	}
	table.Source = pageURL

	s.log.Debug().Str("url", pageURL).Int("rows", len(table.Rows)).Msg("parsed cash-flow table")
	return table, nil
}

// ParseTable reads an HTML document and returns the rows of the first table
// matching selector. The first row is the header and is skipped; every other
// row yields the trimmed text of its td cells, whatever their count.
func ParseTable(r io.Reader, selector string) (*models.Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse HTML: %w", err)
	}

	table := doc.Find(selector).First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("%w (selector %q)", ErrTableNotFound, selector)
	}

	out := &models.Table{
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}
	table.Find("tr").Each(func(i int, tr *goquery.Selection) {
		if i == 0 {
			return
		}
		row := models.RawRow{}
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			row = append(row, strings.TrimSpace(td.Text()))
		})
		out.Rows = append(out.Rows, row)
	})
	return out, nil
}
