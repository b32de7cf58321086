// cfpattern classifies a company's cash-flow history into the eight
// operating/investing/financing sign patterns.
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/seenimoa/cfpattern/api"
	"github.com/seenimoa/cfpattern/internal/analyzer"
	"github.com/seenimoa/cfpattern/internal/cashflow"
	"github.com/seenimoa/cfpattern/internal/config"
	"github.com/seenimoa/cfpattern/internal/datasource"
	"github.com/seenimoa/cfpattern/internal/logger"
	"github.com/seenimoa/cfpattern/internal/report"
	"github.com/seenimoa/cfpattern/pkg/models"
	"github.com/seenimoa/cfpattern/pkg/utils"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config and logger, set in PersistentPreRunE.
var (
	cfg *config.Config
	log zerolog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if errors.Is(err, cashflow.ErrEmptyResult) {
			fmt.Fprintln(os.Stderr, cashflow.ErrEmptyResult)
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cfpattern",
	Short: "Cash-flow pattern classifier",
	Long: `cfpattern scrapes a company's cash-flow table, classifies every period
by the signs of its operating, investing and financing cash flows, and
renders the result as text, JSON, HTML or an SVG line chart.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		logLevel, _ := cmd.Flags().GetString("log-level")

		var err error
		cfg, log, err = setup(configFile, logLevel)
		if err != nil {
			return err
		}
		api.Version = version
		return nil
	},
}

// setup loads and validates the configuration, applies the --log-level
// override and builds the logger.
func setup(configFile, logLevel string) (*config.Config, zerolog.Logger, error) {
	var (
		c   *config.Config
		err error
	)
	if configFile != "" {
		c, err = config.LoadFromFile(configFile)
	} else {
		c, err = config.Load()
	}
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if err := c.Validate(); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid config: %w", err)
	}

	l, err := logger.New(c.Logging)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("invalid config: logging.level: %w", err)
	}
	return c, l, nil
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(classifyCmd)
	rootCmd.AddCommand(categoriesCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(statusCmd)
}

// newAnalyzer builds an analyzer over the IRBANK source.
func newAnalyzer(policy cashflow.ParsePolicy) *analyzer.Analyzer {
	return analyzer.New(analyzer.Config{
		Source:      datasource.NewIRBank(cfg.Source, log),
		ParsePolicy: policy,
		Concurrency: cfg.Analysis.ConcurrentFetches,
		Logger:      log,
	})
}

// localeFlag returns --locale, or the configured locale when unset.
func localeFlag(cmd *cobra.Command) (string, error) {
	l, _ := cmd.Flags().GetString("locale")
	if l == "" {
		l = cfg.Analysis.Locale
	}
	switch l {
	case "ja", "en":
		return l, nil
	}
	return "", fmt.Errorf("unknown locale %q (want ja or en)", l)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cfpattern %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Analyze Command ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [target...]",
	Short: "Classify the cash-flow history of one or more companies",
	Long: `Fetch the cash-flow table for each target and classify every period.

A target is an EDINET code (expanded against source.base_url) or a full page URL.

Examples:
  cfpattern analyze E05080
  cfpattern analyze https://irbank.net/E05080/cf --chart cf.svg
  cfpattern analyze E05080 E04206 --format json
  cfpattern analyze --rows-file cf.csv --locale en --format html --out report.html`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		chartPath, _ := cmd.Flags().GetString("chart")
		outPath, _ := cmd.Flags().GetString("out")
		rowsFile, _ := cmd.Flags().GetString("rows-file")
		policyStr, _ := cmd.Flags().GetString("parse-policy")

		locale, err := localeFlag(cmd)
		if err != nil {
			return err
		}
		if policyStr == "" {
			policyStr = cfg.Analysis.ParsePolicy
		}
		policy, err := cashflow.ParsePolicyFromString(policyStr)
		if err != nil {
			return err
		}
		switch format {
		case "text", "json", "html":
		default:
			return fmt.Errorf("unknown format %q (want text, json or html)", format)
		}

		an := newAnalyzer(policy)
		ctx := cmd.Context()

		var results []analyzer.BatchResult
		switch {
		case rowsFile != "":
			if len(args) > 0 {
				return fmt.Errorf("--rows-file cannot be combined with targets")
			}
			table, err := datasource.ReadCSVFile(rowsFile)
			if err != nil {
				return err
			}
			a, err := an.AnalyzeTable(table)
			if err != nil {
				return err
			}
			results = []analyzer.BatchResult{{Target: rowsFile, Analysis: a}}
		case len(args) == 1:
			a, err := an.Analyze(ctx, utils.NormalizeTarget(args[0]))
			if err != nil {
				return err
			}
			results = []analyzer.BatchResult{{Target: args[0], Analysis: a}}
		case len(args) > 1:
			targets := make([]string, len(args))
			for i, a := range args {
				targets[i] = utils.NormalizeTarget(a)
			}
			results, err = an.AnalyzeMany(ctx, targets)
			if err != nil {
				return err
			}
		default:
			return fmt.Errorf("provide a target or --rows-file")
		}

		out := io.Writer(os.Stdout)
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}
		if err := render(out, results, format, locale); err != nil {
			return err
		}

		if chartPath != "" {
			if len(results) != 1 {
				return fmt.Errorf("--chart needs exactly one target")
			}
			svg := report.CashFlowChart(results[0].Analysis, locale)
			if err := os.WriteFile(chartPath, []byte(svg), 0o644); err != nil {
				return fmt.Errorf("writing chart: %w", err)
			}
			log.Info().Str("path", chartPath).Msg("chart written")
		}

		return firstError(results)
	},
}

func init() {
	analyzeCmd.Flags().String("format", "text", "output format: text, json or html")
	analyzeCmd.Flags().String("chart", "", "write an SVG line chart to this file")
	analyzeCmd.Flags().String("out", "", "write the report to this file instead of stdout")
	analyzeCmd.Flags().String("locale", "", "label language: ja or en (default from config)")
	analyzeCmd.Flags().String("parse-policy", "", "on unparseable amounts: abort or zero (default from config)")
	analyzeCmd.Flags().String("rows-file", "", "classify rows from a CSV export instead of fetching")
}

// batchJSON is the JSON shape of one analyze result.
type batchJSON struct {
	Target   string           `json:"target"`
	Analysis *models.Analysis `json:"analysis,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func render(w io.Writer, results []analyzer.BatchResult, format, locale string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if len(results) == 1 && results[0].Err == nil {
			return enc.Encode(results[0].Analysis)
		}
		items := make([]batchJSON, len(results))
		for i, r := range results {
			items[i] = batchJSON{Target: r.Target, Analysis: r.Analysis}
			if r.Err != nil {
				items[i].Error = r.Err.Error()
			}
		}
		return enc.Encode(items)

	case "html":
		for _, r := range results {
			if r.Err != nil {
				continue
			}
			page, err := report.HTML(r.Analysis, locale)
			if err != nil {
				return err
			}
			if _, err := io.WriteString(w, page); err != nil {
				return err
			}
		}
		return nil

	default:
		for _, r := range results {
			if len(results) > 1 {
				fmt.Fprintf(w, "== %s ==\n", r.Target)
			}
			if r.Err != nil {
				fmt.Fprintf(w, "error: %v\n\n", r.Err)
				continue
			}
			if _, err := io.WriteString(w, report.Text(r.Analysis, locale)); err != nil {
				return err
			}
		}
		return nil
	}
}

// firstError returns the first per-target error of a batch.
func firstError(results []analyzer.BatchResult) error {
	var failed []string
	var first error
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r.Target)
			if first == nil {
				first = r.Err
			}
		}
	}
	switch {
	case first == nil:
		return nil
	case len(results) == 1:
		return first
	default:
		return fmt.Errorf("%d of %d targets failed (%s): %w", len(failed), len(results), strings.Join(failed, ", "), first)
	}
}

// --- Classify Command ---

var classifyCmd = &cobra.Command{
	Use:   "classify <operating> <investing> <financing>",
	Short: "Classify a single operating/investing/financing triple",
	Long: `Classify one period from its three primary cash flows.

Amounts may use thousands separators and the typographic minus, as on the
source pages.

Examples:
  cfpattern classify 1,200 −800 −300
  cfpattern classify -- -5 -10 20`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		locale, err := localeFlag(cmd)
		if err != nil {
			return err
		}

		var amounts [3]int64
		for i, arg := range args {
			n, err := cashflow.Normalize(arg)
			if err != nil {
				return err
			}
			amounts[i] = n
		}

		c := cashflow.Classify(amounts[0], amounts[1], amounts[2])
		label, rationale := c.Localized(locale)
		prefix := "Rationale"
		if locale == "ja" {
			prefix = "特徴"
		}
		fmt.Printf("%s (%s)\n%s: %s\n", label, c.Category, prefix, rationale)
		return nil
	},
}

func init() {
	classifyCmd.Flags().String("locale", "", "label language: ja or en (default from config)")
}

// --- Categories Command ---

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "List every cash-flow category in rule order",
	RunE: func(cmd *cobra.Command, args []string) error {
		locale, err := localeFlag(cmd)
		if err != nil {
			return err
		}
		fmt.Print(report.Categories(cashflow.Categories(), locale))
		return nil
	},
}

func init() {
	categoriesCmd.Flags().String("locale", "", "label language: ja or en (default from config)")
}

// --- Serve Command (API Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.API.Port = port
		}
		policy, err := cashflow.ParsePolicyFromString(cfg.Analysis.ParsePolicy)
		if err != nil {
			return err
		}

		srv := api.NewServer(cfg, newAnalyzer(policy), log)
		fmt.Printf("🌐 Starting cfpattern API server on %s\n", cfg.API.Addr())
		return srv.ListenAndServe(cfg.API.Addr())
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "listen port (default from config)")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  cfpattern: Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Printf("  Time (JST):    %s\n", utils.FormatDateTimeJST(utils.NowJST()))
		fmt.Println()

		fmt.Println("  Source:")
		fmt.Printf("    Base URL:      %s\n", cfg.Source.BaseURL)
		fmt.Printf("    Table:         %s\n", cfg.Source.TableSelector)
		fmt.Printf("    Timeout:       %ds\n", cfg.Source.TimeoutSec)
		fmt.Printf("    Rate limit:    %.2f req/s (burst %d)\n", cfg.Source.RatePerSec, cfg.Source.Burst)
		fmt.Println()

		fmt.Println("  Analysis:")
		fmt.Printf("    Parse policy:  %s\n", cfg.Analysis.ParsePolicy)
		fmt.Printf("    Locale:        %s\n", cfg.Analysis.Locale)
		fmt.Printf("    Concurrency:   %d\n", cfg.Analysis.ConcurrentFetches)
		fmt.Println()

		fmt.Printf("  API Server:      %s\n", cfg.API.Addr())
		fmt.Printf("  Logging:         %s (%s)\n", cfg.Logging.Level, cfg.Logging.Format)
		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
