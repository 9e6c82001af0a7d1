package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgeraudit/internal/audit"
	"github.com/cleared-dev/ledgeraudit/internal/config"
)

type runFlags struct {
	logDir        string
	out           string
	configPath    string
	logLevel      string
	rawCSV        bool
	tolerance     string
	decimals      int32
	ledgerColumns string
	madThreshold  string
	dupWindow     float64
	workers       int
	metricsFile   string
	pretty        bool
}

func newRunCommand() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Audit the balance events in a log directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger(cmd.ErrOrStderr(), f.logLevel)
			if err != nil {
				return err
			}
			cfg, err := loadConfig(f.configPath)
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, cfg, f); err != nil {
				return err
			}

			res, err := audit.Run(cmd.Context(), audit.Params{
				LogDir:      f.logDir,
				OutDir:      f.out,
				Config:      cfg,
				MetricsFile: f.metricsFile,
				Logger:      log,
			})
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), res, f.pretty)
		},
	}

	d := config.Default()
	cmd.Flags().StringVar(&f.logDir, "log-dir", "", "directory containing service logs (required)")
	_ = cmd.MarkFlagRequired("log-dir")
	cmd.Flags().StringVar(&f.out, "out", "./out", "output directory")
	cmd.Flags().StringVar(&f.configPath, "config", "", "config file (default ./"+config.FileName+" if present)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "INFO", "DEBUG, INFO, WARN or ERROR")
	cmd.Flags().BoolVar(&f.rawCSV, "raw-csv", false, "also export raw_parsed.csv")
	cmd.Flags().StringVar(&f.tolerance, "tolerance", d.Ledger.Tolerance.String(), "tolerance when comparing balances")
	cmd.Flags().Int32Var(&f.decimals, "decimals", d.Ledger.Decimals, "decimal places for currencies without a configured precision")
	cmd.Flags().StringVar(&f.ledgerColumns, "ledger-columns", d.Report.LedgerColumns, "ledger columns: accounting, full, or a JSON file")
	cmd.Flags().StringVar(&f.madThreshold, "mad-threshold", d.Detector.MADThreshold.String(), "MAD z-score that flags an amount spike")
	cmd.Flags().Float64Var(&f.dupWindow, "dup-window", d.Detector.DupWindowSeconds, "seconds between repeated manual deductions")
	cmd.Flags().IntVar(&f.workers, "workers", d.Workers, "parallel user partitions (0 = all CPUs)")
	cmd.Flags().StringVar(&f.metricsFile, "metrics-file", "", "write run metrics in Prometheus textfile format")
	cmd.Flags().BoolVar(&f.pretty, "pretty", false, "render the summary in the terminal")

	return cmd
}

// loadConfig reads path, or ./ledgeraudit.yaml when path is empty and the
// file exists, or falls back to defaults.
func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	cfg, err := config.Load(config.FileName)
	if errors.Is(err, os.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

// applyFlags overrides cfg with the flags the user set explicitly.
func applyFlags(cmd *cobra.Command, cfg *config.Config, f runFlags) error {
	flags := cmd.Flags()
	if flags.Changed("tolerance") {
		tol, err := decimal.NewFromString(f.tolerance)
		if err != nil {
			return fmt.Errorf("invalid --tolerance %q: %w", f.tolerance, err)
		}
		cfg.Ledger.Tolerance = tol
	}
	if flags.Changed("decimals") {
		cfg.Ledger.Decimals = f.decimals
	}
	if flags.Changed("mad-threshold") {
		th, err := decimal.NewFromString(f.madThreshold)
		if err != nil {
			return fmt.Errorf("invalid --mad-threshold %q: %w", f.madThreshold, err)
		}
		cfg.Detector.MADThreshold = th
	}
	if flags.Changed("dup-window") {
		cfg.Detector.DupWindowSeconds = f.dupWindow
	}
	if flags.Changed("workers") {
		cfg.Workers = f.workers
	}
	if flags.Changed("ledger-columns") {
		cfg.Report.LedgerColumns = f.ledgerColumns
	}
	if flags.Changed("raw-csv") {
		cfg.Report.RawCSV = f.rawCSV
	}
	return nil
}

func printResult(w io.Writer, res *audit.Result, pretty bool) error {
	if pretty {
		out, err := glamour.Render(res.Report.Markdown, "dark")
		if err != nil {
			return fmt.Errorf("rendering summary: %w", err)
		}
		fmt.Fprint(w, out)
	}
	fmt.Fprintf(w, "Run %s: %d events, %d ledger entries, %d mismatches, %d anomalies\n",
		res.RunID, len(res.Events), len(res.Ledger), res.Mismatches(), len(res.Anomalies))
	fmt.Fprintf(w, "Summary: %s\n", res.Report.SummaryPath())
	return nil
}
