package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tickwise/timetrack/internal/core/report"
	"github.com/tickwise/timetrack/internal/core/service"
	"github.com/tickwise/timetrack/internal/infrastructure/config"
	"github.com/tickwise/timetrack/internal/infrastructure/pdf"
	"github.com/tickwise/timetrack/pkg/logger"
)

const (
	FormatCSV = "csv"
	FormatPDF = "pdf"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	*RootOptions
	UserID       string
	From         string
	To           string
	TZ           string
	BillableOnly bool
	Format       string
	Out          string
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export a user's time entries",
		Long: `Export one user's time entries straight from the store, without a running
server. Days are inclusive and the bounds may be given in either order.

Example:
  timetrack report --user alice --from 2024-03-01 --to 2024-03-31
  timetrack report --user alice --from 2024-03-04 --billable-only --format pdf --out march.pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.UserID, "user", "", "user id whose entries are exported (required)")
	cmd.Flags().StringVar(&opts.From, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.To, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.TZ, "tz", "", "IANA time zone for day boundaries (default UTC)")
	cmd.Flags().BoolVar(&opts.BillableOnly, "billable-only", false, "drop non-billable entries")
	cmd.Flags().StringVar(&opts.Format, "format", FormatCSV, "output format (csv|pdf)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "-", "output file, - for stdout")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func runReport(ctx context.Context, opts *ReportOptions, stdout io.Writer) error {
	if opts.Format != FormatCSV && opts.Format != FormatPDF {
		return fmt.Errorf("invalid format %q: must be csv or pdf", opts.Format)
	}
	f, err := report.ParseFilter(opts.From, opts.To, opts.TZ, opts.BillableOnly)
	if err != nil {
		return err
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	log := initLogger(cfg, opts.RootOptions)

	b, err := openBackend(ctx, cfg, logger.Component("store"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer b.Close(context.Background())

	source := service.StoreSource{Repo: b.entries, UserID: opts.UserID}
	if start, end, ok := f.Bounds(); ok {
		source.Query.From, source.Query.To = start, end
	}
	svc := service.NewReportService(source, b.directory, pdf.NewRenderer(), cfg.Report.PageSize, logger.Component("report"))

	out := stdout
	if opts.Out != "" && opts.Out != "-" {
		file, err := os.Create(opts.Out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer file.Close()
		out = file
	}

	switch opts.Format {
	case FormatPDF:
		err = svc.ExportPDF(ctx, out, f)
	default:
		err = svc.ExportCSV(ctx, out, f)
	}
	if err != nil {
		return err
	}

	log.Info().
		Str("user_id", opts.UserID).
		Str("period", f.Period()).
		Str("format", opts.Format).
		Msg("report exported")
	return nil
}
