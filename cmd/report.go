package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/addrdiff/internal/emit"
	"github.com/sells-group/addrdiff/internal/report"
	"github.com/sells-group/addrdiff/internal/resolve"
)

var (
	reportDate string
	reportOut  string
	reportXLSX string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Produce a change log from the report database via SQL",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		date, err := resolve.ParseDate(reportDate)
		if err != nil {
			return err
		}
		previous := date.AddDate(0, 0, -1)

		st, err := newStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		custDate, err := st.CustomerDateAsOf(ctx, date)
		if err != nil {
			return err
		}

		changes, err := st.Report(ctx, date, previous, custDate)
		if err != nil {
			return eris.Wrapf(err, "report %s", reportDate)
		}

		out := reportOut
		if out == "" {
			out = resolve.SnapshotPath(cfg.Output.Dir, resolve.ChangePrefix, date)
		}
		if err := emit.Write(out, changes); err != nil {
			return err
		}

		if reportXLSX != "" {
			if err := report.WriteXLSX(reportXLSX, changes); err != nil {
				return err
			}
		}

		zap.L().Info("report complete",
			zap.String("date", reportDate),
			zap.String("customer_snapshot", custDate.Format(resolve.DateLayout)),
			zap.Int("changes", len(changes)),
			zap.String("output", out),
		)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportDate, "date", "", "effective date YYYYMMDD (required)")
	reportCmd.Flags().StringVar(&reportOut, "out", "", "output CSV path (default <output.dir>/address_changes_<date>.csv)")
	reportCmd.Flags().StringVar(&reportXLSX, "xlsx", "", "also export the report as XLSX to this path")
	_ = reportCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(reportCmd)
}
