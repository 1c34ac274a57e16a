package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/addrdiff/internal/pipeline"
	"github.com/sells-group/addrdiff/internal/resolve"
)

var (
	diffDate string
	diffDir  string
	diffOut  string
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Compare one date's address snapshot against the previous day",
	RunE: func(cmd *cobra.Command, _ []string) error {
		date, err := resolve.ParseDate(diffDate)
		if err != nil {
			return err
		}

		inputDir, outputDir := cfg.Input.Dir, cfg.Output.Dir
		if diffDir != "" {
			inputDir = diffDir
		}
		if diffOut != "" {
			outputDir = diffOut
		}

		p := pipeline.New(inputDir, outputDir, zapReporter)
		res, err := p.RunDate(cmd.Context(), date)
		if err != nil {
			return eris.Wrapf(err, "diff %s", diffDate)
		}

		zap.L().Info("diff complete",
			zap.String("date", diffDate),
			zap.String("customer_snapshot", res.CustomerSnapshot.Format(resolve.DateLayout)),
			zap.Int("changes", res.Changes),
			zap.String("output", res.OutputPath),
		)
		return nil
	},
}

func init() {
	diffCmd.Flags().StringVar(&diffDate, "date", "", "effective date YYYYMMDD (required)")
	diffCmd.Flags().StringVar(&diffDir, "dir", "", "input directory (default from config)")
	diffCmd.Flags().StringVar(&diffOut, "out", "", "output directory (default from config)")
	_ = diffCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(diffCmd)
}
