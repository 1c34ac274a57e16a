package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/addrdiff/internal/pipeline"
)

var (
	scanDir      string
	scanOut      string
	scanManifest string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Process every snapshot date found in the input directory",
	RunE: func(cmd *cobra.Command, _ []string) error {
		inputDir, outputDir := cfg.Input.Dir, cfg.Output.Dir
		if scanDir != "" {
			inputDir = scanDir
		}
		if scanOut != "" {
			outputDir = scanOut
		}

		p := pipeline.New(inputDir, outputDir, zapReporter)
		results, err := p.RunRange(cmd.Context())
		if err != nil {
			return eris.Wrapf(err, "scan %s", inputDir)
		}

		var total int
		for _, r := range results {
			total += r.Changes
		}
		zap.L().Info("scan complete",
			zap.Int("dates", len(results)),
			zap.Int("total_changes", total),
		)

		if scanManifest != "" {
			if err := pipeline.WriteManifest(scanManifest, results); err != nil {
				return err
			}
			zap.L().Info("manifest written", zap.String("path", scanManifest))
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanDir, "dir", "", "input directory (default from config)")
	scanCmd.Flags().StringVar(&scanOut, "out", "", "output directory (default from config)")
	scanCmd.Flags().StringVar(&scanManifest, "manifest", "", "write a YAML run manifest to this path")
	rootCmd.AddCommand(scanCmd)
}
