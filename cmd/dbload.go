package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/addrdiff/internal/model"
	"github.com/sells-group/addrdiff/internal/resolve"
	"github.com/sells-group/addrdiff/internal/snapshot"
)

var (
	dbloadDate string
	dbloadDir  string
)

var dbloadCmd = &cobra.Command{
	Use:   "dbload",
	Short: "Import one date's snapshots into the report database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		log := zap.L().With(zap.String("component", "dbload"))

		date, err := resolve.ParseDate(dbloadDate)
		if err != nil {
			return err
		}
		dir := cfg.Input.Dir
		if dbloadDir != "" {
			dir = dbloadDir
		}

		st, err := newStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		addrPath := resolve.SnapshotPath(dir, resolve.AddressPrefix, date)
		table, err := snapshot.LoadAddresses(addrPath, nil)
		if err != nil {
			return eris.Wrapf(err, "dbload: load %s", addrPath)
		}
		records := make([]model.AddressRecord, 0, len(table))
		for _, rec := range table {
			records = append(records, rec)
		}
		n, err := st.ImportAddresses(ctx, date, records)
		if err != nil {
			return err
		}
		log.Info("addresses imported", zap.String("date", dbloadDate), zap.Int64("rows", n))

		// A customer snapshot only exists on the days the roster was
		// re-exported; skip quietly when this date has none.
		custPath := resolve.SnapshotPath(dir, resolve.CustomerPrefix, date)
		if _, statErr := os.Stat(custPath); statErr != nil {
			log.Info("no customer snapshot for date, skipping", zap.String("date", dbloadDate))
			return nil
		}
		customers, err := snapshot.LoadCustomers(custPath, nil)
		if err != nil {
			return eris.Wrapf(err, "dbload: load %s", custPath)
		}
		n, err = st.ImportCustomers(ctx, date, customers)
		if err != nil {
			return err
		}
		log.Info("customers imported", zap.String("date", dbloadDate), zap.Int64("rows", n))
		return nil
	},
}

func init() {
	dbloadCmd.Flags().StringVar(&dbloadDate, "date", "", "snapshot date YYYYMMDD (required)")
	dbloadCmd.Flags().StringVar(&dbloadDir, "dir", "", "input directory (default from config)")
	_ = dbloadCmd.MarkFlagRequired("date")
	rootCmd.AddCommand(dbloadCmd)
}
