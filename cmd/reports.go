package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/readiness-cli/internal/model"
)

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List stored readiness reports, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			limit = cfg.Report.ListLimit
		}

		list, err := st.ListReports(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "reports list")
		}

		if len(list) == 0 {
			fmt.Fprintln(os.Stderr, "No reports found.")
			return nil
		}

		formatReportsList(cmd.OutOrStdout(), list)
		return nil
	},
}

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete expired reports",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.DeleteExpiredReports(ctx)
		if err != nil {
			return eris.Wrap(err, "cleanup")
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d expired report(s).\n", n)
		return nil
	},
}

func formatReportsList(out io.Writer, list []model.ReportSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tUPLOAD\tSCORE\tCREATED\tEXPIRES")
	_, _ = fmt.Fprintln(w, "--\t------\t-----\t-------\t-------")

	for _, r := range list {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			r.ID,
			r.UploadID,
			r.OverallScore,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.ExpiresAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

func init() {
	reportsCmd.Flags().Int("limit", 0, "max reports to list (default from config)")
	rootCmd.AddCommand(reportsCmd)
	rootCmd.AddCommand(cleanupCmd)
}
