package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/readiness-cli/internal/schema"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the canonical field table",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := loadSchema()
		if err != nil {
			return err
		}
		formatSchema(cmd.OutOrStdout(), s)
		return nil
	},
}

func formatSchema(out io.Writer, s *schema.Schema) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "PATH\tTYPE\tREQUIRED\tALIASES")
	_, _ = fmt.Fprintln(w, "----\t----\t--------\t-------")

	for _, f := range s.Fields() {
		req := "no"
		if f.Required {
			req = "yes"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.Path, f.Type, req, strings.Join(f.Aliases, ", "))
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\nCurrencies: %s\n", strings.Join(s.Currencies(), ", "))
	_, _ = fmt.Fprintf(out, "Required fields: %d\n", s.RequiredCount())
}

func init() {
	rootCmd.AddCommand(schemaCmd)
}
