package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ledgeraudit/internal/runlog"
)

func newHistoryCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List previous audit runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := runlog.Read(out)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No runs recorded in %s\n", out)
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tRUN\tEVENTS\tENTRIES\tMISMATCHES\tANOMALIES\tLOG DIR")
			for _, e := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
					e.Timestamp.UTC().Format(time.DateTime), e.RunID,
					e.Events, e.LedgerEntries, e.Mismatches, e.Anomalies, e.LogDir)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&out, "out", "./out", "output directory of previous runs")

	return cmd
}
