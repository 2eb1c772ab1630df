package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/ofxsync/internal/id"
	"github.com/cleared-dev/ofxsync/internal/ofx"
)

func newParseCommand() *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Print the transactions of a statement file and their import IDs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			txns, err := ofx.Parse(data)
			if err != nil {
				return err
			}

			ids := id.NewBuilder(namespace)
			taken := id.Set{}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tTYPE\tAMOUNT\tPAYEE\tMEMO\tIMPORT ID")
			for _, t := range txns {
				k := ids.Assign(t.Posted, id.MinorUnits(t.Amount), taken)
				importID := ids.ImportID(k)
				taken.Add(importID)
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					t.Posted, t.Kind, t.Amount.StringFixed(2), t.PayeeOr("-"), t.MemoOr("-"), importID)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d transactions\n", len(txns))
			return nil
		},
	}

	cmd.Flags().StringVar(&namespace, "namespace", id.DefaultNamespace, "import ID namespace")

	return cmd
}
