package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/vpcr/internal/store"
)

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		itemID string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show the change history, most recent first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			eng, err := rootOpts.openEngine(out)
			if err != nil {
				return err
			}
			defer eng.Close()

			entries, err := eng.GetChangeLog(cmd.Context(), itemID, limit)
			if err != nil {
				return out.Fail("read change log", err)
			}

			return out.Render(entries, func(w io.Writer) {
				if len(entries) == 0 {
					fmt.Fprintln(w, "No changes recorded.")
					return
				}
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "WHEN\tITEM\tFIELD\tTYPE\tOLD\tNEW")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
						e.ChangedAt.Local().Format(time.DateTime), e.ItemID, e.FieldName,
						e.ChangeType, e.OldValue, e.NewValue)
				}
				tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&itemID, "item", "", "only show changes to this item")
	cmd.Flags().IntVarP(&limit, "limit", "n", store.DefaultChangeLogLimit, "maximum number of entries")
	return cmd
}
