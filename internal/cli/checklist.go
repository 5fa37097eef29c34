package cli

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/vpcr/internal/store"
)

// NewChecklistCommand creates the checklist command group.
func NewChecklistCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checklist",
		Short: "Manage the to-do checklist attached to a record",
	}
	cmd.AddCommand(newChecklistAddCommand(rootOpts))
	cmd.AddCommand(newChecklistListCommand(rootOpts))
	cmd.AddCommand(newChecklistUpdateCommand(rootOpts))
	cmd.AddCommand(newChecklistToggleCommand(rootOpts))
	cmd.AddCommand(newChecklistDeleteCommand(rootOpts))
	cmd.AddCommand(newChecklistStatusCommand(rootOpts))
	return cmd
}

func parseEntryID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: checklist entry id %q is not a positive integer", store.ErrValidation, arg)
	}
	return id, nil
}

func newChecklistAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <item-id> <description>",
		Short: "Add an open checklist entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			eng, err := rootOpts.openEngine(out)
			if err != nil {
				return err
			}
			defer eng.Close()

			id, err := eng.AddChecklistEntry(cmd.Context(), args[0], args[1])
			if err != nil {
				return out.Fail(fmt.Sprintf("add checklist entry to %s", args[0]), err)
			}
			return out.Render(map[string]int64{"id": id}, func(w io.Writer) {
				fmt.Fprintf(w, "Added entry %d to %s\n", id, args[0])
			})
		},
	}
}

func newChecklistListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <item-id>",
		Short: "List checklist entries in creation order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			eng, err := rootOpts.openEngine(out)
			if err != nil {
				return err
			}
			defer eng.Close()

			entries, err := eng.ListChecklistEntries(cmd.Context(), args[0])
			if err != nil {
				return out.Fail(fmt.Sprintf("list checklist for %s", args[0]), err)
			}
			return out.Render(entries, func(w io.Writer) {
				if len(entries) == 0 {
					fmt.Fprintf(w, "No checklist entries for %s.\n", args[0])
					return
				}
				tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
				for _, e := range entries {
					mark := "[ ]"
					if e.Completed {
						mark = "[x]"
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\n", e.ID, mark, e.Description)
				}
				tw.Flush()
			})
		},
	}
}

func newChecklistUpdateCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		description string
		completed   bool
	)

	cmd := &cobra.Command{
		Use:   "update <entry-id>",
		Short: "Change an entry's description or completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			id, err := parseEntryID(args[0])
			if err != nil {
				return out.Fail("update checklist entry", err)
			}

			var u store.ChecklistUpdate
			if cmd.Flags().Changed("description") {
				u.Description = &description
			}
			if cmd.Flags().Changed("completed") {
				u.Completed = &completed
			}

			eng, err := rootOpts.openEngine(out)
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.UpdateChecklistEntry(cmd.Context(), id, u); err != nil {
				return out.Fail(fmt.Sprintf("update checklist entry %d", id), err)
			}
			return out.Render(map[string]int64{"updated": id}, func(w io.Writer) {
				fmt.Fprintf(w, "Updated entry %d\n", id)
			})
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "new description")
	cmd.Flags().BoolVar(&completed, "completed", false, "mark completed (--completed=false to reopen)")
	return cmd
}

func newChecklistToggleCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <entry-id>",
		Short: "Flip an entry between open and completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			id, err := parseEntryID(args[0])
			if err != nil {
				return out.Fail("toggle checklist entry", err)
			}
			eng, err := rootOpts.openEngine(out)
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.ToggleChecklistEntry(cmd.Context(), id); err != nil {
				return out.Fail(fmt.Sprintf("toggle checklist entry %d", id), err)
			}
			return out.Render(map[string]int64{"toggled": id}, func(w io.Writer) {
				fmt.Fprintf(w, "Toggled entry %d\n", id)
			})
		},
	}
}

func newChecklistDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <entry-id>",
		Short: "Remove a checklist entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			id, err := parseEntryID(args[0])
			if err != nil {
				return out.Fail("delete checklist entry", err)
			}
			eng, err := rootOpts.openEngine(out)
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.DeleteChecklistEntry(cmd.Context(), id); err != nil {
				return out.Fail(fmt.Sprintf("delete checklist entry %d", id), err)
			}
			return out.Render(map[string]int64{"deleted": id}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted entry %d\n", id)
			})
		},
	}
}

// checklistStatus summarizes an item's checklist.
type checklistStatus struct {
	ItemID     string `json:"item_id" yaml:"item_id"`
	Total      int    `json:"total" yaml:"total"`
	Completed  int    `json:"completed" yaml:"completed"`
	Incomplete bool   `json:"incomplete" yaml:"incomplete"`
}

func newChecklistStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <item-id>",
		Short: "Report whether an item has open checklist entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			eng, err := rootOpts.openEngine(out)
			if err != nil {
				return err
			}
			defer eng.Close()

			ctx := cmd.Context()
			count, err := eng.ChecklistCount(ctx, args[0])
			if err != nil {
				return out.Fail(fmt.Sprintf("checklist status for %s", args[0]), err)
			}
			open, err := eng.HasIncompleteChecklist(ctx, args[0])
			if err != nil {
				return out.Fail(fmt.Sprintf("checklist status for %s", args[0]), err)
			}

			st := checklistStatus{ItemID: args[0], Total: count.Total, Completed: count.Completed, Incomplete: open}
			return out.Render(st, func(w io.Writer) {
				if !open {
					fmt.Fprintf(w, "%s: checklist complete (%d/%d)\n", st.ItemID, st.Completed, st.Total)
					return
				}
				fmt.Fprintf(w, "%s: %d of %d entries open\n", st.ItemID, count.Incomplete(), st.Total)
			})
		},
	}
}
