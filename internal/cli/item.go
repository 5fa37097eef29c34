package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/vpcr/internal/engine"
	"github.com/roach88/vpcr/internal/model"
	"github.com/roach88/vpcr/internal/schema"
	"github.com/roach88/vpcr/internal/store"
)

// NewItemCommand creates the item command group.
func NewItemCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "item",
		Short: "Read and edit VPCR records",
	}
	cmd.AddCommand(newItemGetCommand(rootOpts))
	cmd.AddCommand(newItemListCommand(rootOpts))
	cmd.AddCommand(newItemSetCommand(rootOpts))
	cmd.AddCommand(newItemDeleteCommand(rootOpts))
	return cmd
}

func newItemGetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			eng, err := rootOpts.openEngine(out)
			if err != nil {
				return err
			}
			defer eng.Close()

			it, err := eng.GetItem(cmd.Context(), args[0])
			if err != nil {
				return out.Fail(fmt.Sprintf("get %s", args[0]), err)
			}
			count, err := eng.ChecklistCount(cmd.Context(), it.ID)
			if err != nil {
				return out.Fail(fmt.Sprintf("get %s", args[0]), err)
			}
			return out.Render(itemView{Item: it, Checklist: count}, func(w io.Writer) {
				writeItem(w, it, count)
			})
		},
	}
}

// itemView is an item with its checklist progress.
type itemView struct {
	model.Item `yaml:",inline"`
	Checklist  model.ChecklistCount `json:"checklist" yaml:"checklist"`
}

func writeItem(w io.Writer, it model.Item, count model.ChecklistCount) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "%s:\t%s\n", schema.IDName, it.ID)
	for _, f := range schema.DataFields() {
		v := it.Get(f.Name)
		if v == "" {
			continue
		}
		if f.Kind == schema.KindList {
			v = strings.Join(schema.SplitList(v), ", ")
		}
		fmt.Fprintf(tw, "%s:\t%s\n", f.Name, v)
	}
	if count.Total > 0 {
		fmt.Fprintf(tw, "Checklist:\t%d/%d done\n", count.Completed, count.Total)
	}
	tw.Flush()
}

func newItemListCommand(rootOpts *RootOptions) *cobra.Command {
	var filters []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records",
		Long: `List records, optionally filtered with --filter Field=Value.
Repeat --filter for the same field to match any of the values; filters on
different fields must all match. Matching is case-insensitive and list fields
such as PNs match on any element.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			filter, err := engine.ParseFilter(filters)
			if err != nil {
				return out.Fail("invalid filter", err)
			}

			eng, err := rootOpts.openEngine(out)
			if err != nil {
				return err
			}
			defer eng.Close()

			items, err := eng.GetAllItems(cmd.Context())
			if err != nil {
				return out.Fail("list items", err)
			}
			items = filter.Apply(items)
			out.VerboseLog("%d item(s) matched", len(items))

			return out.Render(items, func(w io.Writer) { writeItemTable(w, items) })
		},
	}

	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "filter as Field=Value (repeatable)")
	return cmd
}

var listColumns = []string{schema.IDName, "Title", "Status", "Supplier", "Last Update"}

func writeItemTable(w io.Writer, items []model.Item) {
	if len(items) == 0 {
		fmt.Fprintln(w, "No items.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(listColumns, "\t"))
	for _, it := range items {
		row := make([]string, len(listColumns))
		row[0] = it.ID
		for i, name := range listColumns[1:] {
			row[i+1] = it.Get(name)
		}
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	tw.Flush()
}

func newItemSetCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <id> <Field=Value>...",
		Short: "Create or edit a record",
		Long: `Set one or more fields on a record, creating it when the id is new.
Field may be the display name ("Sourcing Manager") or the column name
(sourcing_manager). Only values that actually change are written and
logged as manual updates. An empty value clears the field.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			itemID := strings.TrimSpace(args[0])
			if itemID == "" {
				return out.Fail("set item", fmt.Errorf("%w: %s is required", store.ErrValidation, schema.IDName))
			}

			eng, err := rootOpts.openEngine(out)
			if err != nil {
				return err
			}
			defer eng.Close()

			ctx := cmd.Context()
			current, err := eng.GetItem(ctx, itemID)
			exists := err == nil
			switch {
			case errors.Is(err, store.ErrNotFound):
				current = model.Item{ID: itemID, Fields: map[string]string{}}
			case err != nil:
				return out.Fail(fmt.Sprintf("set %s", itemID), err)
			}

			draft := engine.NewDraft(current)
			for _, assign := range args[1:] {
				name, value, ok := strings.Cut(assign, "=")
				if !ok {
					return out.Fail("set item", fmt.Errorf("%w: %q is not Field=Value", store.ErrValidation, assign))
				}
				if err := draft.Set(strings.TrimSpace(name), value); err != nil {
					return out.Fail("set item", err)
				}
			}

			var res store.UpsertResult
			if !exists && draft.State() == engine.Clean {
				res, err = eng.UpsertItem(ctx, map[string]string{schema.IDName: itemID})
			} else {
				res, err = draft.Save(ctx, eng)
			}
			if err != nil {
				return out.Fail(fmt.Sprintf("set %s", itemID), err)
			}
			out.VerboseLog("Draft for %s is %s", itemID, draft.State())

			return out.Render(res, func(w io.Writer) {
				switch {
				case res.Created:
					fmt.Fprintf(w, "Created %s (%d field(s) set)\n", itemID, res.Changed)
				case res.Changed == 0:
					fmt.Fprintf(w, "No changes to %s\n", itemID)
				default:
					fmt.Fprintf(w, "Updated %s (%d field(s) changed)\n", itemID, res.Changed)
				}
			})
		},
	}
}

func newItemDeleteCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a record and its checklist",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			eng, err := rootOpts.openEngine(out)
			if err != nil {
				return err
			}
			defer eng.Close()

			if err := eng.DeleteItem(cmd.Context(), args[0]); err != nil {
				return out.Fail(fmt.Sprintf("delete %s", args[0]), err)
			}
			return out.Render(map[string]string{"deleted": args[0]}, func(w io.Writer) {
				fmt.Fprintf(w, "Deleted %s\n", args[0])
			})
		},
	}
}
