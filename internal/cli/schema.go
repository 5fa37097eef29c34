package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/vpcr/internal/schema"
)

// fieldView is one row of the schema listing.
type fieldView struct {
	Name   string `json:"name" yaml:"name"`
	Column string `json:"column" yaml:"column"`
	Header string `json:"header,omitempty" yaml:"header,omitempty"`
	Kind   string `json:"kind" yaml:"kind"`
}

// NewSchemaCommand creates the schema command.
func NewSchemaCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "List record fields with their columns and spreadsheet headers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := rootOpts.formatter(cmd)
			if err := schema.Check(); err != nil {
				return out.Fail("field table is inconsistent", err)
			}

			views := make([]fieldView, len(schema.Fields))
			for i, f := range schema.Fields {
				views[i] = fieldView{Name: f.Name, Column: f.Column, Header: f.Header, Kind: f.Kind.String()}
			}
			return out.Render(views, func(w io.Writer) { writeSchema(w, views) })
		},
	}
}

func writeSchema(w io.Writer, views []fieldView) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tFIELD\tCOLUMN\tKIND\tHEADER")
	col := 0
	for _, v := range views {
		pos, header := "-", "-"
		if v.Header != "" {
			col++
			pos, header = fmt.Sprint(col), v.Header
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", pos, v.Name, v.Column, v.Kind, header)
	}
	tw.Flush()
}
