package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/vpcr/internal/schema"
	"github.com/roach88/vpcr/internal/sheet"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check spreadsheet headers without importing",
		Long: `Check that each spreadsheet is an .xlsx/.xlsm workbook whose first row
matches the expected VPCR export header. No database is opened.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, rootOpts, args)
		},
	}
	return cmd
}

func runValidate(cmd *cobra.Command, rootOpts *RootOptions, paths []string) error {
	out := rootOpts.formatter(cmd)
	expected := schema.ExpectedHeader()

	results := make([]sheet.ValidationResult, 0, len(paths))
	invalid := 0
	for _, path := range paths {
		out.VerboseLog("Validating %s", path)
		res := sheet.Validate(path, expected, sheet.WithSheet(rootOpts.cfg.Import.Sheet))
		if !res.HeaderOK {
			invalid++
		}
		results = append(results, res)
	}

	if err := out.Render(results, func(w io.Writer) {
		for _, res := range results {
			if res.HeaderOK {
				fmt.Fprintf(w, "OK    %s\n", res.Path)
				continue
			}
			fmt.Fprintf(w, "FAIL  %s\n", res.Path)
			for _, e := range res.Errors {
				fmt.Fprintf(w, "      %s\n", e)
			}
		}
	}); err != nil {
		return err
	}

	if invalid > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d file(s) failed validation", invalid, len(paths)))
	}
	return nil
}
