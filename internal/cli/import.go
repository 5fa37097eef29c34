package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/vpcr/internal/importer"
)

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>...",
		Short: "Import spreadsheets into the database",
		Long: `Validate every spreadsheet header, then upsert each data row keyed by
"VPCR Project ID". Files with a bad header are skipped; rows that fail are
reported and the rest of the batch continues. Interrupting the command stops
the import at the next batch boundary.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, rootOpts, args)
		},
	}
	return cmd
}

// importSummary is the structured form of an import run.
type importSummary struct {
	Outcome                    importer.Outcome `json:"outcome" yaml:"outcome"`
	importer.ImportBatchResult `yaml:",inline"`
}

func runImport(cmd *cobra.Command, rootOpts *RootOptions, paths []string) error {
	out := rootOpts.formatter(cmd)

	eng, err := rootOpts.openEngine(out)
	if err != nil {
		return err
	}
	defer eng.Close()

	res, err := eng.ImportSpreadsheets(cmd.Context(), paths)
	if err != nil && !errors.Is(err, context.Canceled) {
		return out.Fail("import failed", err)
	}

	summary := importSummary{Outcome: res.Outcome(), ImportBatchResult: res}
	if rerr := out.Render(summary, func(w io.Writer) { writeImportSummary(w, res) }); rerr != nil {
		return rerr
	}

	switch {
	case res.Cancelled:
		return WrapExitError(ExitFailure, "import cancelled", err)
	case res.Outcome() != importer.OutcomeSucceeded:
		return NewExitError(ExitFailure, fmt.Sprintf("import %s: %d row error(s), %d file error(s)",
			res.Outcome(), len(res.Errors), len(res.FileErrors)))
	}
	return nil
}

func writeImportSummary(w io.Writer, res importer.ImportBatchResult) {
	fmt.Fprintf(w, "Import %s (run %s)\n", res.Outcome(), res.RunID)
	fmt.Fprintf(w, "  files:     %d\n", res.Files)
	fmt.Fprintf(w, "  rows:      %d\n", res.Rows)
	fmt.Fprintf(w, "  created:   %d\n", res.Created)
	fmt.Fprintf(w, "  updated:   %d (%d unchanged)\n", res.Updated, res.Unchanged)
	fmt.Fprintf(w, "  failed:    %d\n", len(res.Errors))
	if res.Cancelled {
		fmt.Fprintln(w, "  cancelled before all batches ran")
	}
	for _, fe := range res.FileErrors {
		fmt.Fprintf(w, "skipped %s\n", fe.File)
		for _, e := range fe.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	for _, re := range res.Errors {
		fmt.Fprintf(w, "error %s\n", re.Error())
	}
}
