// Command vpcr imports VPCR spreadsheet exports into a local SQLite
// database and edits the records, their change history and checklists.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/roach88/vpcr/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := cli.NewRootCommand().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "vpcr:", err)
	}
	os.Exit(cli.GetExitCode(err))
}
