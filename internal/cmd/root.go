package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/turbolytics/locator/internal/cmd/decode"
	"github.com/turbolytics/locator/internal/cmd/fixtures"
	"github.com/turbolytics/locator/internal/cmd/ingest"
	"github.com/turbolytics/locator/internal/cmd/serve"
)

func NewRootCommand() *cobra.Command {
	var cmd = &cobra.Command{
		Use:          "locator",
		Short:        "Decodes and ingests treatment facility listings from published reports",
		SilenceUsage: true,
	}

	cmd.AddCommand(decode.NewCommand())
	cmd.AddCommand(ingest.NewCommand())
	cmd.AddCommand(fixtures.NewCommand())
	cmd.AddCommand(serve.NewCommand())

	return cmd
}

// Execute runs the root command until it returns or the process is interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCommand()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
