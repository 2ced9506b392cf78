package ingest

import (
	"github.com/spf13/cobra"
)

func NewCommand() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "ingest",
		Short: "Ingests facility listings from a published report",
	}
	cmd.AddCommand(newRunCommand())
	return cmd
}
