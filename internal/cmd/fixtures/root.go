package fixtures

import "github.com/spf13/cobra"

func NewCommand() *cobra.Command {
	var cmd = &cobra.Command{
		Use:   "fixtures",
		Short: "Manages report fixtures for local runs",
	}
	cmd.AddCommand(newGenerateCommand())
	return cmd
}
