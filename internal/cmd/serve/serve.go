package serve

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/turbolytics/locator/internal/config"
	"github.com/turbolytics/locator/internal/dsr"
	"github.com/turbolytics/locator/internal/ingest"
)

func NewCommand() *cobra.Command {
	var addr string
	var configPath string
	var logLevel string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Starts the decode server",
		RunE: func(cmd *cobra.Command, args []string) error {
			var c *config.Locator
			if configPath != "" {
				var err error
				c, err = config.NewLocatorFromFile(configPath)
				if err != nil {
					return err
				}
				if logLevel == "" {
					logLevel = c.Global.Logger.Level
				}
			}

			logger, err := config.NewLogger(logLevel)
			if err != nil {
				return fmt.Errorf("building logger: %w", err)
			}
			defer logger.Sync()
			l := logger.Named("locator.serve")

			decoder := dsr.NewDecoder(dsr.WithLogger(l.Named("dsr")))
			if c != nil {
				decoder, err = config.InitializeDecoder(c, l)
				if err != nil {
					return err
				}
			}

			return ingest.NewServer(decoder, l).Start(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Address to listen on")
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Optional config file providing wire overrides")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "Log level")

	return cmd
}
