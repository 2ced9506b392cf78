package ingest

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/turbolytics/locator/internal/config"
)

func newRunCommand() *cobra.Command {
	var configPath string
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Runs an ingest. Rows are queried, decoded, cleaned and preserved.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			c, err := config.NewLocatorFromFile(configPath)
			if err != nil {
				return err
			}
			if key := v.GetString("resource-key"); key != "" {
				c.Ingest.Source.ResourceKey = key
			}
			if level := v.GetString("log-level"); level != "" {
				c.Global.Logger.Level = level
			}

			logger, err := config.NewLogger(c.Global.Logger.Level)
			if err != nil {
				return fmt.Errorf("building logger: %w", err)
			}
			defer logger.Sync()
			l := logger.Named("locator.ingest")

			runID := uuid.Must(uuid.NewRandom())
			l.Info("starting ingest",
				zap.String("name", c.Ingest.Name),
				zap.String("run_id", runID.String()),
			)

			ingester, err := config.InitializeIngester(ctx, c, runID, l)
			if err != nil {
				return err
			}
			defer ingester.Close(ctx)

			cat, err := ingester.Run(ctx, runID)
			if err != nil {
				return err
			}

			l.Info("ingest complete",
				zap.Int("source_records", cat.NumSourceRecords),
				zap.Int("facilities", cat.NumFacilities),
			)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file")
	cmd.MarkFlagRequired("config")
	cmd.Flags().String("resource-key", "", "Report resource key, overrides the config file")
	cmd.Flags().String("log-level", "", "Log level, overrides the config file")

	v.BindPFlag("resource-key", cmd.Flags().Lookup("resource-key"))
	v.BindPFlag("log-level", cmd.Flags().Lookup("log-level"))
	v.SetEnvPrefix("LOCATOR")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	return cmd
}
