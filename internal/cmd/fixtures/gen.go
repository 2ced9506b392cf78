package fixtures

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/turbolytics/locator/internal/dsr"
	"github.com/turbolytics/locator/internal/facility"
	lfixtures "github.com/turbolytics/locator/internal/fixtures"
)

const (
	QueryDataFile = "querydata.json"
	AddressesFile = "addresses.csv"
)

func newGenerateCommand() *cobra.Command {
	var records int
	var seed int64
	var out string
	var resultIndex int

	var cmd = &cobra.Command{
		Use:   "generate",
		Short: "Generates a querydata response and matching coordinates for testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, _ := zap.NewDevelopment()
			defer logger.Sync()
			l := logger.Named("locator.fixtures")

			if records < 1 {
				return fmt.Errorf("records must be positive: %d", records)
			}
			if resultIndex < 0 {
				return fmt.Errorf("result index must not be negative: %d", resultIndex)
			}
			if seed == 0 {
				seed = time.Now().UnixNano()
			}

			if err := os.MkdirAll(out, 0755); err != nil {
				return err
			}

			f := lfixtures.Generate(records, rand.New(rand.NewSource(seed)), facility.DefaultColumns())

			bs, err := json.MarshalIndent(f.QueryData(resultIndex), "", "  ")
			if err != nil {
				return err
			}
			if err := os.WriteFile(filepath.Join(out, QueryDataFile), bs, 0644); err != nil {
				return err
			}

			af, err := os.Create(filepath.Join(out, AddressesFile))
			if err != nil {
				return err
			}
			defer af.Close()
			if err := f.WriteAddresses(af); err != nil {
				return err
			}

			l.Info("generated fixtures",
				zap.Int("records", records),
				zap.Int64("seed", seed),
				zap.String("out", out),
			)
			return nil
		},
	}

	cmd.Flags().IntVarP(&records, "records", "r", 10, "Number of facilities to generate")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed, 0 picks one from the clock")
	cmd.Flags().StringVarP(&out, "out", "o", ".", "Directory to write the fixtures to")
	cmd.Flags().IntVar(&resultIndex, "result-index", dsr.DefaultResultIndex, "Result index the rows are placed at")
	return cmd
}
