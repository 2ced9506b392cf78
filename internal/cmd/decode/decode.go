package decode

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/turbolytics/locator/internal/dsr"
	"github.com/turbolytics/locator/internal/powerbi"
	"github.com/turbolytics/locator/internal/preserver"
)

func NewCommand() *cobra.Command {
	var file string
	var querydata bool
	var resultIndex int
	var indent bool

	cmd := &cobra.Command{
		Use:   "decode",
		Short: "Decodes a DM0 payload file into records. Records are written to stdout as JSON.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, _ := zap.NewDevelopment()
			defer logger.Sync()
			l := logger.Named("locator.decode")

			var r io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			rows, err := readRows(r, querydata, resultIndex)
			if err != nil {
				return err
			}

			records, err := dsr.NewDecoder(dsr.WithLogger(l)).Decode(rows)
			if err != nil {
				return err
			}

			l.Debug("decoded payload", zap.Int("records", len(records)))

			out := preserver.NewStdout(
				preserver.WithWriter(cmd.OutOrStdout()),
				preserver.WithIndent(indent),
			)
			return out.Preserve(cmd.Context(), records)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "Path to the payload file, - for stdin")
	cmd.Flags().BoolVar(&querydata, "querydata", false, "The file is a full querydata response rather than a DM0 row array")
	cmd.Flags().IntVar(&resultIndex, "result-index", dsr.DefaultResultIndex, "Result index holding the rows of a querydata response")
	cmd.Flags().BoolVar(&indent, "indent", false, "Indent the JSON output")

	return cmd
}

func readRows(r io.Reader, querydata bool, resultIndex int) ([]any, error) {
	response, err := powerbi.DecodeResponseValue(r)
	if err != nil {
		return nil, err
	}

	if querydata {
		obj, ok := response.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("querydata response is %T, not an object", response)
		}
		return dsr.ExtractRows(obj, resultIndex)
	}

	rows, ok := response.([]any)
	if !ok {
		return nil, fmt.Errorf("payload is %T, not a row array", response)
	}
	return rows, nil
}
