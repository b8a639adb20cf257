package main

import (
	"encoding/csv"
	"os"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/kommundata/deso-cli/internal/model"
)

var fetchYears []int

var fetchCmd = &cobra.Command{
	Use:   "fetch <indicator>",
	Short: "Fetch a single indicator and print it as CSV",
	Long:  "Fetches one of the indicators (education, economic_standard, unemployment) from SCB for the requested years and writes the per-area percentages to stdout as CSV.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind := model.IndicatorKind(args[0])
		if !kind.Valid() {
			return eris.Errorf("unknown indicator %q (want education, economic_standard or unemployment)", args[0])
		}

		years := fetchYears
		if len(years) == 0 {
			years = defaultYears()
		}

		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		table, err := env.Fetcher.Fetch(ctx, kind, years)
		if err != nil {
			return err
		}

		cw := csv.NewWriter(os.Stdout)
		enc := csvutil.NewEncoder(cw)
		for i := range table.Records {
			if err := enc.Encode(table.Records[i]); err != nil {
				return eris.Wrap(err, "encode record")
			}
		}
		cw.Flush()
		return eris.Wrap(cw.Error(), "flush output")
	},
}

func init() {
	fetchCmd.Flags().IntSliceVar(&fetchYears, "years", nil, "years to fetch (default: latest published year)")
	rootCmd.AddCommand(fetchCmd)
}
