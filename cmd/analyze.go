package main

import (
	"context"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kommundata/deso-cli/internal/classify"
	"github.com/kommundata/deso-cli/internal/export"
	"github.com/kommundata/deso-cli/internal/model"
)

var (
	analyzeYears   []int
	analyzeMode    string
	analyzeRefMean float64
	analyzeRefStd  float64
	analyzeLang    string
	analyzeOutDir  string
	analyzeXLSX    bool
	analyzePerYear bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the full fetch-merge-classify pipeline",
	Long:  "Fetches all three indicators for the requested years, computes the composite socioeconomic index for every DeSO area, classifies the areas into area types, persists the run and writes CSV output.",
	RunE: func(cmd *cobra.Command, args []string) error {
		applyAnalyzeFlags(cmd)
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		years := analyzeYears
		if len(years) == 0 {
			years = defaultYears()
		}

		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		opts, err := classifyOptions()
		if err != nil {
			return err
		}

		run, err := env.Store.CreateRun(ctx, years, cfg.Classify.Mode)
		if err != nil {
			return err
		}
		zap.L().Info("run started", zap.String("run_id", run.ID), zap.Ints("years", years))

		classified, err := runPipeline(ctx, env, years, opts)
		if err != nil {
			if failErr := env.Store.FailRun(ctx, run.ID, err); failErr != nil {
				zap.L().Error("record run failure", zap.Error(failErr))
			}
			return err
		}

		if err := env.Store.SaveClassifications(ctx, run.ID, classified); err != nil {
			if failErr := env.Store.FailRun(ctx, run.ID, err); failErr != nil {
				zap.L().Error("record run failure", zap.Error(failErr))
			}
			return err
		}
		if err := env.Store.CompleteRun(ctx, run.ID, len(classified)); err != nil {
			return err
		}

		if err := writeOutput(classified); err != nil {
			return err
		}

		printDistribution(cmd, classified)
		cmd.Printf("run %s: %d areas classified\n", run.ID, len(classified))
		return nil
	},
}

// runPipeline computes and classifies the composite index for the years.
func runPipeline(ctx context.Context, env *env, years []int, opts classify.Options) ([]model.ClassifiedRecord, error) {
	indexRecords, err := env.Calculator.Calculate(ctx, years)
	if err != nil {
		return nil, err
	}
	return env.Classifier.Classify(indexRecords, opts)
}

func writeOutput(classified []model.ClassifiedRecord) error {
	if analyzePerYear {
		if _, err := export.WriteCSVPerYear(analyzeOutDir, classified); err != nil {
			return err
		}
	} else {
		path := filepath.Join(analyzeOutDir, "deso_classifications.csv")
		if err := export.WriteCSV(path, classified); err != nil {
			return err
		}
	}

	if analyzeXLSX {
		path := filepath.Join(analyzeOutDir, "deso_classifications.xlsx")
		if err := export.WriteXLSX(path, classified); err != nil {
			return err
		}
	}
	return nil
}

func printDistribution(cmd *cobra.Command, classified []model.ClassifiedRecord) {
	for _, line := range export.Distribution(classified) {
		cmd.Printf("%d  type %d  %-55s %5d areas (%5.1f%%)\n",
			line.Year, line.AreaType, line.Description, line.Areas, line.SharePct)
	}
}

// applyAnalyzeFlags copies explicitly set flags over the loaded config so
// flags beat both file and environment.
func applyAnalyzeFlags(cmd *cobra.Command) {
	if cmd.Flags().Changed("mode") {
		cfg.Classify.Mode = analyzeMode
	}
	if cmd.Flags().Changed("ref-mean") {
		cfg.Classify.ReferenceMean = analyzeRefMean
	}
	if cmd.Flags().Changed("ref-std") {
		cfg.Classify.ReferenceStd = analyzeRefStd
	}
	if cmd.Flags().Changed("lang") {
		cfg.Classify.Language = analyzeLang
	}
	if !cmd.Flags().Changed("out") && cfg.Export.Dir != "" {
		analyzeOutDir = cfg.Export.Dir
	}
	if !cmd.Flags().Changed("per-year") {
		analyzePerYear = cfg.Export.PerYear
	}
	if !cmd.Flags().Changed("xlsx") {
		analyzeXLSX = cfg.Export.XLSX
	}
}

func init() {
	analyzeCmd.Flags().IntSliceVar(&analyzeYears, "years", nil, "years to analyze (default: latest published year)")
	analyzeCmd.Flags().StringVar(&analyzeMode, "mode", "self", "classification mode: self or reference")
	analyzeCmd.Flags().Float64Var(&analyzeRefMean, "ref-mean", 0, "reference mean (reference mode)")
	analyzeCmd.Flags().Float64Var(&analyzeRefStd, "ref-std", 0, "reference standard deviation (reference mode)")
	analyzeCmd.Flags().StringVar(&analyzeLang, "lang", "sv", "area type description language: sv or en")
	analyzeCmd.Flags().StringVar(&analyzeOutDir, "out", ".", "output directory")
	analyzeCmd.Flags().BoolVar(&analyzeXLSX, "xlsx", false, "also write an XLSX workbook")
	analyzeCmd.Flags().BoolVar(&analyzePerYear, "per-year", true, "write one CSV per year")
	rootCmd.AddCommand(analyzeCmd)
}
