package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/kommundata/deso-cli/internal/geo"
)

var geoShapefile string

var geoCmd = &cobra.Command{
	Use:   "geo",
	Short: "Work with DeSO boundary data",
}

var geoStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize a DeSO boundary shapefile",
	Long:  "Loads the national DeSO boundary shapefile and prints area counts and total land area per county.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := geoShapefile
		if path == "" {
			path = cfg.Geo.ShapefilePath
		}
		if path == "" {
			return eris.New("no shapefile given (use --shapefile or geo.shapefile_path)")
		}

		shapes, err := geo.LoadShapes(path)
		if err != nil {
			return err
		}

		formatGeoStats(os.Stdout, shapes)
		return nil
	},
}

type countyStats struct {
	code    string
	name    string
	areas   int
	areaKm2 float64
}

func formatGeoStats(out io.Writer, shapes map[string]geo.Shape) {
	lookup := geo.Lookup{}

	byCounty := make(map[string]*countyStats)
	var total countyStats
	for code, s := range shapes {
		if len(code) < 2 {
			continue
		}
		prefix := code[:2]
		cs, ok := byCounty[prefix]
		if !ok {
			cs = &countyStats{code: prefix, name: lookup.County(prefix)}
			byCounty[prefix] = cs
		}
		cs.areas++
		cs.areaKm2 += s.AreaKm2
		total.areas++
		total.areaKm2 += s.AreaKm2
	}

	counties := make([]*countyStats, 0, len(byCounty))
	for _, cs := range byCounty {
		counties = append(counties, cs)
	}
	sort.Slice(counties, func(i, j int) bool { return counties[i].code < counties[j].code })

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "LÄN\tNAME\tAREAS\tKM2")
	for _, cs := range counties {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%.1f\n", cs.code, cs.name, cs.areas, cs.areaKm2)
	}
	_, _ = fmt.Fprintf(w, "\tTOTAL\t%d\t%.1f\n", total.areas, total.areaKm2)
	_ = w.Flush()
}

func init() {
	geoStatsCmd.Flags().StringVar(&geoShapefile, "shapefile", "", "path to the DeSO boundary shapefile")
	geoCmd.AddCommand(geoStatsCmd)
	rootCmd.AddCommand(geoCmd)
}
