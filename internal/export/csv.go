// Package export writes classification results to CSV and XLSX files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/kommundata/deso-cli/internal/model"
)

// EncodeCSV writes records as CSV to w, header first. Column names come
// from the csv struct tags on ClassifiedRecord.
func EncodeCSV(w io.Writer, records []model.ClassifiedRecord) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	for i := range records {
		if err := enc.Encode(records[i]); err != nil {
			return eris.Wrap(err, "export: encode csv row")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "export: flush csv")
	}
	return nil
}

// WriteCSV writes all records to a single CSV file at path.
func WriteCSV(path string, records []model.ClassifiedRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	if err := EncodeCSV(f, records); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return eris.Wrapf(err, "export: close %s", path)
	}

	zap.L().Info("wrote csv", zap.String("path", path), zap.Int("rows", len(records)))
	return nil
}

// WriteCSVPerYear splits records by year and writes one
// deso_classifications_<year>.csv per year under dir. It returns the
// paths written, in ascending year order.
func WriteCSVPerYear(dir string, records []model.ClassifiedRecord) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "export: create dir %s", dir)
	}

	byYear := splitByYear(records)
	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Ints(years)

	paths := make([]string, 0, len(years))
	for _, year := range years {
		path := filepath.Join(dir, fmt.Sprintf("deso_classifications_%d.csv", year))
		if err := WriteCSV(path, byYear[year]); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func splitByYear(records []model.ClassifiedRecord) map[int][]model.ClassifiedRecord {
	byYear := make(map[int][]model.ClassifiedRecord)
	for _, r := range records {
		byYear[r.Year] = append(byYear[r.Year], r)
	}
	return byYear
}
