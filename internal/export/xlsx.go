package export

import (
	"fmt"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/kommundata/deso-cli/internal/model"
)

// xlsxHeader matches the CSV column order.
var xlsxHeader = []string{
	"deso", "area_name", "year",
	"education_percentage", "low_economic_standard_percentage", "unemployment_rate_percentage",
	"socioeconomic_index", "area_type", "area_type_description", "kommun", "lan",
}

// WriteXLSX writes the records to an XLSX workbook at path, one sheet
// per year plus a summary sheet with the area type distribution.
func WriteXLSX(path string, records []model.ClassifiedRecord) error {
	f := xlsx.NewFile()

	byYear := splitByYear(records)
	years := make([]int, 0, len(byYear))
	for year := range byYear {
		years = append(years, year)
	}
	sort.Ints(years)

	for _, year := range years {
		sheet, err := f.AddSheet(fmt.Sprintf("%d", year))
		if err != nil {
			return eris.Wrapf(err, "export: add sheet %d", year)
		}
		writeSheet(sheet, byYear[year])
	}

	if err := writeSummarySheet(f, records); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}

	zap.L().Info("wrote xlsx", zap.String("path", path), zap.Int("rows", len(records)), zap.Int("sheets", len(years)+1))
	return nil
}

func writeSheet(sheet *xlsx.Sheet, records []model.ClassifiedRecord) {
	header := sheet.AddRow()
	for _, name := range xlsxHeader {
		header.AddCell().SetString(name)
	}

	for _, r := range records {
		row := sheet.AddRow()
		row.AddCell().SetString(r.AreaCode)
		row.AddCell().SetString(r.AreaName)
		row.AddCell().SetInt(r.Year)
		row.AddCell().SetFloat(r.EducationPct)
		row.AddCell().SetFloat(r.LowEconomicStandardPct)
		row.AddCell().SetFloat(r.UnemploymentPct)
		row.AddCell().SetFloat(r.Index)
		row.AddCell().SetInt(int(r.AreaType))
		row.AddCell().SetString(r.AreaTypeDescription)
		row.AddCell().SetString(r.Municipality)
		row.AddCell().SetString(r.County)
	}
}

func writeSummarySheet(f *xlsx.File, records []model.ClassifiedRecord) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}

	header := sheet.AddRow()
	for _, name := range []string{"year", "area_type", "description", "areas", "share_percentage"} {
		header.AddCell().SetString(name)
	}

	for _, line := range Distribution(records) {
		row := sheet.AddRow()
		row.AddCell().SetInt(line.Year)
		row.AddCell().SetInt(int(line.AreaType))
		row.AddCell().SetString(line.Description)
		row.AddCell().SetInt(line.Areas)
		row.AddCell().SetFloat(line.SharePct)
	}
	return nil
}
