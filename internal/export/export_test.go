package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/kommundata/deso-cli/internal/model"
)

func classifiedRec(code string, year int, areaType model.AreaType) model.ClassifiedRecord {
	return model.ClassifiedRecord{
		CompositeIndexRecord: model.CompositeIndexRecord{
			AreaCode:               code,
			AreaName:               "Area " + code,
			Year:                   year,
			EducationPct:           10.5,
			LowEconomicStandardPct: 20.5,
			UnemploymentPct:        30.5,
			Index:                  20.5,
		},
		AreaType:            areaType,
		AreaTypeDescription: areaType.Description("sv"),
		Municipality:        "Stockholm",
		County:              "Stockholms län",
	}
}

func TestEncodeCSV(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	records := []model.ClassifiedRecord{
		classifiedRec("0180C1010", 2022, model.AreaTypeMixed),
		classifiedRec("0180C1020", 2022, model.AreaTypeGood),
	}
	require.NoError(t, EncodeCSV(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{
		"deso", "area_name", "year",
		"education_percentage", "low_economic_standard_percentage", "unemployment_rate_percentage",
		"socioeconomic_index", "area_type", "area_type_description", "kommun", "lan",
	}, rows[0])
	assert.Equal(t, "0180C1010", rows[1][0])
	assert.Equal(t, "2022", rows[1][2])
	assert.Equal(t, "20.5", rows[1][6])
	assert.Equal(t, "3", rows[1][7])
	assert.Equal(t, "Socioekonomiskt blandade områden", rows[1][8])
	assert.Equal(t, "4", rows[2][7])
}

func TestEncodeCSV_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, EncodeCSV(&buf, nil))
	assert.Empty(t, buf.String())
}

func TestWriteCSVPerYear(t *testing.T) {
	dir := t.TempDir()

	records := []model.ClassifiedRecord{
		classifiedRec("0180C1010", 2022, model.AreaTypeMixed),
		classifiedRec("0180C1010", 2023, model.AreaTypeGood),
		classifiedRec("0180C1020", 2022, model.AreaTypeGood),
	}
	paths, err := WriteCSVPerYear(dir, records)
	require.NoError(t, err)

	require.Equal(t, []string{
		filepath.Join(dir, "deso_classifications_2022.csv"),
		filepath.Join(dir, "deso_classifications_2023.csv"),
	}, paths)

	data, err := os.ReadFile(paths[0])
	require.NoError(t, err)
	rows, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 3) // header + two 2022 areas

	data, err = os.ReadFile(paths[1])
	require.NoError(t, err)
	rows, err = csv.NewReader(bytes.NewReader(data)).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")

	records := []model.ClassifiedRecord{
		classifiedRec("0180C1010", 2022, model.AreaTypeMixed),
		classifiedRec("0180C1020", 2022, model.AreaTypeMixed),
		classifiedRec("0180C1010", 2023, model.AreaTypeVeryGood),
	}
	require.NoError(t, WriteXLSX(path, records))

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	require.Len(t, f.Sheets, 3) // 2022, 2023, Summary

	sheet2022, ok := f.Sheet["2022"]
	require.True(t, ok)
	require.Len(t, sheet2022.Rows, 3)
	assert.Equal(t, "deso", sheet2022.Rows[0].Cells[0].String())
	assert.Equal(t, "0180C1010", sheet2022.Rows[1].Cells[0].String())

	summary, ok := f.Sheet["Summary"]
	require.True(t, ok)
	// header + one line per (year, type): 2022/Mixed, 2023/VeryGood.
	require.Len(t, summary.Rows, 3)
}

func TestDistribution(t *testing.T) {
	t.Parallel()

	records := []model.ClassifiedRecord{
		classifiedRec("0180C1010", 2022, model.AreaTypeMixed),
		classifiedRec("0180C1020", 2022, model.AreaTypeMixed),
		classifiedRec("0180C1030", 2022, model.AreaTypeChallenges),
		classifiedRec("0180C1040", 2022, model.AreaTypeMixed),
		classifiedRec("0180C1010", 2023, model.AreaTypeGood),
	}

	lines := Distribution(records)
	require.Len(t, lines, 3)

	assert.Equal(t, 2022, lines[0].Year)
	assert.Equal(t, model.AreaTypeChallenges, lines[0].AreaType)
	assert.Equal(t, 1, lines[0].Areas)
	assert.InDelta(t, 25.0, lines[0].SharePct, 1e-9)

	assert.Equal(t, model.AreaTypeMixed, lines[1].AreaType)
	assert.Equal(t, 3, lines[1].Areas)
	assert.InDelta(t, 75.0, lines[1].SharePct, 1e-9)

	assert.Equal(t, 2023, lines[2].Year)
	assert.Equal(t, model.AreaTypeGood, lines[2].AreaType)
	assert.InDelta(t, 100.0, lines[2].SharePct, 1e-9)
}

func TestDistribution_Empty(t *testing.T) {
	t.Parallel()
	assert.Empty(t, Distribution(nil))
}
