package pxweb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// educationFixture is a minimal JSON-stat 2.0 dataset in the shape TAB5956
// returns: region x education level x contents x time.
const educationFixture = `{
	"version": "2.0",
	"class": "dataset",
	"label": "Befolkning efter region, utbildningsnivå och år",
	"id": ["Region", "UtbildningsNiva", "ContentsCode", "Tid"],
	"size": [2, 2, 1, 1],
	"dimension": {
		"Region": {
			"label": "region",
			"category": {
				"index": {"0114A0010": 0, "0180C1010": 1},
				"label": {"0114A0010": "Upplands Väsby centralort, norra", "0180C1010": "Rinkeby"}
			}
		},
		"UtbildningsNiva": {
			"label": "Utbildningsnivå",
			"category": {
				"index": {"1": 0, "2": 1},
				"label": {"1": "förgymnasial utbildning", "2": "gymnasial utbildning"}
			}
		},
		"ContentsCode": {
			"label": "tabellinnehåll",
			"category": {
				"index": {"000005MO": 0},
				"label": {"000005MO": "Befolkning"}
			}
		},
		"Tid": {
			"label": "år",
			"category": {
				"index": {"2023": 0},
				"label": {"2023": "2023"}
			}
		}
	},
	"value": [120, 880, 450, 550],
	"role": {"time": ["Tid"], "metric": ["ContentsCode"], "geo": ["Region"]}
}`

func TestParseDataset_Flatten(t *testing.T) {
	t.Parallel()

	table, err := ParseDataset([]byte(educationFixture))
	require.NoError(t, err)

	assert.Equal(t, []string{"region_code", "region", "utbildningsniva", "ar", "befolkning"}, table.Columns)
	assert.Equal(t, []string{"befolkning"}, table.MeasureColumns)
	assert.Equal(t, "ar", table.TimeColumn)
	require.Len(t, table.Rows, 4)

	// Region varies slowest, education level fastest within a region.
	first := table.Rows[0]
	assert.Equal(t, "0114A0010", first.String(RegionCodeColumn))
	assert.Equal(t, "Upplands Väsby centralort, norra", first.String(RegionColumn))
	assert.Equal(t, "förgymnasial utbildning", first.String("utbildningsniva"))
	assert.Equal(t, "2023", first.String("ar"))
	v, ok := first.Float("befolkning")
	require.True(t, ok)
	assert.Equal(t, 120.0, v)

	last := table.Rows[3]
	assert.Equal(t, "0180C1010", last.String(RegionCodeColumn))
	assert.Equal(t, "gymnasial utbildning", last.String("utbildningsniva"))
	v, ok = last.Float("befolkning")
	require.True(t, ok)
	assert.Equal(t, 550.0, v)
}

func TestParseDataset_IndexAsArray(t *testing.T) {
	t.Parallel()

	doc := `{
		"class": "dataset",
		"id": ["Region", "ContentsCode", "Tid"],
		"size": [1, 1, 2],
		"dimension": {
			"Region": {"label": "region", "category": {"index": ["0114A0010"], "label": {"0114A0010": "Upplands Väsby"}}},
			"ContentsCode": {"label": "innehåll", "category": {"index": ["X1"], "label": {"X1": "Andel"}}},
			"Tid": {"label": "år", "category": {"index": ["2022", "2023"], "label": {"2022": "2022", "2023": "2023"}}}
		},
		"value": [10.5, 11.25]
	}`

	table, err := ParseDataset([]byte(doc))
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "2022", table.Rows[0].String("ar"))
	assert.Equal(t, "2023", table.Rows[1].String("ar"))
	v, ok := table.Rows[1].Float("andel")
	require.True(t, ok)
	assert.Equal(t, 11.25, v)
}

func TestParseDataset_NullValues(t *testing.T) {
	t.Parallel()

	doc := `{
		"class": "dataset",
		"id": ["Region", "ContentsCode", "Tid"],
		"size": [1, 2, 1],
		"dimension": {
			"Region": {"label": "region", "category": {"index": {"0114A0010": 0}, "label": {"0114A0010": "x"}}},
			"ContentsCode": {"label": "innehåll", "category": {"index": {"A": 0, "B": 1}, "label": {"A": "Antal arbetslösa", "B": "Arbetskraften"}}},
			"Tid": {"label": "år", "category": {"index": {"2023": 0}, "label": {"2023": "2023"}}}
		},
		"value": [42, null]
	}`

	table, err := ParseDataset([]byte(doc))
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)

	v, ok := table.Rows[0].Float("antal_arbetslosa")
	require.True(t, ok)
	assert.Equal(t, 42.0, v)

	_, ok = table.Rows[0].Float("arbetskraften")
	assert.False(t, ok, "null value should not populate the measure column")
}

func TestParseDataset_EmptyValueArray(t *testing.T) {
	t.Parallel()

	doc := `{
		"class": "dataset",
		"id": ["Region", "ContentsCode", "Tid"],
		"size": [0, 1, 1],
		"dimension": {
			"Region": {"label": "region", "category": {"index": {}, "label": {}}},
			"ContentsCode": {"label": "innehåll", "category": {"index": {"A": 0}, "label": {"A": "Andel"}}},
			"Tid": {"label": "år", "category": {"index": {"2023": 0}, "label": {"2023": "2023"}}}
		},
		"value": []
	}`

	table, err := ParseDataset([]byte(doc))
	require.NoError(t, err)
	assert.Empty(t, table.Rows)
	assert.Equal(t, []string{"region_code", "region", "ar", "andel"}, table.Columns)
}

func TestParseDataset_Errors(t *testing.T) {
	t.Parallel()

	_, err := ParseDataset([]byte(`{not json`))
	assert.Error(t, err)

	_, err = ParseDataset([]byte(`{"class": "collection"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected response class")

	_, err = ParseDataset([]byte(`{"class": "dataset", "id": ["A"], "size": [1, 2]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id/size mismatch")

	noRegion := `{
		"class": "dataset",
		"id": ["ContentsCode", "Tid"],
		"size": [1, 1],
		"dimension": {
			"ContentsCode": {"label": "innehåll", "category": {"index": {"A": 0}, "label": {"A": "Andel"}}},
			"Tid": {"label": "år", "category": {"index": {"2023": 0}, "label": {"2023": "2023"}}}
		},
		"value": [1]
	}`
	_, err = ParseDataset([]byte(noRegion))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no region dimension")
}

func TestIsDeSOCode(t *testing.T) {
	t.Parallel()

	assert.True(t, IsDeSOCode("0114A0010"))
	assert.True(t, IsDeSOCode("2584C1090"))
	assert.False(t, IsDeSOCode("0114"))  // kommun
	assert.False(t, IsDeSOCode("01"))    // län
	assert.False(t, IsDeSOCode("0114D0010"))
	assert.False(t, IsDeSOCode("0114A001"))
	assert.False(t, IsDeSOCode(""))
}
