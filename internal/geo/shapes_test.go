package geo

import (
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTestShapefile creates a shapefile with a single 1 km² square in
// projected meter coordinates, attributed with a DeSO code.
func writeTestShapefile(t *testing.T, field string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "deso.shp")
	w, err := shp.Create(path, shp.POLYGON)
	require.NoError(t, err)

	require.NoError(t, w.SetFields([]shp.Field{shp.StringField(field, 10)}))

	// Clockwise outer ring, as the shapefile spec requires.
	poly := &shp.Polygon{
		Box:       shp.Box{MinX: 0, MinY: 0, MaxX: 1000, MaxY: 1000},
		NumParts:  1,
		NumPoints: 5,
		Parts:     []int32{0},
		Points: []shp.Point{
			{X: 0, Y: 0}, {X: 0, Y: 1000}, {X: 1000, Y: 1000}, {X: 1000, Y: 0}, {X: 0, Y: 0},
		},
	}
	n := w.Write(poly)
	w.WriteAttribute(int(n), 0, "0114A0010")
	w.Close()
	return path
}

func TestLoadShapes(t *testing.T) {
	path := writeTestShapefile(t, "deso")

	shapes, err := LoadShapes(path)
	require.NoError(t, err)
	require.Len(t, shapes, 1)

	s, ok := shapes["0114A0010"]
	require.True(t, ok)
	assert.InDelta(t, 1.0, s.AreaKm2, 1e-9)
	assert.InDelta(t, 500.0, s.Centroid[0], 1e-6)
	assert.InDelta(t, 500.0, s.Centroid[1], 1e-6)
	assert.NotEmpty(t, s.WKB)
}

func TestLoadShapes_FieldNameVariants(t *testing.T) {
	for _, field := range []string{"Deso", "DESO", "deso_kod"} {
		path := writeTestShapefile(t, field)
		shapes, err := LoadShapes(path)
		require.NoError(t, err, "field %q", field)
		assert.Len(t, shapes, 1, "field %q", field)
	}
}

func TestLoadShapes_MissingCodeField(t *testing.T) {
	path := writeTestShapefile(t, "name")

	_, err := LoadShapes(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no deso code field")
}

func TestLoadShapes_MissingFile(t *testing.T) {
	_, err := LoadShapes(filepath.Join(t.TempDir(), "nope.shp"))
	assert.Error(t, err)
}

func TestPolygonStats_HoleSubtracted(t *testing.T) {
	t.Parallel()

	// 1000x1000 outer ring (clockwise) with a 100x100 hole
	// (counter-clockwise): 1.0 km² - 0.01 km².
	poly := &shp.Polygon{
		NumParts:  2,
		NumPoints: 10,
		Parts:     []int32{0, 5},
		Points: []shp.Point{
			{X: 0, Y: 0}, {X: 0, Y: 1000}, {X: 1000, Y: 1000}, {X: 1000, Y: 0}, {X: 0, Y: 0},
			{X: 400, Y: 400}, {X: 500, Y: 400}, {X: 500, Y: 500}, {X: 400, Y: 500}, {X: 400, Y: 400},
		},
	}

	area, _, _ := polygonStats(poly)
	assert.InDelta(t, 990000.0, area, 1e-6)
}
