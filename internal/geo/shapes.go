package geo

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"go.uber.org/zap"
)

// sweref99TM is the projected CRS SCB publishes DeSO boundaries in.
// Coordinates are meters, which keeps area computation a plain shoelace.
const sweref99TM = 3006

// Shape summarizes one DeSO boundary polygon.
type Shape struct {
	Code     string
	AreaKm2  float64
	Centroid [2]float64 // X (easting), Y (northing) in the source CRS
	WKB      []byte     // EWKB-encoded MultiPolygon, SRID 3006
}

// LoadShapes reads a DeSO boundary shapefile and returns shapes keyed by
// DeSO code. Records without a valid code or polygon are skipped.
func LoadShapes(path string) (map[string]Shape, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "geo: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	codeIdx := desoFieldIndex(reader.Fields())
	if codeIdx < 0 {
		return nil, eris.New("geo: shapefile has no deso code field")
	}

	shapes := make(map[string]Shape)
	var skipped int
	for reader.Next() {
		n, shape := reader.Shape()

		code := strings.TrimSpace(strings.TrimRight(reader.ReadAttribute(n, codeIdx), "\x00"))
		poly, ok := shape.(*shp.Polygon)
		if code == "" || !ok {
			skipped++
			continue
		}

		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}

		wkb, err := ewkb.Marshal(mp, ewkb.NDR)
		if err != nil {
			return nil, eris.Wrapf(err, "geo: encode geometry for %s", code)
		}

		area, cx, cy := polygonStats(poly)
		shapes[code] = Shape{
			Code:     code,
			AreaKm2:  area / 1e6,
			Centroid: [2]float64{cx, cy},
			WKB:      wkb,
		}
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrap(err, "geo: read shapefile")
	}

	if skipped > 0 {
		zap.L().Warn("skipped shapefile records", zap.Int("skipped", skipped), zap.String("path", path))
	}
	zap.L().Info("loaded DeSO boundaries", zap.Int("areas", len(shapes)), zap.String("path", path))
	return shapes, nil
}

// desoFieldIndex finds the attribute field holding the DeSO code. SCB has
// shipped it as "Deso", "DESO" and "deso" across vintages.
func desoFieldIndex(fields []shp.Field) int {
	for i, f := range fields {
		name := strings.ToLower(strings.TrimRight(f.String(), "\x00"))
		if name == "deso" || name == "deso_kod" {
			return i
		}
	}
	return -1
}

// polygonToMultiPolygon converts a shapefile polygon to a go-geom
// MultiPolygon with one single-ring polygon per part. Ring nesting
// (holes) is not reconstructed; area computation accounts for it via
// ring orientation instead.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY).SetSRID(sweref99TM)
	for i := int32(0); i < p.NumParts; i++ {
		start, end := partRange(p, i)
		flat := make([]float64, 0, 2*(end-start))
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		ring := geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)})
		if err := mp.Push(ring); err != nil {
			zap.L().Debug("geo: skipping malformed polygon part", zap.Int32("part", i), zap.Error(err))
		}
	}
	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// polygonStats computes total area (m²) and an area-weighted centroid
// using the shoelace formula. Shapefile outer rings and holes have
// opposite orientations, so their signed areas cancel correctly.
func polygonStats(p *shp.Polygon) (area, cx, cy float64) {
	var signedArea, sx, sy float64
	for i := int32(0); i < p.NumParts; i++ {
		start, end := partRange(p, i)
		for j := start; j < end; j++ {
			k := j + 1
			if k == end {
				k = start
			}
			cross := p.Points[j].X*p.Points[k].Y - p.Points[k].X*p.Points[j].Y
			signedArea += cross
			sx += (p.Points[j].X + p.Points[k].X) * cross
			sy += (p.Points[j].Y + p.Points[k].Y) * cross
		}
	}
	signedArea /= 2
	if signedArea == 0 {
		return 0, 0, 0
	}
	cx = sx / (6 * signedArea)
	cy = sy / (6 * signedArea)
	if signedArea < 0 {
		signedArea = -signedArea
	}
	return signedArea, cx, cy
}

func partRange(p *shp.Polygon, i int32) (int32, int32) {
	start := p.Parts[i]
	end := int32(len(p.Points))
	if i+1 < p.NumParts {
		end = p.Parts[i+1]
	}
	return start, end
}
