package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kommundata/deso-cli/internal/geo"
)

func TestFormatGeoStats(t *testing.T) {
	shapes := map[string]geo.Shape{
		"0114A0010": {Code: "0114A0010", AreaKm2: 1.5},
		"0114A0020": {Code: "0114A0020", AreaKm2: 2.5},
		"1280C1050": {Code: "1280C1050", AreaKm2: 0.5},
	}

	var buf bytes.Buffer
	formatGeoStats(&buf, shapes)

	out := buf.String()
	assert.Contains(t, out, "Stockholms län")
	assert.Contains(t, out, "Skåne län")
	assert.Contains(t, out, "4.0")
	assert.Contains(t, out, "TOTAL")
	assert.Contains(t, out, "4.5")
}
