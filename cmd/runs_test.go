package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kommundata/deso-cli/internal/model"
)

func TestFormatRunsList(t *testing.T) {
	created := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	runs := []model.Run{
		{
			ID:        "a1b2c3d4-0000-0000-0000-000000000000",
			Years:     []int{2022, 2023},
			Mode:      "self",
			Status:    model.RunStatusComplete,
			Areas:     5984,
			CreatedAt: created,
			UpdatedAt: created.Add(90 * time.Second),
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	out := buf.String()
	assert.Contains(t, out, "a1b2c3d4")
	assert.NotContains(t, out, "a1b2c3d4-0000")
	assert.Contains(t, out, "2022,2023")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "5984")
	assert.Contains(t, out, "1m30s")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "short", truncateID("short"))
	assert.Equal(t, "12345678", truncateID("1234567890"))
}

func TestYearsLabel(t *testing.T) {
	assert.Equal(t, "", yearsLabel(nil))
	assert.Equal(t, "2022", yearsLabel([]int{2022}))
	assert.Equal(t, "2020,2021,2022", yearsLabel([]int{2020, 2021, 2022}))
}
