package pxweb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"Utbildningsnivå": "utbildningsniva",
		"Kön":             "kon",
		"Ålder":           "alder",
		"år":              "ar",
		"Antal arbetslösa": "antal_arbetslosa",
		"Antal sysselsatta och arbetslösa (arbetskraften)": "antal_sysselsatta_och_arbetslosa_arbetskraften",
		"Andel personer med låg ekonomisk standard, %":     "andel_personer_med_lag_ekonomisk_standard",
		"Befolkning 25-64 år": "befolkning_25_64_ar",
		"  spaced  out  ":     "spaced_out",
		"ÅÄÖ":                 "aao",
		"":                    "",
	}

	for label, want := range cases {
		assert.Equal(t, want, CleanName(label), "label %q", label)
	}
}

func TestUniqueName(t *testing.T) {
	t.Parallel()

	used := map[string]bool{}
	assert.Equal(t, "befolkning", uniqueName("befolkning", used))
	assert.Equal(t, "befolkning_2", uniqueName("befolkning", used))
	assert.Equal(t, "befolkning_3", uniqueName("befolkning", used))
	assert.Equal(t, "col", uniqueName("", used))
}
