package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLanguage(t *testing.T) {
	cases := map[string]string{
		"en":  "eng",
		"eng": "eng",
		"EN":  "eng",
		"el":  "ell",
		"pob": "pob", // service-specific code passed through
		// bibliographic variants, not the 639-2/T codes Base.ISO3 yields
		"de": "ger",
		"fr": "fre",
		"nl": "dut",
		"cs": "cze",
		"zh": "chi",
		"fa": "per",
		"ro": "rum",
		"sk": "slo",
		// three-letter inputs bypass parsing and the rewrite
		"deu": "deu",
	}
	for in, want := range cases {
		got, err := normalizeLanguage(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}
}

func TestNormalizeLanguageRejectsGarbage(t *testing.T) {
	_, err := normalizeLanguage("!!")
	assert.Error(t, err)
}
