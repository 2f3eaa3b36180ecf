package cmd

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// bibliographicCodes maps the ISO 639-2/T codes produced by
// language.Base.ISO3 to the bibliographic (639-2/B) variant the search
// API expects for the languages where the two differ. Greek is absent:
// the service uses the terminological "ell".
var bibliographicCodes = map[string]string{
	"bod": "tib",
	"ces": "cze",
	"cym": "wel",
	"deu": "ger",
	"eus": "baq",
	"fas": "per",
	"fra": "fre",
	"hye": "arm",
	"isl": "ice",
	"kat": "geo",
	"mkd": "mac",
	"mri": "mao",
	"msa": "may",
	"mya": "bur",
	"nld": "dut",
	"ron": "rum",
	"slk": "slo",
	"sqi": "alb",
	"zho": "chi",
}

// normalizeLanguage turns a user-supplied language identifier into the
// three-letter code the search API expects. Three-letter inputs are
// passed through as-is so service-specific codes (e.g. "pob") keep
// working; anything else goes through BCP 47 parsing and the
// bibliographic rewrite.
func normalizeLanguage(code string) (string, error) {
	code = strings.TrimSpace(code)
	if len(code) == 3 {
		return strings.ToLower(code), nil
	}

	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("unrecognized language %q: %w", code, err)
	}
	base, _ := tag.Base()
	iso3 := base.ISO3()
	if b, ok := bibliographicCodes[iso3]; ok {
		return b, nil
	}
	return iso3, nil
}
