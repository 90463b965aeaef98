package parser

import (
	"strings"

	"github.com/aluiziolira/go-scrape-certs/models"
)

// Vocabulary maps badge labels to certification codes. It is closed: a label
// missing from it is an error, so it must track the site's badge set.
type Vocabulary map[string]models.Certification

// DefaultVocabulary holds the badge labels the listing is known to use.
func DefaultVocabulary() Vocabulary {
	v := Vocabulary{}
	for _, c := range models.Certifications {
		code := string(c)
		v.Add(code, c)
		v.Add(code+" Badge", c)
		v.Add(code+" Certified", c)
		v.Add(code+" Certification", c)
	}
	v.Add("California Student Privacy Certified", models.CSPC)
	v.Add("iKeepSafe FERPA Privacy Certification", models.FERPA)
	v.Add("iKeepSafe COPPA Safe Harbor Certification", models.COPPA)
	return v
}

// Add registers label for code.
func (v Vocabulary) Add(label string, code models.Certification) {
	v[normalizeLabel(label)] = code
}

// Lookup resolves a badge label, ignoring case and spacing differences.
func (v Vocabulary) Lookup(label string) (models.Certification, bool) {
	code, ok := v[normalizeLabel(label)]
	return code, ok
}

func normalizeLabel(label string) string {
	return strings.ToLower(strings.Join(strings.Fields(label), " "))
}
