package inventory

import (
	"strings"

	"golang.org/x/text/cases"
)

// NormalizeName returns the key used to match a finished good to its shell:
// surrounding space trimmed, inner runs of whitespace collapsed, case folded.
// "  Sofa   BELLA " and "sofa bella" share a key.
func NormalizeName(name string) string {
	// A Caser keeps state; one per call.
	return cases.Fold().String(strings.Join(strings.Fields(name), " "))
}

func containsFold(s, substr string) bool {
	return strings.Contains(NormalizeName(s), NormalizeName(substr))
}
