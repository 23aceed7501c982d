package constants

import (
	"strings"
)

// Disposition records which fallback step produced a resolved image.
type Disposition string

const (
	FromInlineData         Disposition = "from-inline-data"
	FromObjectBytes        Disposition = "from-object-bytes"
	FromExtractedPDFImage  Disposition = "from-extracted-pdf-image"
	SynthesizedPlaceholder Disposition = "synthesized-placeholder"
)

var allDispositions = []Disposition{
	FromInlineData,
	FromObjectBytes,
	FromExtractedPDFImage,
	SynthesizedPlaceholder,
}

func AsStringSlice() []string {
	result := make([]string, len(allDispositions))
	for i, d := range allDispositions {
		result[i] = string(d)
	}
	return result
}

// ParseDisposition maps a stored label back to its Disposition.
func ParseDisposition(input string) (Disposition, bool) {
	normalized := strings.ToLower(strings.TrimSpace(input))
	for _, d := range allDispositions {
		if normalized == string(d) {
			return d, true
		}
	}
	return "", false
}

// IsPlaceholder reports whether no real image bytes backed the resolution.
func (d Disposition) IsPlaceholder() bool {
	return d == SynthesizedPlaceholder
}
