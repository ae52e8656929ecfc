// Package readability decides whether extracted text is usable prose or
// noise such as binary leakage or an empty scan.
package readability

import "unicode"

// DefaultThreshold is the alphanumeric fraction a text must exceed.
const DefaultThreshold = 0.7

// Ratio returns the fraction of non-whitespace runes that are ASCII letters
// or digits. ok is false when the text has no non-whitespace runes.
func Ratio(text string) (ratio float64, ok bool) {
	var total, alnum int
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if isASCIIAlnum(r) {
			alnum++
		}
	}
	if total == 0 {
		return 0, false
	}
	return float64(alnum) / float64(total), true
}

// IsReadable reports whether the alphanumeric fraction of text, ignoring
// whitespace, is strictly greater than threshold. Empty text is never
// readable.
func IsReadable(text string, threshold float64) bool {
	ratio, ok := Ratio(text)
	if !ok {
		return false
	}
	return ratio > threshold
}

func isASCIIAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
