// Package language detects the language of free text and translates it so
// that job and applicant texts can be compared in one language.
package language

import (
	"strings"
	"unicode/utf8"

	"github.com/RadhiFadlillah/whatlanggo"
)

// Unknown is returned when the language of a text cannot be determined.
const Unknown = "unknown"

const (
	defaultMinConfidence = 0.3
	minDetectableRunes   = 3
)

// Detector reports the dominant language of a text as an ISO 639-1 code,
// or Unknown. It never fails.
type Detector interface {
	Detect(text string) string
}

// WhatlangDetector detects languages with trigram statistics.
type WhatlangDetector struct {
	minConfidence float64
}

func NewWhatlangDetector(minConfidence float64) *WhatlangDetector {
	if minConfidence <= 0 || minConfidence > 1 {
		minConfidence = defaultMinConfidence
	}
	return &WhatlangDetector{minConfidence: minConfidence}
}

func (d *WhatlangDetector) Detect(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < minDetectableRunes {
		return Unknown
	}

	info := whatlanggo.Detect(text)
	if info.Confidence < d.minConfidence {
		return Unknown
	}

	code := info.Lang.Iso6391()
	if code == "" {
		return Unknown
	}
	return code
}

// Normalize lowercases a language tag and maps blanks to Unknown.
func Normalize(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return Unknown
	}
	// "en-US" and "en_GB" compare as "en"
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		tag = tag[:i]
	}
	return tag
}
