package language

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/applicant-ranker/internal/utils"
	"go.uber.org/zap"
)

// Strategy selects which texts are translated and into which language.
type Strategy string

const (
	// AlwaysCanonicalize translates job and applicant texts into one
	// canonical language.
	AlwaysCanonicalize Strategy = "always-canonicalize"
	// SkipIfSameLanguage keeps the job text as is and translates applicant
	// text into the job's language only when their languages differ.
	SkipIfSameLanguage Strategy = "skip-if-same-language"

	DefaultCanonical = "en"
)

// Reason explains what happened to a text during normalization.
type Reason string

const (
	ReasonBlank             Reason = "blank"
	ReasonKept              Reason = "kept"
	ReasonSameLanguage      Reason = "same-language"
	ReasonTranslated        Reason = "translated"
	ReasonTranslationFailed Reason = "translation-failed"
	ReasonNoTranslator      Reason = "no-translator"
)

// Outcome is the result of normalizing one text. Text is always usable:
// when translation fails it holds the original input.
type Outcome struct {
	Text       string
	Source     string
	Translated bool
	Reason     Reason
	Err        error
}

// Config selects the normalization strategy.
type Config struct {
	Strategy  Strategy `mapstructure:"strategy"`
	Canonical string   `mapstructure:"canonical"`
}

func (c Config) Validate() error {
	switch c.Strategy {
	case "", AlwaysCanonicalize, SkipIfSameLanguage:
		return nil
	default:
		return fmt.Errorf("unknown language strategy %q", c.Strategy)
	}
}

// Normalizer brings job and applicant texts into a comparable language.
type Normalizer struct {
	strategy   Strategy
	canonical  string
	detector   Detector
	translator Translator
	logger     *zap.Logger
}

// NewNormalizer builds a Normalizer. translator may be nil, in which case
// texts are only detected and never translated.
func NewNormalizer(cfg Config, detector Detector, translator Translator, logger *zap.Logger) *Normalizer {
	strategy := cfg.Strategy
	if strategy == "" {
		strategy = AlwaysCanonicalize
	}

	canonical := Normalize(cfg.Canonical)
	if canonical == Unknown {
		canonical = DefaultCanonical
	}

	if detector == nil {
		detector = NewWhatlangDetector(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Normalizer{
		strategy:   strategy,
		canonical:  canonical,
		detector:   detector,
		translator: translator,
		logger:     logger,
	}
}

func (n *Normalizer) Strategy() Strategy {
	return n.strategy
}

// CanTranslate reports whether a translator is configured.
func (n *Normalizer) CanTranslate() bool {
	return n.translator != nil
}

// DetectLanguage returns the ISO 639-1 code of text, or Unknown for blank
// or ambiguous input.
func (n *Normalizer) DetectLanguage(text string) string {
	if utils.IsBlank(text) {
		return Unknown
	}
	return Normalize(n.detector.Detect(text))
}

// JobTarget returns the language job texts are translated into, or "" when
// job texts are kept as written.
func (n *Normalizer) JobTarget() string {
	if n.strategy == AlwaysCanonicalize {
		return n.canonical
	}
	return ""
}

// CandidateTarget returns the language applicant texts are translated into
// for a job written in jobLanguage, or "" when they are kept as written.
func (n *Normalizer) CandidateTarget(jobLanguage string) string {
	if n.strategy == AlwaysCanonicalize {
		return n.canonical
	}

	jobLanguage = Normalize(jobLanguage)
	if jobLanguage == Unknown {
		return ""
	}
	return jobLanguage
}

// Translate returns text in the target language. Blank text, an empty
// target and text already in the target language are returned unchanged.
// Translation failures are logged and the original text is returned.
func (n *Normalizer) Translate(ctx context.Context, text, target string) Outcome {
	if utils.IsBlank(text) {
		return Outcome{Text: text, Source: Unknown, Reason: ReasonBlank}
	}

	target = strings.TrimSpace(target)
	if target == "" {
		return Outcome{Text: text, Source: n.DetectLanguage(text), Reason: ReasonKept}
	}
	target = Normalize(target)

	source := n.DetectLanguage(text)
	if source == target {
		return Outcome{Text: text, Source: source, Reason: ReasonSameLanguage}
	}

	if n.translator == nil {
		return Outcome{Text: text, Source: source, Reason: ReasonNoTranslator}
	}

	translated, err := n.translator.Translate(ctx, text, source, target)
	if err != nil || utils.IsBlank(translated) {
		if err == nil {
			err = errors.New("empty translation")
		}
		n.logger.Warn("translation failed, keeping original text",
			zap.String("source", source),
			zap.String("target", target),
			zap.String("text_preview", utils.TruncateForLog(text, 80)),
			zap.Error(err),
		)
		return Outcome{Text: text, Source: source, Reason: ReasonTranslationFailed, Err: err}
	}

	return Outcome{Text: translated, Source: source, Translated: true, Reason: ReasonTranslated}
}
