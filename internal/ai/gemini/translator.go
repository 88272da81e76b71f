package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/spigell/applicant-ranker/internal/utils"
	"go.uber.org/zap"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Translator asks a Gemini model to translate free text.
type Translator struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

//go:embed translate_prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

func NewTranslator(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Translator {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Translator{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Translate returns text rendered in the target language. source may be empty
// or "unknown" when the caller could not detect it.
func (t *Translator) Translate(ctx context.Context, text, source, target string) (string, error) {
	if t == nil || t.generator == nil {
		return "", errors.New("gemini translator is not initialized")
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return "", errors.New("target language is required")
	}

	prompt := buildPrompt(text, source, target)

	t.logger.Debug("gemini translate request",
		zap.String("source", source),
		zap.String("target", target),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("text_preview", utils.TruncateForLog(text, t.maxLogLen)),
	)

	raw, err := t.generator.GenerateContent(ctx, prompt)
	if err != nil {
		return "", err
	}

	translation, err := parseResponse(raw)
	if err != nil {
		return "", err
	}

	t.logger.Debug("gemini translate response",
		zap.Int("response_length", utf8.RuneCountInString(translation)),
		zap.String("response_preview", utils.TruncateForLog(translation, t.maxLogLen)),
	)

	return translation, nil
}

func buildPrompt(text, source, target string) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Translate to {{TARGET}} (from {{SOURCE}}):\n{{TEXT}}\n\nJSON Response:"
	}

	source = strings.TrimSpace(source)
	if source == "" {
		source = "unknown"
	}

	prompt := strings.ReplaceAll(template, "{{TARGET}}", target)
	prompt = strings.ReplaceAll(prompt, "{{SOURCE}}", source)
	prompt = strings.ReplaceAll(prompt, "{{TEXT}}", text)
	return prompt
}

func parseResponse(raw string) (string, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return "", fmt.Errorf("parse gemini response: %w", err)
	}

	translation, _ := data["translation"].(string)
	translation = strings.TrimSpace(translation)
	if translation == "" {
		return "", errors.New("gemini response has no translation")
	}

	return translation, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
