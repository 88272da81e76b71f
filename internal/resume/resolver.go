package resume

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spigell/applicant-ranker/internal/utils"
	"go.uber.org/zap"
)

// Resolver turns a resume URL into plain text.
type Resolver struct {
	fetcher Fetcher
	logger  *zap.Logger
}

func NewResolver(fetcher Fetcher, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{fetcher: fetcher, logger: logger}
}

// Load downloads and extracts the document at rawURL.
func (r *Resolver) Load(ctx context.Context, rawURL string) (string, error) {
	if utils.IsBlank(rawURL) {
		return "", errors.New("resume url is empty")
	}

	doc, err := r.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return "", fmt.Errorf("download resume: %w", err)
	}

	text, err := Extract(doc)
	if err != nil {
		return "", fmt.Errorf("extract resume: %w", err)
	}

	return strings.TrimSpace(text), nil
}

// Text is Load for callers that only care about usable text: unreachable,
// corrupt and encrypted documents yield "" and a warning.
func (r *Resolver) Text(ctx context.Context, rawURL string) string {
	text, err := r.Load(ctx, rawURL)
	if err != nil {
		r.logger.Warn("resume text unavailable",
			zap.String("url", utils.TruncateForLog(rawURL, 120)),
			zap.Error(err),
		)
		return ""
	}
	return text
}
