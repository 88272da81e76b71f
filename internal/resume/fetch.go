package resume

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/spigell/applicant-ranker/internal/retry"
	"go.uber.org/zap"
)

const (
	defaultFetchTimeout = 20 * time.Second
	defaultMaxBytes     = 10 << 20
	defaultUserAgent    = "applicant-ranker/1.0"
	contentEncoding     = "gzip"
)

// ErrTooLarge is returned for documents above the configured size limit.
var ErrTooLarge = errors.New("document exceeds size limit")

// Fetcher downloads a resume document from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Document, error)
}

// FetchConfig controls resume downloads.
type FetchConfig struct {
	Timeout    time.Duration `mapstructure:"fetch-timeout"`
	MaxRetries int           `mapstructure:"max-retries"`
	MaxBytes   int64         `mapstructure:"max-bytes"`
	UserAgent  string        `mapstructure:"user-agent"`
	S3         *S3Config     `mapstructure:"s3"`
}

// HTTPFetcher downloads documents over http and https.
type HTTPFetcher struct {
	HTTPClient *http.Client
	UserAgent  string

	maxBytes int64
	retry    retry.Config
	logger   *zap.Logger
}

func NewHTTPFetcher(cfg FetchConfig, logger *zap.Logger) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	rc := retry.Default
	if cfg.MaxRetries > 0 {
		rc.MaxRetries = cfg.MaxRetries
	}

	return &HTTPFetcher{
		HTTPClient: &http.Client{Timeout: timeout},
		UserAgent:  userAgent,
		maxBytes:   maxBytes,
		retry:      rc,
		logger:     logger,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (Document, error) {
	return retry.Do(ctx, f.retry, f.logger, nil, func(ctx context.Context) (Document, error) {
		return f.fetch(ctx, rawURL)
	})
}

func (f *HTTPFetcher) fetch(ctx context.Context, rawURL string) (Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Document{}, err
	}
	req = f.setHeaders(req)

	f.logger.Debug("make request", zap.String("url", req.URL.Redacted()))
	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return Document{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Document{}, &retry.StatusError{Code: resp.StatusCode, Status: resp.Status}
	}

	var body io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == contentEncoding {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return Document{}, err
		}
		defer gzipReader.Close()
		body = gzipReader
	}

	data, err := readLimited(body, f.maxBytes)
	if err != nil {
		return Document{}, err
	}

	return Document{
		Name:        path.Base(req.URL.Path),
		ContentType: resp.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func (f *HTTPFetcher) setHeaders(req *http.Request) *http.Request {
	req.Header.Set("User-Agent", f.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)
	return req
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}

// Router picks a fetcher by URL scheme.
type Router struct {
	HTTP Fetcher
	S3   Fetcher
}

func (r *Router) Fetch(ctx context.Context, rawURL string) (Document, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return Document{}, fmt.Errorf("parse resume url: %w", err)
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		if r.HTTP == nil {
			return Document{}, errors.New("http fetcher is not configured")
		}
		return r.HTTP.Fetch(ctx, u.String())
	case "s3":
		if r.S3 == nil {
			return Document{}, errors.New("s3 fetcher is not configured")
		}
		return r.S3.Fetch(ctx, u.String())
	default:
		return Document{}, fmt.Errorf("unsupported resume url scheme %q", u.Scheme)
	}
}
