package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/spigell/applicant-ranker/internal/embedding"
	"github.com/spigell/applicant-ranker/internal/language"
	"github.com/spigell/applicant-ranker/internal/resume"
	"github.com/spigell/applicant-ranker/internal/scoring"
	"github.com/spigell/applicant-ranker/internal/server"
	"github.com/spigell/applicant-ranker/internal/store"
)

const (
	providerGemini = "gemini"
	providerOpenAI = "openai"
	providerHash   = "hash"
)

type Config struct {
	Server    server.Config      `mapstructure:"server"`
	Store     store.Config       `mapstructure:"store"`
	Embedding EmbeddingConfig    `mapstructure:"embedding"`
	Language  LanguageConfig     `mapstructure:"language"`
	Resume    resume.FetchConfig `mapstructure:"resume"`
	Scoring   ScoringConfig      `mapstructure:"scoring"`
}

type EmbeddingConfig struct {
	Provider   string `mapstructure:"provider"`
	Model      string `mapstructure:"model"`
	APIKey     string `mapstructure:"api-key"`
	APIKeyFile string `mapstructure:"api-key-file"`
	// BaseURL points the openai provider at a compatible server.
	BaseURL    string `mapstructure:"base-url"`
	BatchSize  int    `mapstructure:"batch-size"`
	MaxRetries int    `mapstructure:"max-retries"`
	// Dimension is used by the offline hash provider only.
	Dimension int                   `mapstructure:"dimension"`
	Cache     embedding.CacheConfig `mapstructure:"cache"`
}

type LanguageConfig struct {
	Strategy      language.Strategy `mapstructure:"strategy"`
	Canonical     string            `mapstructure:"canonical"`
	MinConfidence float64           `mapstructure:"min-confidence"`
	Translator    TranslatorConfig  `mapstructure:"translator"`
}

type TranslatorConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	Model             string  `mapstructure:"model"`
	APIKey            string  `mapstructure:"api-key"`
	APIKeyFile        string  `mapstructure:"api-key-file"`
	RequestsPerSecond float64 `mapstructure:"requests-per-second"`
	Burst             int     `mapstructure:"burst"`
	MaxRetries        int     `mapstructure:"max-retries"`
	MaxLogLength      int     `mapstructure:"max-log-length"`
}

type ScoringConfig struct {
	Concurrency    int `mapstructure:"concurrency"`
	scoring.Policy `mapstructure:",squash"`
}

// DefaultConfig returns the configuration used for keys missing from the
// config file and the environment.
func DefaultConfig() *Config {
	return &Config{
		Server: server.Config{
			Listen:         ":8080",
			RequestTimeout: 120 * time.Second,
			DefaultTopN:    5,
			AllowedOrigins: server.DefaultAllowedOrigins,
		},
		Store: store.Config{
			Driver:   store.DriverMongo,
			Database: "applicant_ranker",
		},
		Embedding: EmbeddingConfig{
			Provider:   providerGemini,
			BatchSize:  64,
			MaxRetries: 3,
			Dimension:  256,
			Cache: embedding.CacheConfig{
				Enabled:    true,
				MaxEntries: 5000,
				TTL:        24 * time.Hour,
			},
		},
		Language: LanguageConfig{
			Strategy:      language.AlwaysCanonicalize,
			Canonical:     language.DefaultCanonical,
			MinConfidence: 0.3,
			Translator: TranslatorConfig{
				RequestsPerSecond: 5,
				Burst:             1,
				MaxRetries:        3,
				MaxLogLength:      2000,
			},
		},
		Resume: resume.FetchConfig{
			Timeout:    20 * time.Second,
			MaxRetries: 3,
			MaxBytes:   10 << 20,
		},
		Scoring: ScoringConfig{
			Concurrency: 8,
			Policy:      scoring.DefaultPolicy(),
		},
	}
}

// setDefaults registers every default key so RANKER_* variables can
// override keys that are absent from the config file.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()

	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.request-timeout", d.Server.RequestTimeout)
	v.SetDefault("server.default-top-n", d.Server.DefaultTopN)
	v.SetDefault("server.allowed-origins", d.Server.AllowedOrigins)
	v.SetDefault("server.requests-per-second", 0)

	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.uri", "")
	v.SetDefault("store.database", d.Store.Database)
	v.SetDefault("store.active-only", false)

	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.api-key", "")
	v.SetDefault("embedding.api-key-file", "")
	v.SetDefault("embedding.base-url", "")
	v.SetDefault("embedding.batch-size", d.Embedding.BatchSize)
	v.SetDefault("embedding.max-retries", d.Embedding.MaxRetries)
	v.SetDefault("embedding.dimension", d.Embedding.Dimension)
	v.SetDefault("embedding.cache.enabled", d.Embedding.Cache.Enabled)
	v.SetDefault("embedding.cache.max-entries", d.Embedding.Cache.MaxEntries)
	v.SetDefault("embedding.cache.redis-url", "")
	v.SetDefault("embedding.cache.ttl", d.Embedding.Cache.TTL)

	v.SetDefault("language.strategy", string(d.Language.Strategy))
	v.SetDefault("language.canonical", d.Language.Canonical)
	v.SetDefault("language.min-confidence", d.Language.MinConfidence)
	v.SetDefault("language.translator.enabled", false)
	v.SetDefault("language.translator.model", "")
	v.SetDefault("language.translator.api-key", "")
	v.SetDefault("language.translator.api-key-file", "")
	v.SetDefault("language.translator.requests-per-second", d.Language.Translator.RequestsPerSecond)
	v.SetDefault("language.translator.burst", d.Language.Translator.Burst)
	v.SetDefault("language.translator.max-retries", d.Language.Translator.MaxRetries)
	v.SetDefault("language.translator.max-log-length", d.Language.Translator.MaxLogLength)

	v.SetDefault("resume.fetch-timeout", d.Resume.Timeout)
	v.SetDefault("resume.max-retries", d.Resume.MaxRetries)
	v.SetDefault("resume.max-bytes", d.Resume.MaxBytes)
	v.SetDefault("resume.user-agent", "")

	v.SetDefault("scoring.concurrency", d.Scoring.Concurrency)
	v.SetDefault("scoring.experience-source", string(d.Scoring.ExperienceSource))
	v.SetDefault("scoring.education-source", string(d.Scoring.EducationSource))
	v.SetDefault("scoring.semantic-threshold", d.Scoring.SemanticThreshold)
}

// Validate checks enum values, positive limits and that every weighting
// policy sums to 1.0.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Store.Driver) {
	case store.DriverMongo, store.DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("store.driver: unknown driver %q", c.Store.Driver))
	}

	switch strings.ToLower(c.Embedding.Provider) {
	case providerGemini, providerOpenAI, providerHash:
	default:
		errs = append(errs, fmt.Errorf("embedding.provider: unknown provider %q", c.Embedding.Provider))
	}
	if c.Embedding.BatchSize < 0 {
		errs = append(errs, errors.New("embedding.batch-size must not be negative"))
	}

	if err := (language.Config{Strategy: c.Language.Strategy, Canonical: c.Language.Canonical}).Validate(); err != nil {
		errs = append(errs, fmt.Errorf("language: %w", err))
	}

	if c.Scoring.Concurrency <= 0 {
		errs = append(errs, errors.New("scoring.concurrency must be positive"))
	}
	if err := c.Scoring.Policy.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("scoring: %w", err))
	}

	return errors.Join(errs...)
}
