package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/applicant-ranker/internal/ai"
	"github.com/spigell/applicant-ranker/internal/ai/gemini"
	"github.com/spigell/applicant-ranker/internal/ai/openai"
	"github.com/spigell/applicant-ranker/internal/embedding"
	"github.com/spigell/applicant-ranker/internal/language"
	"github.com/spigell/applicant-ranker/internal/lazy"
	"github.com/spigell/applicant-ranker/internal/logger"
	"github.com/spigell/applicant-ranker/internal/recommend"
	"github.com/spigell/applicant-ranker/internal/resume"
	"github.com/spigell/applicant-ranker/internal/secrets"
	"github.com/spigell/applicant-ranker/internal/store"
	"github.com/spigell/applicant-ranker/internal/store/mongo"
	"github.com/spigell/applicant-ranker/internal/store/postgres"
)

// newEngine wires the engine from config. The returned cleanup closes the
// store and the cache connection.
func newEngine(ctx context.Context, config *Config, log *zap.Logger) (*recommend.Engine, func(), error) {
	st, err := newStore(config.Store, log)
	if err != nil {
		return nil, nil, err
	}

	normalizer, err := newNormalizer(ctx, config.Language, log)
	if err != nil {
		return nil, nil, err
	}

	resumes, err := newResumeResolver(ctx, config.Resume, log)
	if err != nil {
		return nil, nil, err
	}

	closeEncoder := func() {}
	encoder := lazy.New(func(ctx context.Context) (embedding.Encoder, error) {
		enc, closeFn, err := newEncoder(ctx, config.Embedding, log)
		if err != nil {
			return nil, err
		}
		closeEncoder = closeFn
		return enc, nil
	})

	engine, err := recommend.New(recommend.Config{
		Policy:      config.Scoring.Policy,
		Concurrency: config.Scoring.Concurrency,
	}, recommend.Deps{
		Store:      st,
		Encoder:    encoder,
		Normalizer: normalizer,
		Resumes:    resumes,
	}, log)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		// Peek waits for a build in progress before closeEncoder is read.
		if _, built := encoder.Peek(); built {
			closeEncoder()
		}
		if err := st.Close(context.Background()); err != nil {
			log.Warn("closing store", zap.Error(err))
		}
	}

	return engine, cleanup, nil
}

func newStore(cfg store.Config, log *zap.Logger) (store.Store, error) {
	storeLogger := log.With(zap.String("store", cfg.Driver))

	switch strings.ToLower(cfg.Driver) {
	case store.DriverPostgres:
		return postgres.New(cfg, storeLogger)
	case store.DriverMongo, "":
		return mongo.New(cfg, storeLogger)
	default:
		return nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

// newEncoder builds the embedding chain: provider, batching, then cache.
func newEncoder(ctx context.Context, cfg EmbeddingConfig, log *zap.Logger) (embedding.Encoder, func(), error) {
	var enc embedding.Encoder

	switch provider := strings.ToLower(cfg.Provider); provider {
	case providerHash:
		enc = embedding.NewHashEncoder(cfg.Dimension)
	case providerGemini, providerOpenAI:
		embedder, err := newEmbedder(ctx, provider, cfg, log)
		if err != nil {
			return nil, nil, err
		}
		enc = embedding.NewBatched(embedder, cfg.BatchSize, logger.WithCommonFields(log, provider, embedder.EmbeddingModel()))
	default:
		return nil, nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Provider)
	}

	noop := func() {}
	if !cfg.Cache.Enabled {
		return enc, noop, nil
	}

	if strings.TrimSpace(cfg.Cache.RedisURL) == "" {
		return embedding.NewCached(enc, cfg.Cache, nil, log), noop, nil
	}

	rdb, err := embedding.NewRedisClient(ctx, cfg.Cache.RedisURL)
	if err != nil {
		log.Warn("embedding cache runs without redis", zap.Error(err))
		return embedding.NewCached(enc, cfg.Cache, nil, log), noop, nil
	}
	return embedding.NewCached(enc, cfg.Cache, rdb, log), func() { _ = rdb.Close() }, nil
}

func newEmbedder(ctx context.Context, provider string, cfg EmbeddingConfig, log *zap.Logger) (ai.Embedder, error) {
	switch provider {
	case providerOpenAI:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "openai api key",
			Value: cfg.APIKey,
			File:  cfg.APIKeyFile,
			Env:   "OPENAI_API_KEY",
		})
		if err != nil {
			return nil, err
		}
		return openai.New(openai.Config{
			APIKey:     apiKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			MaxRetries: cfg.MaxRetries,
		}, log)
	default:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.APIKey,
			File:  cfg.APIKeyFile,
			Env:   "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, err
		}
		return gemini.New(ctx, gemini.Config{
			APIKey:         apiKey,
			EmbeddingModel: cfg.Model,
			MaxRetries:     cfg.MaxRetries,
		}, log)
	}
}

// newNormalizer builds language handling. Without an enabled translator
// texts are detected but kept as written.
func newNormalizer(ctx context.Context, cfg LanguageConfig, log *zap.Logger) (*language.Normalizer, error) {
	normalizerCfg := language.Config{Strategy: cfg.Strategy, Canonical: cfg.Canonical}
	detector := language.NewWhatlangDetector(cfg.MinConfidence)

	if !cfg.Translator.Enabled {
		log.Info("translation is disabled; texts are compared as written")
		return language.NewNormalizer(normalizerCfg, detector, nil, log), nil
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Translator.APIKey,
		File:  cfg.Translator.APIKeyFile,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, fmt.Errorf("%w (set language.translator.api-key-file or GEMINI_API_KEY)", err)
	}

	client, err := gemini.New(ctx, gemini.Config{
		APIKey:          apiKey,
		GenerationModel: cfg.Translator.Model,
		MaxRetries:      cfg.Translator.MaxRetries,
	}, log)
	if err != nil {
		return nil, err
	}

	translatorLogger := logger.WithCommonFields(log, gemini.Provider, client.GenerationModel())
	translator := gemini.NewTranslator(client, translatorLogger, cfg.Translator.MaxLogLength)
	throttled := language.NewThrottled(translator, cfg.Translator.RequestsPerSecond, cfg.Translator.Burst)

	return language.NewNormalizer(normalizerCfg, detector, throttled, log), nil
}

func newResumeResolver(ctx context.Context, cfg resume.FetchConfig, log *zap.Logger) (*resume.Resolver, error) {
	router := &resume.Router{HTTP: resume.NewHTTPFetcher(cfg, log)}

	if cfg.S3 != nil && (cfg.S3.Endpoint != "" || cfg.S3.AccessKey != "") {
		s3Fetcher, err := resume.NewS3Fetcher(ctx, *cfg.S3, cfg, log)
		if err != nil {
			return nil, fmt.Errorf("s3 resume storage: %w", err)
		}
		router.S3 = s3Fetcher
	}

	return resume.NewResolver(router, log), nil
}
