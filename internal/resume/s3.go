package resume

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spigell/applicant-ranker/internal/retry"
	"go.uber.org/zap"
)

// S3Config points at an S3 compatible object store such as Cloudflare R2.
type S3Config struct {
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access-key"`
	SecretKey string `mapstructure:"secret-key"`
}

type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher downloads documents addressed as s3://bucket/key.
type S3Fetcher struct {
	client   objectGetter
	maxBytes int64
	retry    retry.Config
	logger   *zap.Logger
}

func NewS3Fetcher(ctx context.Context, cfg S3Config, fetch FetchConfig, logger *zap.Logger) (*S3Fetcher, error) {
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "auto"
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Fetcher(client, fetch, logger), nil
}

func newS3Fetcher(client objectGetter, fetch FetchConfig, logger *zap.Logger) *S3Fetcher {
	maxBytes := fetch.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	rc := retry.Default
	if fetch.MaxRetries > 0 {
		rc.MaxRetries = fetch.MaxRetries
	}
	return &S3Fetcher{client: client, maxBytes: maxBytes, retry: rc, logger: logger}
}

func (f *S3Fetcher) Fetch(ctx context.Context, rawURL string) (Document, error) {
	bucket, key, err := parseS3URL(rawURL)
	if err != nil {
		return Document{}, err
	}

	return retry.Do(ctx, f.retry, f.logger, nil, func(ctx context.Context) (Document, error) {
		f.logger.Debug("get object", zap.String("bucket", bucket), zap.String("key", key))

		out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
			Bucket: aws.String(bucket),
			Key:    aws.String(key),
		})
		if err != nil {
			return Document{}, fmt.Errorf("failed to get object: %w", err)
		}
		defer out.Body.Close()

		data, err := readLimited(out.Body, f.maxBytes)
		if err != nil {
			return Document{}, fmt.Errorf("failed to read object body: %w", err)
		}

		return Document{
			Name:        path.Base(key),
			ContentType: aws.ToString(out.ContentType),
			Data:        data,
		}, nil
	})
}

func parseS3URL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parse s3 url: %w", err)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if u.Scheme != "s3" || bucket == "" || key == "" {
		return "", "", errors.New("s3 url must look like s3://bucket/key")
	}
	return bucket, key, nil
}
