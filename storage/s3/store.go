package s3

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"

	"webappauth/identity"
	"webappauth/logger"
)

// ErrTooManyConflicts - условная запись не прошла за отведенное число попыток.
var ErrTooManyConflicts = errors.New("too many concurrent updates")

// Config содержит настройки S3 драйвера
type Config struct {
	Endpoint   string `yaml:"endpoint"`   // URL эндпоинта S3 (пусто - AWS по умолчанию)
	Region     string `yaml:"region"`     // Регион (например, us-east-1)
	Bucket     string `yaml:"bucket"`     // Бакет для записей
	AccessKey  string `yaml:"access_key"` // Пусто - цепочка учетных данных AWS по умолчанию
	SecretKey  string `yaml:"secret_key"`
	Prefix     string `yaml:"prefix"`      // Префикс ключей объектов
	MaxRetries int    `yaml:"max_retries"` // Попытки при конфликте условной записи
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{
		Region:     "us-east-1",
		Prefix:     "identities/",
		MaxRetries: 5,
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.Region == "" {
		return fmt.Errorf("region cannot be empty")
	}
	if c.Bucket == "" {
		return fmt.Errorf("bucket cannot be empty")
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return fmt.Errorf("access_key and secret_key must be set together")
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("max_retries must be positive")
	}
	return nil
}

// objectAPI - подмножество клиента S3, которое нужно хранилищу
type objectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

// Store хранит каждую запись JSON-объектом prefix+platformUserID+".json".
// Создание идет через If-None-Match: *, обновление через If-Match: <etag>.
type Store struct {
	api        objectAPI
	bucket     string
	prefix     string
	maxRetries int
}

// New создает S3 клиент и проверяет доступность бакета
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid s3 config: %w", err)
	}

	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		o.UsePathStyle = true
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	store := newStore(client, cfg)
	if err := store.Ping(ctx); err != nil {
		return nil, fmt.Errorf("bucket %s is not reachable: %w", cfg.Bucket, err)
	}

	logger.Info("S3 identity store ready (Endpoint: %s, Bucket: %s)", cfg.Endpoint, cfg.Bucket)
	return store, nil
}

func newStore(api objectAPI, cfg Config) *Store {
	return &Store{
		api:        api,
		bucket:     cfg.Bucket,
		prefix:     cfg.Prefix,
		maxRetries: cfg.MaxRetries,
	}
}

func (s *Store) key(platformUserID int64) string {
	return s.prefix + strconv.FormatInt(platformUserID, 10) + ".json"
}

// UpsertByPlatformID реализует identity.Store
func (s *Store) UpsertByPlatformID(ctx context.Context, platformUserID int64, username *string) (*identity.Record, identity.Outcome, error) {
	key := s.key(platformUserID)

	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		current, etag, err := s.load(ctx, key)
		if err != nil {
			return nil, identity.OutcomeUnchanged, err
		}

		var (
			next    *identity.Record
			outcome identity.Outcome
			input   = &s3.PutObjectInput{
				Bucket:      aws.String(s.bucket),
				Key:         aws.String(key),
				ContentType: aws.String("application/json"),
			}
		)

		switch {
		case current == nil:
			next = &identity.Record{
				LocalID:        uuid.NewString(),
				PlatformUserID: platformUserID,
				Username:       identity.CloneUsername(username),
				CreatedAt:      time.Now().UTC(),
			}
			outcome = identity.OutcomeCreated
			input.IfNoneMatch = aws.String("*")
		case identity.SameUsername(current.Username, username):
			return current, identity.OutcomeUnchanged, nil
		default:
			next = current
			next.Username = identity.CloneUsername(username)
			outcome = identity.OutcomeUpdated
			input.IfMatch = aws.String(etag)
		}

		data, err := json.Marshal(next)
		if err != nil {
			return nil, identity.OutcomeUnchanged, fmt.Errorf("failed to encode identity: %w", err)
		}
		input.Body = bytes.NewReader(data)

		_, err = s.api.PutObject(ctx, input)
		if isConflict(err) {
			logger.Debug("Conditional write conflict on %s, attempt %d", key, attempt)
			continue
		}
		if err != nil {
			return nil, identity.OutcomeUnchanged, fmt.Errorf("failed to write identity %s: %w", key, err)
		}
		return next, outcome, nil
	}

	return nil, identity.OutcomeUnchanged, fmt.Errorf("%w on %s after %d attempts", ErrTooManyConflicts, key, s.maxRetries)
}

// load читает запись и ее ETag. Отсутствующий объект - это (nil, "", nil).
func (s *Store) load(ctx context.Context, key string) (*identity.Record, string, error) {
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to read identity %s: %w", key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read identity %s: %w", key, err)
	}

	var rec identity.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, "", fmt.Errorf("failed to decode identity %s: %w", key, err)
	}
	return &rec, aws.ToString(out.ETag), nil
}

// Ping реализует identity.Store
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.api.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	return err
}

// Close реализует identity.Store. У S3 клиента нет ресурсов, требующих закрытия.
func (s *Store) Close() error {
	return nil
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}

	var noSuchKey *types.NoSuchKey
	if errors.As(err, &noSuchKey) {
		return true
	}

	// Часть S3-совместимых хранилищ отвечает на GetObject голым 404
	return statusCode(err) == http.StatusNotFound
}

// isConflict распознает проигранную условную запись: 412 для If-None-Match/If-Match,
// 409 при одновременной условной записи того же ключа.
func isConflict(err error) bool {
	switch statusCode(err) {
	case http.StatusPreconditionFailed, http.StatusConflict:
		return true
	default:
		return false
	}
}

func statusCode(err error) int {
	var httpErr interface{ HTTPStatusCode() int }
	if errors.As(err, &httpErr) {
		return httpErr.HTTPStatusCode()
	}
	return 0
}
