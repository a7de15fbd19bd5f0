package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webappauth/identity"
	"webappauth/storage/storetest"
)

type fakeObject struct {
	data []byte
	etag string
}

// fakeObjectAPI реализует условные записи S3 в памяти
type fakeObjectAPI struct {
	mu       sync.Mutex
	objects  map[string]fakeObject
	version  int
	puts     int
	conflict int // сколько следующих PutObject вернуть с 412
	down     bool
}

func newFakeObjectAPI() *fakeObjectAPI {
	return &fakeObjectAPI{objects: make(map[string]fakeObject)}
}

func httpError(code int) error {
	return &smithyhttp.ResponseError{
		Response: &smithyhttp.Response{Response: &http.Response{StatusCode: code}},
		Err:      fmt.Errorf("status %d", code),
	}
}

func (f *fakeObjectAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.down {
		return nil, httpError(http.StatusServiceUnavailable)
	}
	obj, ok := f.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(obj.data)),
		ETag: aws.String(obj.etag),
	}, nil
}

func (f *fakeObjectAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.down {
		return nil, httpError(http.StatusServiceUnavailable)
	}
	if f.conflict > 0 {
		f.conflict--
		return nil, httpError(http.StatusPreconditionFailed)
	}

	key := aws.ToString(in.Key)
	obj, exists := f.objects[key]
	if aws.ToString(in.IfNoneMatch) == "*" && exists {
		return nil, httpError(http.StatusPreconditionFailed)
	}
	if in.IfMatch != nil && (!exists || obj.etag != aws.ToString(in.IfMatch)) {
		return nil, httpError(http.StatusPreconditionFailed)
	}

	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.version++
	f.puts++
	etag := fmt.Sprintf(`"v%d"`, f.version)
	f.objects[key] = fakeObject{data: data, etag: etag}
	return &s3.PutObjectOutput{ETag: aws.String(etag)}, nil
}

func (f *fakeObjectAPI) HeadBucket(_ context.Context, _ *s3.HeadBucketInput, _ ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return nil, httpError(http.StatusServiceUnavailable)
	}
	return &s3.HeadBucketOutput{}, nil
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Bucket = "identities"
	return cfg
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) identity.Store {
		return newStore(newFakeObjectAPI(), testConfig())
	})
}

func TestStoreObjectLayout(t *testing.T) {
	api := newFakeObjectAPI()
	store := newStore(api, testConfig())

	rec, _, err := store.UpsertByPlatformID(context.Background(), 42, nil)
	require.NoError(t, err)

	obj, ok := api.objects["identities/42.json"]
	require.True(t, ok)
	assert.Contains(t, string(obj.data), rec.LocalID)
}

func TestStoreUnchangedDoesNotWrite(t *testing.T) {
	api := newFakeObjectAPI()
	store := newStore(api, testConfig())
	ctx := context.Background()

	_, _, err := store.UpsertByPlatformID(ctx, 1, nil)
	require.NoError(t, err)
	_, outcome, err := store.UpsertByPlatformID(ctx, 1, nil)
	require.NoError(t, err)

	assert.Equal(t, identity.OutcomeUnchanged, outcome)
	assert.Equal(t, 1, api.puts)
}

func TestStoreRetriesConflicts(t *testing.T) {
	t.Run("recovers after transient conflicts", func(t *testing.T) {
		api := newFakeObjectAPI()
		api.conflict = 2
		store := newStore(api, testConfig())

		_, outcome, err := store.UpsertByPlatformID(context.Background(), 1, nil)
		require.NoError(t, err)
		assert.Equal(t, identity.OutcomeCreated, outcome)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		api := newFakeObjectAPI()
		api.conflict = 100
		store := newStore(api, testConfig())

		_, _, err := store.UpsertByPlatformID(context.Background(), 1, nil)
		assert.ErrorIs(t, err, ErrTooManyConflicts)
	})
}

func TestStoreUnavailable(t *testing.T) {
	api := newFakeObjectAPI()
	api.down = true
	store := newStore(api, testConfig())

	_, _, err := store.UpsertByPlatformID(context.Background(), 1, nil)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTooManyConflicts)
	assert.Error(t, store.Ping(context.Background()))
}

func TestErrorClassification(t *testing.T) {
	assert.True(t, isNotFound(&types.NoSuchKey{}))
	assert.True(t, isNotFound(httpError(http.StatusNotFound)))
	assert.False(t, isNotFound(httpError(http.StatusForbidden)))
	assert.False(t, isNotFound(nil))

	assert.True(t, isConflict(httpError(http.StatusPreconditionFailed)))
	assert.True(t, isConflict(fmt.Errorf("wrapped: %w", httpError(http.StatusConflict))))
	assert.False(t, isConflict(httpError(http.StatusInternalServerError)))
	assert.False(t, isConflict(errors.New("network down")))
	assert.False(t, isConflict(nil))
}

func TestConfigValidate(t *testing.T) {
	cfg := testConfig()
	assert.NoError(t, cfg.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"EmptyBucket", func(c *Config) { c.Bucket = "" }},
		{"EmptyRegion", func(c *Config) { c.Region = "" }},
		{"HalfCredentials", func(c *Config) { c.AccessKey = "key" }},
		{"ZeroRetries", func(c *Config) { c.MaxRetries = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
