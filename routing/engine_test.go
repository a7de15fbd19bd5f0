package routing

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"webappauth/apigw"
	"webappauth/auth"
	"webappauth/identity"
	"webappauth/initdata"
	"webappauth/pipeline"
	"webappauth/session"
)

// stubAuthenticator возвращает заранее заданный результат
type stubAuthenticator struct {
	record  *identity.Record
	err     error
	payload string
	now     time.Time
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, rawPayload string, now time.Time) (*identity.Record, error) {
	s.payload = rawPayload
	s.now = now
	return s.record, s.err
}

func testRecord() *identity.Record {
	name := "ann"
	return &identity.Record{
		LocalID:        "0b8f6c9e-3c7e-4a8e-9a53-1f0d2b4c5e6f",
		PlatformUserID: 42,
		Username:       &name,
		CreatedAt:      time.Unix(1_700_000_000, 0).UTC(),
	}
}

func newSessions(t *testing.T) *session.Manager {
	t.Helper()
	cfg := session.DefaultConfig()
	cfg.Secret = "0123456789abcdef0123456789abcdef"
	m, err := session.NewManager(cfg)
	require.NoError(t, err)
	return m
}

func newRequest(route apigw.Route) *apigw.AuthRequest {
	return &apigw.AuthRequest{
		Route:      route,
		InitData:   "auth_date=1&hash=00",
		ReceivedAt: time.Unix(1_700_000_100, 0).UTC(),
		Context:    context.Background(),
	}
}

func TestNewEngine(t *testing.T) {
	engine := NewEngine(&stubAuthenticator{}, nil, nil)
	require.NotNil(t, engine)
	assert.Equal(t, "5", engine.retryAfter)

	engine = NewEngine(&stubAuthenticator{}, nil, &Config{RetryAfter: 30 * time.Second})
	assert.Equal(t, "30", engine.retryAfter)
}

func TestEngine_AuthInit(t *testing.T) {
	t.Run("success without sessions", func(t *testing.T) {
		authenticator := &stubAuthenticator{record: testRecord()}
		engine := NewEngine(authenticator, nil, nil)

		req := newRequest(apigw.AuthInit)
		resp := engine.Handle(req)

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		body, ok := resp.Body.(*InitResponse)
		require.True(t, ok)
		assert.Equal(t, testRecord(), body.Identity)
		assert.Empty(t, body.Token)
		assert.Nil(t, body.ExpiresAt)

		assert.Equal(t, req.InitData, authenticator.payload)
		assert.Equal(t, req.ReceivedAt, authenticator.now)
	})

	t.Run("success issues a session token", func(t *testing.T) {
		sessions := newSessions(t)
		engine := NewEngine(&stubAuthenticator{record: testRecord()}, sessions, nil)

		resp := engine.Handle(newRequest(apigw.AuthInit))
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := resp.Body.(*InitResponse)
		require.NotEmpty(t, body.Token)
		require.NotNil(t, body.ExpiresAt)

		claims, err := sessions.Validate(body.Token)
		require.NoError(t, err)
		assert.Equal(t, testRecord().LocalID, claims.Subject)
		assert.Equal(t, int64(42), claims.UID)
	})
}

func TestEngine_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		code       string
		message    string
		retryAfter string
	}{
		{
			name:    "parse",
			err:     &pipeline.AuthError{Kind: pipeline.KindParse, Err: initdata.ErrMalformed},
			status:  http.StatusBadRequest,
			code:    "invalid_request",
			message: "invalid authentication data",
		},
		{
			name:    "missing subject",
			err:     &pipeline.AuthError{Kind: pipeline.KindMissingSubject, Err: pipeline.ErrMissingSubject},
			status:  http.StatusBadRequest,
			code:    "invalid_request",
			message: "invalid authentication data",
		},
		{
			name:    "signature mismatch",
			err:     &pipeline.AuthError{Kind: pipeline.KindVerification, Err: auth.ErrSignatureMismatch},
			status:  http.StatusUnauthorized,
			code:    "authentication_failed",
			message: "authentication failed",
		},
		{
			name:    "unknown key",
			err:     &pipeline.AuthError{Kind: pipeline.KindVerification, Err: auth.ErrUnknownKey},
			status:  http.StatusInternalServerError,
			code:    "internal_error",
			message: "authentication failed",
		},
		{
			name:    "expired",
			err:     &pipeline.AuthError{Kind: pipeline.KindStale, Err: auth.ErrExpired},
			status:  http.StatusUnauthorized,
			code:    "stale",
			message: "please reopen the app",
		},
		{
			name:    "future dated",
			err:     &pipeline.AuthError{Kind: pipeline.KindStale, Err: auth.ErrFutureDated},
			status:  http.StatusUnauthorized,
			code:    "stale",
			message: "please reopen the app",
		},
		{
			name:       "store",
			err:        &pipeline.AuthError{Kind: pipeline.KindStore, Err: identity.ErrStore},
			status:     http.StatusServiceUnavailable,
			code:       "unavailable",
			message:    "service temporarily unavailable",
			retryAfter: "5",
		},
		{
			name:    "untyped error",
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			code:    "internal_error",
			message: "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(&stubAuthenticator{err: tt.err}, newSessions(t), nil)
			resp := engine.Handle(newRequest(apigw.AuthInit))

			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, apigw.ErrorBody{Error: tt.message, Code: tt.code}, resp.Body)
			assert.ErrorIs(t, resp.Error, tt.err)
			assert.Equal(t, tt.retryAfter, resp.Headers.Get("Retry-After"))
		})
	}
}

func TestEngine_AuthMe(t *testing.T) {
	t.Run("valid token", func(t *testing.T) {
		sessions := newSessions(t)
		token, expiresAt, err := sessions.Issue(testRecord())
		require.NoError(t, err)

		engine := NewEngine(&stubAuthenticator{}, sessions, nil)
		req := newRequest(apigw.AuthMe)
		req.BearerToken = token

		resp := engine.Handle(req)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		body := resp.Body.(*MeResponse)
		assert.Equal(t, testRecord().LocalID, body.LocalID)
		assert.Equal(t, int64(42), body.PlatformUserID)
		require.NotNil(t, body.Username)
		assert.Equal(t, "ann", *body.Username)
		assert.True(t, expiresAt.Truncate(time.Second).Equal(body.ExpiresAt))
	})

	t.Run("invalid token", func(t *testing.T) {
		engine := NewEngine(&stubAuthenticator{}, newSessions(t), nil)
		req := newRequest(apigw.AuthMe)
		req.BearerToken = "not-a-token"

		resp := engine.Handle(req)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.ErrorIs(t, resp.Error, session.ErrInvalidToken)
		assert.NotEmpty(t, resp.Headers.Get("WWW-Authenticate"))
	})

	t.Run("sessions disabled", func(t *testing.T) {
		engine := NewEngine(&stubAuthenticator{}, nil, nil)
		resp := engine.Handle(newRequest(apigw.AuthMe))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestEngine_Health(t *testing.T) {
	engine := NewEngine(&stubAuthenticator{}, nil, nil)
	resp := engine.Handle(newRequest(apigw.Health))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]string{"status": "ok"}, resp.Body)

	resp = engine.Handle(newRequest(apigw.UnsupportedRoute))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())
	assert.Error(t, (&Config{RetryAfter: 100 * time.Millisecond}).Validate())
}
