package auth

import (
	"crypto/ed25519"
	"crypto/hmac"
	"errors"
	"fmt"
	"time"

	"webappauth/initdata"
	"webappauth/logger"
)

// LegacyVerifier проверяет HMAC-SHA256 подпись в поле hash.
type LegacyVerifier struct {
	keys *KeyMaterial
}

// NewLegacyVerifier создает проверку legacy-схемы.
func NewLegacyVerifier(keys *KeyMaterial) *LegacyVerifier {
	return &LegacyVerifier{keys: keys}
}

// Verify реализует интерфейс Verifier.
func (v *LegacyVerifier) Verify(p *initdata.Payload) error {
	key, ok := v.keys.LegacyKey()
	if !ok {
		return fmt.Errorf("%w: application secret", ErrUnknownKey)
	}

	expected := hmacSHA256(key, p.Canonical())

	// hmac.Equal сравнивает за постоянное время
	if !hmac.Equal(expected, p.Signature()) {
		return ErrSignatureMismatch
	}
	return nil
}

// Ed25519Verifier проверяет асимметричную подпись в поле signature
// публичным ключом окружения, выбранного при создании.
type Ed25519Verifier struct {
	keys *KeyMaterial
	env  Environment
}

// NewEd25519Verifier создает проверку текущей схемы для окружения env.
func NewEd25519Verifier(keys *KeyMaterial, env Environment) *Ed25519Verifier {
	return &Ed25519Verifier{keys: keys, env: env}
}

// Verify реализует интерфейс Verifier.
func (v *Ed25519Verifier) Verify(p *initdata.Payload) error {
	publicKey, ok := v.keys.PublicKey(v.env)
	if !ok {
		return fmt.Errorf("%w: public key for %s environment", ErrUnknownKey, v.env)
	}
	if v.keys.AppID() == "" {
		return fmt.Errorf("%w: application id", ErrUnknownKey)
	}

	if !ed25519.Verify(publicKey, currentMessage(v.keys.AppID(), p.Canonical()), p.Signature()) {
		return ErrSignatureMismatch
	}
	return nil
}

// SchemeVerifier выбирает проверку по схеме payload. Переход между схемами не выполняется:
// payload с hash проверяется только legacy-схемой, с signature только текущей.
type SchemeVerifier struct {
	legacy  Verifier
	current Verifier
	metrics *Metrics
}

// NewSchemeVerifier собирает проверку обеих схем над одним набором ключей.
func NewSchemeVerifier(keys *KeyMaterial, env Environment, metrics *Metrics) *SchemeVerifier {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &SchemeVerifier{
		legacy:  NewLegacyVerifier(keys),
		current: NewEd25519Verifier(keys, env),
		metrics: metrics,
	}
}

// Verify реализует интерфейс Verifier.
func (s *SchemeVerifier) Verify(p *initdata.Payload) error {
	start := time.Now()
	scheme := p.Scheme()

	var err error
	switch scheme {
	case initdata.SchemeLegacy:
		err = s.legacy.Verify(p)
	case initdata.SchemeCurrent:
		err = s.current.Verify(p)
	default:
		err = fmt.Errorf("%w: unsupported scheme %s", ErrSignatureMismatch, scheme)
	}

	s.metrics.VerificationLatency.WithLabelValues(scheme.String()).Observe(time.Since(start).Seconds())

	switch {
	case err == nil:
		s.metrics.VerificationsTotal.WithLabelValues(scheme.String(), "success").Inc()
		logger.Debug("Signature verified, scheme=%s", scheme)
	case errors.Is(err, ErrUnknownKey):
		s.metrics.VerificationsTotal.WithLabelValues(scheme.String(), "unknown_key").Inc()
		s.metrics.ConfigFaults.Inc()
		logger.Error("Cannot verify %s signature: %v", scheme, err)
	default:
		s.metrics.VerificationsTotal.WithLabelValues(scheme.String(), "mismatch").Inc()
		logger.Debug("Signature mismatch, scheme=%s", scheme)
	}

	return err
}
