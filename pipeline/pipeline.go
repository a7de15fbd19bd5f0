package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"webappauth/auth"
	"webappauth/identity"
	"webappauth/initdata"
	"webappauth/logger"
)

const tracerName = "webappauth/pipeline"

// Authenticator - общий интерфейс проверяющего конвейера и обхода для разработки
type Authenticator interface {
	// Authenticate проверяет сырой init payload и возвращает локальную запись личности
	Authenticate(ctx context.Context, rawPayload string, now time.Time) (*identity.Record, error)
}

// Pipeline проверяет init payload и разрешает личность.
// Ключи и пределы свежести передаются при создании; внутренних повторов нет.
type Pipeline struct {
	verifier  auth.Verifier
	freshness *auth.FreshnessGuard
	resolver  *identity.Resolver
	metrics   *Metrics
	tracer    trace.Tracer
}

// New собирает конвейер из готовых компонентов
func New(verifier auth.Verifier, freshness *auth.FreshnessGuard, resolver *identity.Resolver, metrics *Metrics) *Pipeline {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Pipeline{
		verifier:  verifier,
		freshness: freshness,
		resolver:  resolver,
		metrics:   metrics,
		tracer:    otel.Tracer(tracerName),
	}
}

// Authenticate реализует Authenticator: разбор, проверка подписи, свежесть, наличие
// пользователя и разрешение личности. Первая же ошибка прерывает остальные этапы.
func (p *Pipeline) Authenticate(ctx context.Context, rawPayload string, now time.Time) (*identity.Record, error) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "pipeline.Authenticate")
	defer span.End()

	record, err := p.authenticate(ctx, rawPayload, now)
	p.metrics.observe("verified", err, time.Since(start).Seconds())
	if err != nil {
		span.SetStatus(codes.Error, KindOf(err).String())
		return nil, err
	}

	span.SetAttributes(attribute.String("identity.local_id", record.LocalID))
	return record, nil
}

func (p *Pipeline) authenticate(ctx context.Context, rawPayload string, now time.Time) (*identity.Record, error) {
	verified, err := p.Verify(ctx, rawPayload, now)
	if err != nil {
		return nil, err
	}

	ctx, span := p.tracer.Start(ctx, "pipeline.resolve")
	defer span.End()

	record, err := p.resolver.Resolve(ctx, verified.PlatformUserID, verified.Username)
	if err != nil {
		span.RecordError(err)
		return nil, newError(KindStore, err)
	}
	return record, nil
}

// Verify выполняет только этапы проверки, без обращения к хранилищу
func (p *Pipeline) Verify(ctx context.Context, rawPayload string, now time.Time) (*auth.VerifiedIdentity, error) {
	payload, err := p.parse(ctx, rawPayload)
	if err != nil {
		return nil, err
	}

	if err := p.verify(ctx, payload); err != nil {
		return nil, err
	}

	// Типизированный разбор идет после проверки подписи: любое изменение байтов
	// должно давать несовпадение подписи, а не ошибку разбора
	data, err := payload.Decode()
	if err != nil {
		logger.Debug("Verified payload failed to decode: %v", err)
		return nil, newError(KindParse, err)
	}

	if err := p.checkFreshness(ctx, data.AuthDate, now); err != nil {
		return nil, err
	}

	platformUserID, ok := data.PlatformUserID()
	if !ok {
		return nil, newError(KindMissingSubject, ErrMissingSubject)
	}

	return &auth.VerifiedIdentity{
		PlatformUserID: platformUserID,
		Username:       data.Username(),
		FirstName:      data.FirstName(),
		LastName:       data.LastName(),
		AuthDate:       data.AuthDate,
		VerifiedAt:     now,
		Scheme:         data.Scheme,
	}, nil
}

func (p *Pipeline) parse(ctx context.Context, rawPayload string) (*initdata.Payload, error) {
	_, span := p.tracer.Start(ctx, "pipeline.parse")
	defer span.End()

	payload, err := initdata.Parse(rawPayload)
	if err != nil {
		logger.Debug("Failed to parse init payload: %v", err)
		span.RecordError(err)
		return nil, newError(KindParse, err)
	}

	span.SetAttributes(attribute.String("initdata.scheme", payload.Scheme().String()))
	return payload, nil
}

func (p *Pipeline) verify(ctx context.Context, payload *initdata.Payload) error {
	_, span := p.tracer.Start(ctx, "pipeline.verify", trace.WithAttributes(
		attribute.String("initdata.scheme", payload.Scheme().String()),
	))
	defer span.End()

	if err := p.verifier.Verify(payload); err != nil {
		span.RecordError(err)
		return newError(KindVerification, err)
	}
	return nil
}

func (p *Pipeline) checkFreshness(ctx context.Context, authDate, now time.Time) error {
	_, span := p.tracer.Start(ctx, "pipeline.freshness")
	defer span.End()

	if err := p.freshness.Check(authDate, now); err != nil {
		logger.Debug("Stale init payload: %v", err)
		span.RecordError(err)
		return newError(KindStale, err)
	}
	return nil
}
