package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"webappauth/identity"
	"webappauth/initdata"
	"webappauth/logger"
)

// DevPipeline принимает неподписанный payload вида user_id=<id>&username=<name>
// и разрешает его через тот же Resolver. Только для локальной разработки:
// конфигурация запрещает его в production.
type DevPipeline struct {
	resolver *identity.Resolver
	metrics  *Metrics
}

// NewDevPipeline создает обход проверки подписи
func NewDevPipeline(resolver *identity.Resolver, metrics *Metrics) *DevPipeline {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	logger.Warn("Development authentication bypass is ENABLED: init payload signatures are not checked")
	return &DevPipeline{resolver: resolver, metrics: metrics}
}

// Authenticate реализует Authenticator
func (d *DevPipeline) Authenticate(ctx context.Context, rawPayload string, now time.Time) (*identity.Record, error) {
	start := time.Now()
	record, err := d.authenticate(ctx, rawPayload)
	d.metrics.observe("dev", err, time.Since(start).Seconds())
	return record, err
}

func (d *DevPipeline) authenticate(ctx context.Context, rawPayload string) (*identity.Record, error) {
	rawPayload = strings.TrimSpace(rawPayload)
	if rawPayload == "" {
		return nil, newError(KindParse, initdata.ErrEmpty)
	}

	values, err := url.ParseQuery(rawPayload)
	if err != nil {
		return nil, newError(KindParse, fmt.Errorf("%w: %v", initdata.ErrMalformed, err))
	}

	rawID := values.Get("user_id")
	if rawID == "" {
		return nil, newError(KindMissingSubject, ErrMissingSubject)
	}
	platformUserID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || platformUserID <= 0 {
		return nil, newError(KindParse, fmt.Errorf("%w: user_id must be a positive integer", initdata.ErrMalformed))
	}

	var username *string
	if name := values.Get("username"); name != "" {
		username = &name
	}

	logger.Warn("Development bypass: resolving unsigned identity for platform user %d", platformUserID)

	record, err := d.resolver.Resolve(ctx, platformUserID, username)
	if err != nil {
		return nil, newError(KindStore, err)
	}
	return record, nil
}
