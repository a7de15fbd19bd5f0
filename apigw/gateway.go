package apigw

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"webappauth/logger"
)

// Gateway представляет модуль API Gateway
type Gateway struct {
	config         Config
	handler        RequestHandler
	parser         *RequestParser
	responseWriter *ResponseWriter
	server         *http.Server
	metrics        *Metrics
}

// New создает новый экземпляр API Gateway
func New(config Config, handler RequestHandler, metrics *Metrics) *Gateway {
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Gateway{
		config:         config,
		handler:        handler,
		parser:         NewRequestParser(),
		responseWriter: NewResponseWriter(),
		metrics:        metrics,
	}
}

// ServeHTTP реализует интерфейс http.Handler
func (gw *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	logger.Debug("Incoming request: %s %s from %s", r.Method, r.URL.Path, r.RemoteAddr)

	if gw.config.RequestTimeout > 0 {
		ctx, cancel := context.WithTimeout(r.Context(), gw.config.RequestTimeout)
		defer cancel()
		r = r.WithContext(ctx)
	}

	req, err := gw.parser.Parse(r)
	if err != nil {
		logger.Debug("Failed to parse request: %v", err)
		resp := &AuthResponse{Error: err}
		if err := gw.responseWriter.WriteResponse(w, resp); err != nil {
			logger.Error("Failed to write response: %v", err)
		}
		gw.observe(UnsupportedRoute, resp.StatusCode, start)
		return
	}

	resp := gw.handler.Handle(req)
	if err := gw.responseWriter.WriteResponse(w, resp); err != nil {
		logger.Error("Failed to write response: %v", err)
	}

	logger.Info("%s %s -> %d, %.3f ms", r.Method, r.URL.Path, resp.StatusCode,
		float64(time.Since(start).Microseconds())/1000.0)
	gw.observe(req.Route, resp.StatusCode, start)
}

func (gw *Gateway) observe(route Route, status int, start time.Time) {
	gw.metrics.RequestsTotal.WithLabelValues(route.String(), strconv.Itoa(status)).Inc()
	gw.metrics.RequestLatency.WithLabelValues(route.String()).Observe(time.Since(start).Seconds())
}

// Handler возвращает шлюз, обернутый трассировкой otelhttp
func (gw *Gateway) Handler() http.Handler {
	return otelhttp.NewHandler(gw, "webappauth.apigw")
}

// Start запускает сервер
func (gw *Gateway) Start() error {
	gw.server = &http.Server{
		Addr:         gw.config.ListenAddress,
		Handler:      gw.Handler(),
		ReadTimeout:  gw.config.ReadTimeout,
		WriteTimeout: gw.config.WriteTimeout,
	}

	logger.Info("Starting API Gateway on %s", gw.config.ListenAddress)

	if gw.config.TLSCertFile != "" && gw.config.TLSKeyFile != "" {
		logger.Info("Starting HTTPS server with TLS")
		return gw.server.ListenAndServeTLS(gw.config.TLSCertFile, gw.config.TLSKeyFile)
	}

	logger.Info("Starting HTTP server")
	return gw.server.ListenAndServe()
}

// Stop останавливает сервер
func (gw *Gateway) Stop(ctx context.Context) error {
	if gw.server == nil {
		return nil
	}

	logger.Info("Stopping API Gateway...")
	return gw.server.Shutdown(ctx)
}
