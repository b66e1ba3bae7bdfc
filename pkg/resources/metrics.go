package resources

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// TracerMiddleware starts a server span per request.
func TracerMiddleware(name string) gin.HandlerFunc {
	return otelgin.Middleware(name)
}

// MeterMiddleware records request count, latency and in-flight requests per route.
func MeterMiddleware(name string) gin.HandlerFunc {
	return NewHTTPMetrics(name).Middleware()
}

type HTTPMetrics struct {
	requests metric.Int64Counter
	latency  metric.Float64Histogram
	inflight metric.Int64UpDownCounter
}

func NewHTTPMetrics(name string) *HTTPMetrics {
	meter := otel.Meter(name)

	requests, _ := meter.Int64Counter(
		"http.server.requests",
		metric.WithDescription("HTTP requests served"),
	)
	latency, _ := meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("HTTP request duration"),
		metric.WithUnit("ms"),
	)
	inflight, _ := meter.Int64UpDownCounter(
		"http.server.active_requests",
		metric.WithDescription("HTTP requests currently being served"),
	)

	return &HTTPMetrics{requests: requests, latency: latency, inflight: inflight}
}

func (m *HTTPMetrics) Middleware() gin.HandlerFunc {
	return func(gctx *gin.Context) {
		ctx := gctx.Request.Context()
		start := time.Now()

		route := gctx.FullPath()
		if route == "" {
			route = "unmatched"
		}

		routeAttr := metric.WithAttributes(attribute.String("http.route", route))
		m.inflight.Add(ctx, 1, routeAttr)
		defer m.inflight.Add(ctx, -1, routeAttr)

		gctx.Next()

		status := gctx.Writer.Status()
		attrs := metric.WithAttributes(
			attribute.String("http.route", route),
			attribute.String("http.method", gctx.Request.Method),
			attribute.Int("http.status_code", status),
			attribute.String("http.status_class", strconv.Itoa(status/100)+"xx"),
		)

		m.requests.Add(ctx, 1, attrs)
		m.latency.Record(ctx, float64(time.Since(start).Microseconds())/1000, attrs)
	}
}
