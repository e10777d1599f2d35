// Package metrics collects and exposes Prometheus metrics for the
// marketplace: join outcomes, rating submissions and HTTP latency.
package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns the application's Prometheus instruments.  One
// instance is created at startup and shared by the handlers.
type Collector struct {
	joins          prometheus.Counter
	joinRejections *prometheus.CounterVec
	ratings        prometheus.Counter
	httpDuration   *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics on the
// given registry.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		joins: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subsplit_joins_total",
			Help: "Number of successfully committed listing joins.",
		}),
		joinRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "subsplit_join_rejections_total",
			Help: "Number of rejected join attempts by reason.",
		}, []string{"reason"}),
		ratings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "subsplit_ratings_submitted_total",
			Help: "Number of stored rating upserts.",
		}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "subsplit_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status code.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}

	reg.MustRegister(
		c.joins,
		c.joinRejections,
		c.ratings,
		c.httpDuration,
	)

	return c
}

// RecordJoin counts a committed join.
func (c *Collector) RecordJoin() {
	c.joins.Inc()
}

// RecordJoinRejection counts a rejected join attempt.  reason is one
// of not_found, own_listing, already_member, no_slots.
func (c *Collector) RecordJoinRejection(reason string) {
	c.joinRejections.WithLabelValues(reason).Inc()
}

// RecordRating counts a stored rating upsert.
func (c *Collector) RecordRating() {
	c.ratings.Inc()
}

// Middleware returns an Echo middleware that observes the duration of
// every request.
func (c *Collector) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			status := ctx.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				}
			}
			c.httpDuration.WithLabelValues(
				ctx.Request().Method,
				ctx.Path(),
				strconv.Itoa(status),
			).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

// Handler returns the HTTP handler serving the /metrics scrape
// endpoint for the given gatherer.
func Handler(gatherer prometheus.Gatherer) echo.HandlerFunc {
	h := promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
	return func(c echo.Context) error {
		h.ServeHTTP(c.Response(), c.Request())
		return nil
	}
}
