package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Metrics groups the client-side counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	actions        *prometheus.CounterVec
	operations     *prometheus.CounterVec
	rollbacks      prometheus.Counter
	fetchSeconds   prometheus.Histogram
	realtimeEvents *prometheus.CounterVec
	reconnects     prometheus.Counter
	notifications  prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parrillas",
			Name:      "store_actions_total",
			Help:      "State transitions applied to the view-model store.",
		}, []string{"action"}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parrillas",
			Name:      "store_operations_total",
			Help:      "Backend operations issued by the store, by outcome.",
		}, []string{"op", "outcome"}),
		rollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "parrillas",
			Name:      "optimistic_rollbacks_total",
			Help:      "Optimistic status changes reverted after a backend failure.",
		}),
		fetchSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "parrillas",
			Name:      "fetch_all_seconds",
			Help:      "Duration of full board fetches.",
			Buckets:   prometheus.DefBuckets,
		}),
		realtimeEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "parrillas",
			Name:      "realtime_events_total",
			Help:      "Change events received from the realtime feed.",
		}, []string{"table", "type"}),
		reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "parrillas",
			Name:      "realtime_reconnects_total",
			Help:      "Realtime feed reconnections.",
		}),
		notifications: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "parrillas",
			Name:      "notifications_received_total",
			Help:      "Notifications delivered to the current user.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.actions,
		m.operations,
		m.rollbacks,
		m.fetchSeconds,
		m.realtimeEvents,
		m.reconnects,
		m.notifications,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Action(name string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(name).Inc()
}

func (m *Metrics) Operation(op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.operations.WithLabelValues(op, outcome).Inc()
}

func (m *Metrics) Rollback() {
	if m == nil {
		return
	}
	m.rollbacks.Inc()
}

func (m *Metrics) ObserveFetch(d time.Duration) {
	if m == nil {
		return
	}
	m.fetchSeconds.Observe(d.Seconds())
}

func (m *Metrics) RealtimeEvent(table, typ string) {
	if m == nil {
		return
	}
	m.realtimeEvents.WithLabelValues(table, typ).Inc()
}

func (m *Metrics) Reconnect() {
	if m == nil {
		return
	}
	m.reconnects.Inc()
}

func (m *Metrics) Notification() {
	if m == nil {
		return
	}
	m.notifications.Inc()
}

type errorLog struct{ log logrus.FieldLogger }

func (l errorLog) Println(v ...interface{}) { l.log.Error(v...) }

func (m *Metrics) Handler(log logrus.FieldLogger) http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      errorLog{log: log},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, log logrus.FieldLogger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler(log))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
