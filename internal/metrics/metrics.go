package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics holds the progress store counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Mutations          *prometheus.CounterVec
	Notifications      *prometheus.CounterVec
	SideEffectFailures *prometheus.CounterVec
	PersistFailures    *prometheus.CounterVec
}

// New creates the counters and registers them on reg
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "progress_mutations_total",
				Help: "Total number of accepted progress mutations",
			},
			[]string{"op"},
		),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "progress_notifications_total",
				Help: "Total number of achievement notifications triggered",
			},
			[]string{"kind"},
		),
		SideEffectFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "progress_side_effect_failures_total",
				Help: "Total number of failed notification or sound calls",
			},
			[]string{"kind"},
		),
		PersistFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "progress_persist_failures_total",
				Help: "Total number of failed persistence loads and saves",
			},
			[]string{"op"},
		),
	}

	for _, c := range []prometheus.Collector{m.Mutations, m.Notifications, m.SideEffectFailures, m.PersistFailures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Mutation(op string) {
	if m != nil {
		m.Mutations.WithLabelValues(op).Inc()
	}
}

func (m *Metrics) Notification(kind string) {
	if m != nil {
		m.Notifications.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) SideEffectFailure(kind string) {
	if m != nil {
		m.SideEffectFailures.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) PersistFailure(op string) {
	if m != nil {
		m.PersistFailures.WithLabelValues(op).Inc()
	}
}

// Serve exposes /metrics on addr until ctx is cancelled
func Serve(ctx context.Context, addr string, gatherer prometheus.Gatherer, log *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics server shutdown", zap.Error(err))
		}
	}()

	log.Info("metrics listener started", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
