// monitor/monitor.go
package monitor

import (
	"context"
	"errors"
	"expvar"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wfunc/battleship/game"
	"github.com/wfunc/battleship/logger"
	"github.com/wfunc/battleship/state"
)

type Metrics struct {
	OnlinePlayers    prometheus.Gauge
	CommandsReceived *prometheus.CounterVec
	CommandLatency   prometheus.Histogram
	Shots            *prometheus.CounterVec
	Registrations    prometheus.Counter
	Notifications    *prometheus.CounterVec
	MatchPhase       prometheus.Gauge
	RemainingCells   *prometheus.GaugeVec
	MatchesFinished  prometheus.Counter
}

func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OnlinePlayers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_players",
			Help:      "Number of connected players",
		}),
		CommandsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_received_total",
			Help:      "Commands received on the primary stream",
		}, []string{"command"}),
		CommandLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_latency_seconds",
			Help:      "Time from reading a command to sending its reply",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		Shots: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "shots_total",
			Help:      "Admitted shots by outcome",
		}, []string{"outcome"}),
		Registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Accepted notification endpoint registrations",
		}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Out-of-band notifications by result",
		}, []string{"result"}),
		MatchPhase: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "match_phase",
			Help:      "Phase of the current match: 0 awaiting, 1 in progress, 2 finished",
		}),
		RemainingCells: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "remaining_ship_cells",
			Help:      "Unhit ship cells per player",
		}, []string{"player"}),
		MatchesFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_finished_total",
			Help:      "Matches that reached the finished phase",
		}),
	}

	reg.MustRegister(
		m.OnlinePlayers,
		m.CommandsReceived,
		m.CommandLatency,
		m.Shots,
		m.Registrations,
		m.Notifications,
		m.MatchPhase,
		m.RemainingCells,
		m.MatchesFinished,
	)

	return m
}

var playerLabels = [game.Players]string{"0", "1"}

var publishOnce sync.Once

// Monitor owns a private registry so several can coexist in one process.
type Monitor struct {
	metrics      *Metrics
	registry     *prometheus.Registry
	startTime    time.Time
	commandCount atomic.Int64
}

func NewMonitor(namespace string) *Monitor {
	reg := prometheus.NewRegistry()
	return &Monitor{
		metrics:   NewMetrics(namespace, reg),
		registry:  reg,
		startTime: time.Now(),
	}
}

func (m *Monitor) Metrics() *Metrics {
	return m.metrics
}

// Handler serves /metrics and /debug/vars.
func (m *Monitor) Handler() http.Handler {
	// 添加expvar指标
	publishOnce.Do(func() {
		expvar.Publish("uptime", expvar.Func(func() interface{} {
			return time.Since(m.startTime).Seconds()
		}))
		expvar.Publish("commands", expvar.Func(func() interface{} {
			return m.commandCount.Load()
		}))
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.Handle("/debug/vars", expvar.Handler())
	return mux
}

// Serve runs the metrics endpoint until ctx is cancelled.
func (m *Monitor) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Log.Infof("Metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (m *Monitor) IncOnlinePlayers() {
	m.metrics.OnlinePlayers.Inc()
}

func (m *Monitor) DecOnlinePlayers() {
	m.metrics.OnlinePlayers.Dec()
}

func (m *Monitor) IncCommandsReceived(command string) {
	m.metrics.CommandsReceived.WithLabelValues(command).Inc()
	m.commandCount.Add(1)
}

func (m *Monitor) ObserveCommandLatency(duration time.Duration) {
	m.metrics.CommandLatency.Observe(duration.Seconds())
}

// ObserveNotification counts one out-of-band send.
func (m *Monitor) ObserveNotification(err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.metrics.Notifications.WithLabelValues(result).Inc()
}

// --- 实现 room.Observer 接口 ---

func (m *Monitor) ObserveShot(outcome game.Outcome) {
	m.metrics.Shots.WithLabelValues(outcome.String()).Inc()
}

func (m *Monitor) ObservePhase(phase state.Phase) {
	m.metrics.MatchPhase.Set(float64(phase))
	if phase == state.Finished {
		m.metrics.MatchesFinished.Inc()
	}
}

func (m *Monitor) ObserveRegistration() {
	m.metrics.Registrations.Inc()
}

// ObserveSnapshot refreshes the gauges derived from a session snapshot.
func (m *Monitor) ObserveSnapshot(phase state.Phase, snap game.Snapshot) {
	m.metrics.MatchPhase.Set(float64(phase))
	for i, label := range playerLabels {
		m.metrics.RemainingCells.WithLabelValues(label).Set(float64(snap.Remaining[i]))
	}
}
