package metrics

import "github.com/prometheus/client_golang/prometheus"

type RunnerState int8

const (
	StateIdle RunnerState = iota
	StateRunning
	StateWatching
)

var (
	runnerState = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "egprewriter",
		Name:      "state",
		Help:      "The batch runner state: 0=idle, 1=running, 2=watching",
	})

	archivesProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "egprewriter",
		Name:      "archives_total",
		Help:      "Project archives processed, by outcome",
	}, []string{"status"})

	rewritesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "egprewriter",
		Name:      "rewrites_total",
		Help:      "Schema and table reference substitutions applied",
	})
)

func Init() {
	prometheus.MustRegister(runnerState)
	prometheus.MustRegister(archivesProcessed)
	prometheus.MustRegister(rewritesTotal)
}

func SetRunnerState(state RunnerState) {
	runnerState.Set(float64(state))
}

func ArchiveProcessed(success bool) {
	status := "ok"
	if !success {
		status = "failed"
	}
	archivesProcessed.WithLabelValues(status).Inc()
}

func AddRewrites(n int) {
	rewritesTotal.Add(float64(n))
}
