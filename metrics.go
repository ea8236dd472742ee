package ardaku

import "github.com/prometheus/client_golang/prometheus"

// metrics are the engine's own Prometheus collectors. By default each Run
// registers them with its own private registry, so running more than one
// guest (in tests, or concurrently) never double-registers a collector. A
// registerer passed through WithMetricsRegisterer receives a fresh set of
// collectors on every Run; passing the same one to a second Run panics in
// MustRegister.
type metrics struct {
	commandsDispatched prometheus.Counter
	traps              prometheus.Counter
	logsByLevel        *prometheus.CounterVec
	promptsQueued      prometheus.Counter
	sleeps             prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		commandsDispatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ardaku",
			Name:      "commands_dispatched_total",
			Help:      "Commands routed by the ar dispatcher, across all channels.",
		}),
		traps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ardaku",
			Name:      "traps_total",
			Help:      "Guest runs that ended in a crash, from a host trap or a fault of the guest itself.",
		}),
		logsByLevel: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ardaku",
			Name:      "log_messages_total",
			Help:      "Log portal messages forwarded to the embedder, by level.",
		}, []string{"level"}),
		promptsQueued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ardaku",
			Name:      "prompt_requests_total",
			Help:      "Prompt portal read-line requests queued with the embedder.",
		}),
		sleeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ardaku",
			Name:      "sleeps_total",
			Help:      "Times the dispatcher suspended in the embedder's Sleep.",
		}),
	}

	reg.MustRegister(m.commandsDispatched, m.traps, m.logsByLevel, m.promptsQueued, m.sleeps)
	return m
}
