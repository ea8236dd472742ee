package ardaku

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Option configures a Run invocation.
type Option interface {
	apply(*config)
}

type optionFunc func(*config)

func (f optionFunc) apply(c *config) { f(c) }

type config struct {
	stdout     io.Writer
	stderr     io.Writer
	logger     *logrus.Logger
	registerer prometheus.Registerer
}

func newConfig(opts []Option) *config {
	c := &config{
		logger: logrus.StandardLogger(),
	}
	for _, o := range opts {
		o.apply(c)
	}
	if c.registerer == nil {
		c.registerer = prometheus.NewRegistry()
	}
	return c
}

// WithStdout sets w as the stdout writer of the guest's wazero module
// config. Run instantiates no WASI host module, so a guest that imports WASI
// functions fails to link (ErrLinkerFailed).
func WithStdout(w io.Writer) Option {
	return optionFunc(func(c *config) { c.stdout = w })
}

// WithStderr sets w as the stderr writer of the guest's wazero module
// config. As with WithStdout, no WASI host module is instantiated.
func WithStderr(w io.Writer) Option {
	return optionFunc(func(c *config) { c.stderr = w })
}

// WithLogger sets the logger used for the engine's own diagnostics (bring-up
// failures, trap details). This is independent of System.Log, which carries
// the guest's own log portal traffic.
func WithLogger(l *logrus.Logger) Option {
	return optionFunc(func(c *config) { c.logger = l })
}

// WithMetricsRegisterer registers the engine's Prometheus collectors with r
// instead of a private, per-run registry. Use this to expose engine metrics
// on an embedder's existing /metrics endpoint.
func WithMetricsRegisterer(r prometheus.Registerer) Option {
	return optionFunc(func(c *config) { c.registerer = r })
}
