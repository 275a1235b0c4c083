package analysis

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/intellibus/insights/internal/eventlog"
)

// DefaultConcurrency bounds the number of simultaneous model calls per operation.
const DefaultConcurrency = 4

type options struct {
	logger      *logrus.Logger
	events      *eventlog.Logger
	concurrency int
}

// Option configures an analyzer.
type Option func(*options)

// WithLogger sets the logger. Analyzers log nothing by default.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithEventLog records completed analyses.
func WithEventLog(l *eventlog.Logger) Option {
	return func(o *options) { o.events = l }
}

// WithConcurrency bounds fan-out; values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n >= 1 {
			o.concurrency = n
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{concurrency: DefaultConcurrency}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logrus.New()
		o.logger.SetOutput(io.Discard)
	}
	return o
}
