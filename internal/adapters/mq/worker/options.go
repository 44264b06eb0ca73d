package worker

import (
	"time"

	"github.com/okian/arenasync/pkg/logger"
)

// Option applies a configuration option to a FetchWorker.
type Option func(*FetchWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *FetchWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *FetchWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithRequestTimeout bounds each fetch.
func WithRequestTimeout(d time.Duration) Option {
	return func(w *FetchWorker) {
		if d > 0 {
			w.timeout = d
		}
	}
}
