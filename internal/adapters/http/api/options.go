package api

import (
	"net/http"
	"time"
)

// Option configures the stream endpoint of a Server.
type Option func(*streamConfig)

// WithStreamBuffer sets the per-client update buffer.
func WithStreamBuffer(n int) Option {
	return func(c *streamConfig) {
		if n > 0 {
			c.buffer = n
		}
	}
}

// WithWriteTimeout bounds each websocket write.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *streamConfig) {
		if d > 0 {
			c.writeTimeout = d
		}
	}
}

// WithPingInterval sets how often idle clients are pinged.
func WithPingInterval(d time.Duration) Option {
	return func(c *streamConfig) {
		if d > 0 {
			c.pingInterval = d
			if c.readTimeout <= d {
				c.readTimeout = 2 * d
			}
		}
	}
}

// WithCheckOrigin overrides the websocket origin check. All origins are accepted by default.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(c *streamConfig) {
		if fn != nil {
			c.checkOrigin = fn
		}
	}
}
