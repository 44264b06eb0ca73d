package queue

type config struct {
	capacity int
	onDrop   func(reason string)
	onLen    func(n int)
}

// Option applies a configuration option to an InMemoryQueue.
type Option func(*config)

// WithCapacity sets the maximum capacity of the queue.
func WithCapacity(capacity int) Option {
	return func(c *config) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}

// WithDropHook is called with a reason whenever Enqueue refuses an item.
func WithDropHook(fn func(reason string)) Option {
	return func(c *config) {
		c.onDrop = fn
	}
}

// WithLenHook is called with the queue length after it changes.
func WithLenHook(fn func(n int)) Option {
	return func(c *config) {
		c.onLen = fn
	}
}
