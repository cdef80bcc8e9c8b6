package bind

import "log/slog"

// DefaultMaxExecuteLoops is the default bound on passes per ExecuteChanges call.
const DefaultMaxExecuteLoops = 1024

// Option configures a Service during creation.
//
// Example:
//
//	svc := bind.NewService(
//	    bind.WithLogger(logger),
//	    bind.WithSanityChecks(true),
//	)
type Option func(*serviceOptions)

type serviceOptions struct {
	logger          *slog.Logger
	maxExecuteLoops int
	sanityChecks    bool
}

func defaultOptions() serviceOptions {
	return serviceOptions{
		logger:          nil, // falls back to the package logger
		maxExecuteLoops: DefaultMaxExecuteLoops,
	}
}

// WithLogger sets a logger for this Service only.
// Without it the Service logs through the package logger (see SetLogger).
func WithLogger(l *slog.Logger) Option {
	return func(o *serviceOptions) {
		o.logger = l
	}
}

// WithMaxExecuteLoops bounds how many passes ExecuteChanges runs while
// observer callbacks keep producing new changes. Values <= 0 select
// DefaultMaxExecuteLoops.
func WithMaxExecuteLoops(n int) Option {
	return func(o *serviceOptions) {
		if n <= 0 {
			n = DefaultMaxExecuteLoops
		}
		o.maxExecuteLoops = n
	}
}

// WithSanityChecks verifies the graph invariants after every phase of
// ExecuteChanges and logs violations at error level. It is meant for
// tests and debugging; the scan is O(n) per phase.
func WithSanityChecks(enabled bool) Option {
	return func(o *serviceOptions) {
		o.sanityChecks = enabled
	}
}
