package bind

import (
	"log/slog"
	"testing"
)

// TestNewServiceDefaults tests the options of a Service created without any.
func TestNewServiceDefaults(t *testing.T) {
	svc := NewService()
	if svc == nil {
		t.Fatal("NewService returned nil")
	}
	if svc.opts.maxExecuteLoops != DefaultMaxExecuteLoops {
		t.Errorf("maxExecuteLoops = %d, want %d", svc.opts.maxExecuteLoops, DefaultMaxExecuteLoops)
	}
	if svc.opts.logger != nil {
		t.Error("logger is set, want package logger fallback")
	}
	if svc.opts.sanityChecks {
		t.Error("sanity checks enabled by default")
	}
}

func TestServiceOptions(t *testing.T) {
	logger := slog.New(nopHandler{})
	tests := []struct {
		name  string
		opts  []Option
		loops int
		check bool
	}{
		{"max loops", []Option{WithMaxExecuteLoops(3)}, 3, false},
		{"zero loops", []Option{WithMaxExecuteLoops(0)}, DefaultMaxExecuteLoops, false},
		{"negative loops", []Option{WithMaxExecuteLoops(-8)}, DefaultMaxExecuteLoops, false},
		{"sanity", []Option{WithSanityChecks(true)}, DefaultMaxExecuteLoops, true},
		{"last wins", []Option{WithSanityChecks(true), WithSanityChecks(false), WithMaxExecuteLoops(2), WithMaxExecuteLoops(5)}, 5, false},
		{"logger", []Option{WithLogger(logger)}, DefaultMaxExecuteLoops, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(tt.opts...)
			if svc.opts.maxExecuteLoops != tt.loops {
				t.Errorf("maxExecuteLoops = %d, want %d", svc.opts.maxExecuteLoops, tt.loops)
			}
			if svc.opts.sanityChecks != tt.check {
				t.Errorf("sanityChecks = %v, want %v", svc.opts.sanityChecks, tt.check)
			}
		})
	}

	svc := NewService(WithLogger(logger))
	if svc.log() != logger {
		t.Error("log() does not return the WithLogger logger")
	}
}
