package logging

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	logger, err := New(false)
	if err != nil {
		t.Fatalf("New(false) failed: %v", err)
	}
	if logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("non-debug CLI logger should not print info")
	}
	if !logger.Core().Enabled(zapcore.WarnLevel) {
		t.Error("non-debug CLI logger should print warnings")
	}

	debug, err := New(true)
	if err != nil {
		t.Fatalf("New(true) failed: %v", err)
	}
	if !debug.Core().Enabled(zapcore.DebugLevel) {
		t.Error("debug logger should print debug messages")
	}
}

func TestNewService(t *testing.T) {
	logger, err := NewService(false)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if !logger.Core().Enabled(zapcore.InfoLevel) {
		t.Error("service logger should print info")
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Fatal("OrNop(nil) should return a logger")
	}
	l := zap.NewExample()
	if OrNop(l) != l {
		t.Error("OrNop should keep a non-nil logger")
	}
}

func TestMustPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Must should panic on error")
		}
	}()
	Must(nil, errors.New("boom"))
}
