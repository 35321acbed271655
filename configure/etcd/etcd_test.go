package etcd

import (
	"testing"

	"github.com/gocrud/container/logging"
)

func testLogger() logging.Logger {
	return logging.NewLoggingBuilder().
		SetMinimumLevel(logging.LogLevelFatal).
		AddProvider(logging.NewMemoryProvider()).
		Build().
		CreateLogger("test")
}

func TestOptionsValidation(t *testing.T) {
	if err := NewDefaultOptions("main").Validate(); err != nil {
		t.Errorf("The default options must validate: %v", err)
	}

	noName := NewDefaultOptions("")
	if err := noName.Validate(); err == nil {
		t.Error("An empty name must be rejected")
	}

	noEndpoints := NewDefaultOptions("main")
	noEndpoints.Endpoints = nil
	if err := noEndpoints.Validate(); err == nil {
		t.Error("Missing endpoints must be rejected")
	}

	badTimeout := NewDefaultOptions("main")
	badTimeout.DialTimeout = 0
	if err := badTimeout.Validate(); err == nil {
		t.Error("A zero dial timeout must be rejected")
	}
}

func TestBuilderRejectsDuplicates(t *testing.T) {
	builder := NewBuilder()
	builder.AddClient("main", nil)
	builder.AddClient("main", nil)

	if _, err := builder.Build(testLogger()); err == nil {
		t.Error("A duplicate client name must surface at build time")
	}
}

func TestBuilderWithoutClients(t *testing.T) {
	factory, err := NewBuilder().Build(testLogger())
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if factory != nil {
		t.Error("No clients must yield a nil factory")
	}
}
