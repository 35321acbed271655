package redis

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
	valid := NewDefaultOptions("cache")
	if err := valid.Validate(); err != nil {
		t.Errorf("The default options must validate: %v", err)
	}

	cases := map[string]func(*RedisClientOptions){
		"empty name":   func(o *RedisClientOptions) { o.Name = "" },
		"empty addr":   func(o *RedisClientOptions) { o.Addr = "" },
		"negative db":  func(o *RedisClientOptions) { o.DB = -1 },
		"zero timeout": func(o *RedisClientOptions) { o.DialTimeout = 0 },
	}
	for name, mutate := range cases {
		opts := NewDefaultOptions("cache")
		mutate(opts)
		if err := opts.Validate(); err == nil {
			t.Errorf("Expected a validation failure for %s", name)
		}
	}
}

func TestBuilderCollectsErrors(t *testing.T) {
	builder := NewBuilder()
	builder.AddClient("", nil)

	if _, err := builder.Build(testLogger()); err == nil {
		t.Error("Build must surface configuration errors")
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

func TestFactoryRejectsDuplicates(t *testing.T) {
	factory := NewRedisClientFactory()

	opts := NewDefaultOptions("cache")
	opts.SkipPing = true
	if err := factory.Register(*opts); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := factory.Register(*opts); err == nil {
		t.Error("Duplicate registration must fail")
	}

	if _, err := factory.Get("cache"); err != nil {
		t.Errorf("Get failed: %v", err)
	}
	if _, err := factory.Get("missing"); err == nil {
		t.Error("Get of an unknown client must fail")
	}

	if err := factory.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}
