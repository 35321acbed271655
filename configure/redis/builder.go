package redis

import (
	"fmt"

	"github.com/gocrud/container/logging"
)

// Builder Redis 客户端配置构建器
type Builder struct {
	configs []RedisClientOptions
	errors  []error
}

// NewBuilder 创建 Redis 构建器
func NewBuilder() *Builder {
	return &Builder{}
}

// AddClient 添加一个 Redis 客户端配置
func (b *Builder) AddClient(name string, configure func(*RedisClientOptions)) *Builder {
	opts := NewDefaultOptions(name)
	if configure != nil {
		configure(opts)
	}

	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid redis configuration for '%s': %w", name, err))
		return b
	}

	b.configs = append(b.configs, *opts)
	return b
}

// Build 构建 Redis 客户端工厂
func (b *Builder) Build(logger logging.Logger) (*RedisClientFactory, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("redis configuration errors: %v", b.errors)
	}
	if len(b.configs) == 0 {
		return nil, nil
	}

	factory := NewRedisClientFactory()
	for _, opts := range b.configs {
		if err := factory.Register(opts); err != nil {
			return nil, fmt.Errorf("failed to register redis client '%s': %w", opts.Name, err)
		}

		logger.Info("redis client registered",
			logging.Field{Key: "name", Value: opts.Name},
			logging.Field{Key: "addr", Value: opts.Addr},
			logging.Field{Key: "db", Value: opts.DB})
	}
	return factory, nil
}
