package etcd

import (
	"fmt"

	"github.com/gocrud/container/logging"
)

// Builder etcd 客户端配置构建器
type Builder struct {
	configs map[string]EtcdClientOptions
	order   []string
	errors  []error
}

// NewBuilder 创建 etcd 构建器
func NewBuilder() *Builder {
	return &Builder{configs: make(map[string]EtcdClientOptions)}
}

// AddClient 添加一个 etcd 客户端配置
func (b *Builder) AddClient(name string, configure func(*EtcdClientOptions)) *Builder {
	if _, exists := b.configs[name]; exists {
		b.errors = append(b.errors, fmt.Errorf("etcd client '%s' already configured", name))
		return b
	}

	opts := NewDefaultOptions(name)
	if configure != nil {
		configure(opts)
	}

	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid etcd configuration for '%s': %w", name, err))
		return b
	}

	b.configs[name] = *opts
	b.order = append(b.order, name)
	return b
}

// Build 构建 etcd 工厂
func (b *Builder) Build(logger logging.Logger) (*EtcdFactory, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("etcd configuration errors: %v", b.errors)
	}
	if len(b.configs) == 0 {
		return nil, nil
	}

	factory := NewEtcdFactory()
	for _, name := range b.order {
		opts := b.configs[name]
		if err := factory.Register(opts); err != nil {
			return nil, fmt.Errorf("failed to register etcd client '%s': %w", opts.Name, err)
		}

		logger.Info("etcd client registered",
			logging.Field{Key: "name", Value: opts.Name},
			logging.Field{Key: "endpoints", Value: opts.Endpoints})
	}
	return factory, nil
}
