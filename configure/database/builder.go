package database

import (
	"fmt"

	"github.com/gocrud/container/logging"
	"gorm.io/gorm"
)

// Builder 数据库配置构建器
type Builder struct {
	configs []DatabaseOptions
	errors  []error
}

// NewBuilder 创建数据库构建器
func NewBuilder() *Builder {
	return &Builder{}
}

// Add 添加一个数据库配置
func (b *Builder) Add(name string, dialector gorm.Dialector, configure func(*DatabaseOptions)) *Builder {
	opts := NewDefaultOptions(name, dialector)
	if configure != nil {
		configure(opts)
	}

	if err := opts.Validate(); err != nil {
		b.errors = append(b.errors, fmt.Errorf("invalid database configuration for '%s': %w", name, err))
		return b
	}

	b.configs = append(b.configs, *opts)
	return b
}

// Build 构建数据库工厂
func (b *Builder) Build(logger logging.Logger) (*DatabaseFactory, error) {
	if len(b.errors) > 0 {
		return nil, fmt.Errorf("database configuration errors: %v", b.errors)
	}
	if len(b.configs) == 0 {
		return nil, nil
	}

	factory := NewDatabaseFactory()
	for _, opts := range b.configs {
		if err := factory.Register(opts); err != nil {
			return nil, fmt.Errorf("failed to register database '%s': %w", opts.Name, err)
		}

		logger.Info("database registered",
			logging.Field{Key: "name", Value: opts.Name})
	}
	return factory, nil
}
