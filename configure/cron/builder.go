package cron

import (
	"fmt"
	"reflect"

	"github.com/gocrud/container/di"
	"github.com/gocrud/container/hosting"
	"github.com/gocrud/container/logging"
)

// Builder Cron 配置构建器
type Builder struct {
	enableSeconds bool
	location      string
	jobs          []jobDefinition
}

// jobDefinition 任务定义
type jobDefinition struct {
	spec    string
	name    string
	handler any // func() 或带依赖注入的函数
}

// NewBuilder 创建 Cron 构建器
func NewBuilder() *Builder {
	return &Builder{location: "UTC"}
}

// WithSeconds 启用秒级精度
func (b *Builder) WithSeconds() *Builder {
	b.enableSeconds = true
	return b
}

// WithLocation 设置时区
func (b *Builder) WithLocation(location string) *Builder {
	b.location = location
	return b
}

// AddJob 添加简单任务（无依赖注入）
func (b *Builder) AddJob(spec, name string, handler func()) *Builder {
	b.jobs = append(b.jobs, jobDefinition{spec: spec, name: name, handler: handler})
	return b
}

// AddJobWithDI 添加带依赖注入的任务。
// handler 可以是任何函数，每次运行开启一个匿名子作用域，
// 参数从该作用域解析，运行结束作用域随即释放。
//
// 示例：
//
//	builder.AddJobWithDI("0 */5 * * * *", "sync-data", func(svc *DataService, logger logging.Logger) {
//	    svc.Sync()
//	})
func (b *Builder) AddJobWithDI(spec, name string, handler any) *Builder {
	b.jobs = append(b.jobs, jobDefinition{spec: spec, name: name, handler: handler})
	return b
}

// build 构建调度服务（容器构建完成后调用）
func (b *Builder) build(root *di.Container, logger logging.Logger) (hosting.HostedService, error) {
	svc, err := newService(logger, func(opts *options) {
		opts.EnableSeconds = b.enableSeconds
		opts.Location = b.location
	})
	if err != nil {
		return nil, err
	}

	for _, job := range b.jobs {
		var handler func()

		switch h := job.handler.(type) {
		case func():
			handler = h
		default:
			wrapped, err := wrapHandlerWithScope(root, logger, job.name, job.handler)
			if err != nil {
				return nil, fmt.Errorf("failed to wrap job '%s': %w", job.name, err)
			}
			handler = wrapped
		}

		if err := svc.addJob(job.spec, job.name, handler); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// wrapHandlerWithScope 包装处理器：每次运行在新的子作用域内解析参数。
func wrapHandlerWithScope(root *di.Container, logger logging.Logger, name string, handler any) (func(), error) {
	handlerValue := reflect.ValueOf(handler)
	handlerType := handlerValue.Type()

	if handlerType.Kind() != reflect.Func {
		return nil, fmt.Errorf("handler must be a function, got %v", handlerType.Kind())
	}

	return func() {
		scope, err := root.BeginLifetimeScope()
		if err != nil {
			logger.Error("failed to begin the job scope",
				logging.Field{Key: "job", Value: name},
				logging.Field{Key: "error", Value: err.Error()})
			return
		}
		defer func() {
			if err := scope.Dispose(); err != nil {
				logger.Error("failed to dispose the job scope",
					logging.Field{Key: "job", Value: name},
					logging.Field{Key: "error", Value: err.Error()})
			}
		}()

		args := make([]reflect.Value, handlerType.NumIn())
		for i := range args {
			paramType := handlerType.In(i)

			instance, err := scope.Resolve(di.NewService(paramType))
			if err != nil {
				logger.Error(fmt.Sprintf("failed to resolve parameter %d (%v) for cron job", i, paramType),
					logging.Field{Key: "job", Value: name},
					logging.Field{Key: "error", Value: err.Error()})
				return
			}
			args[i] = reflect.ValueOf(instance)
		}

		handlerValue.Call(args)
	}, nil
}
