package core

import (
	"github.com/gocrud/container/config"
	"github.com/gocrud/container/di"
	"github.com/gocrud/container/hosting"
	"github.com/gocrud/container/logging"
)

// Configurator 配置器函数类型
// 配置器用于扩展应用程序，可以注册服务、添加托管服务等
type Configurator func(*BuildContext)

// BuildContext 构建上下文
// 提供给配置器的上下文环境。注册发生在容器构建之前，
// 全部通过 Builder 进入容器构建器。
type BuildContext struct {
	builder       *di.ContainerBuilder
	configuration config.Configuration
	logger        logging.Logger
	environment   Environment

	// hostedServices 直接添加的托管服务实例
	hostedServices []hosting.HostedService

	// hostedResolvers 容器构建完成后解析托管服务的回调
	hostedResolvers []func(root *di.Container) (hosting.HostedService, error)
}

// Builder 返回容器构建器，配置器通过它注册服务。
// 使用示例: di.Register[MyService](ctx.Builder(), ...)
func (c *BuildContext) Builder() *di.ContainerBuilder {
	return c.builder
}

// AddHostedService 添加托管服务实例
func (c *BuildContext) AddHostedService(service hosting.HostedService) {
	c.hostedServices = append(c.hostedServices, service)
}

// AddHostedServiceResolver 添加在容器构建完成后解析托管服务的回调。
// 托管服务需要根作用域时使用（如为每个请求或每次任务运行开子作用域）。
func (c *BuildContext) AddHostedServiceResolver(resolve func(root *di.Container) (hosting.HostedService, error)) {
	c.hostedResolvers = append(c.hostedResolvers, resolve)
}

// GetLogger 获取日志记录器
func (c *BuildContext) GetLogger() logging.Logger {
	return c.logger
}

// GetConfiguration 获取配置对象
func (c *BuildContext) GetConfiguration() config.Configuration {
	return c.configuration
}

// GetEnvironment 获取环境信息
func (c *BuildContext) GetEnvironment() Environment {
	return c.environment
}

// AddHostedServiceType 注册托管服务类型 T 并在容器构建后解析它。
// T 的依赖由容器注入。
// 使用示例: core.AddHostedServiceType[*SyncWorker](ctx, di.WithFactory(NewSyncWorker))
func AddHostedServiceType[T hosting.HostedService](ctx *BuildContext, opts ...di.Option) {
	di.Register[T](ctx.builder, opts...)
	ctx.hostedResolvers = append(ctx.hostedResolvers, func(root *di.Container) (hosting.HostedService, error) {
		return di.Resolve[T](root)
	})
}

// ConfigureOptions 配置选项模式（支持静态、快照和监听三种模式）
// T: 配置类型；section: 配置节名称（例如 "app", "database"）。
// 使用示例: core.ConfigureOptions[AppSetting](ctx, "app")
func ConfigureOptions[T any](ctx *BuildContext, section string) {
	cache := config.NewOptionsCache[T](ctx.configuration, section)

	// Option[T]：应用生命周期内不变
	di.Register[config.Option[T]](ctx.builder,
		di.WithValue(config.NewOption(cache.Get())))

	// OptionMonitor[T]：实时更新，配置重载后自动刷新
	di.Register[config.OptionMonitor[T]](ctx.builder,
		di.WithValue(config.NewOptionMonitor(cache)))

	// OptionSnapshot[T]：每个作用域创建时的快照
	di.Register[config.OptionSnapshot[T]](ctx.builder,
		di.WithFactory(func() config.OptionSnapshot[T] {
			return config.NewOptionSnapshot(cache.Snapshot())
		}),
		di.WithScoped())

	ctx.logger.Info("Configured options",
		logging.Field{Key: "type", Value: di.TypeOf[T]().String()},
		logging.Field{Key: "section", Value: section})
}

// ServiceCollection 服务集合，ConfigureServices 阶段的注册入口
type ServiceCollection struct {
	buildContext *BuildContext
}

// Builder 返回容器构建器
func (s *ServiceCollection) Builder() *di.ContainerBuilder {
	return s.buildContext.builder
}

// AddHostedService 添加托管服务实例
func (s *ServiceCollection) AddHostedService(service hosting.HostedService) {
	s.buildContext.AddHostedService(service)
}
