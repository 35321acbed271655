package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"reflect"
	"sync"
	"syscall"
	"time"

	"github.com/gocrud/container/config"
	"github.com/gocrud/container/di"
	"github.com/gocrud/container/hosting"
	"github.com/gocrud/container/logging"
)

// Application 应用程序接口
type Application interface {
	Run() error
	RunAsync(ctx context.Context) error
	Stop(ctx context.Context) error
	Services() *di.Container
	Configuration() config.Configuration
	Logger() logging.Logger
	Environment() Environment
	GetService(ptr any)
}

// ApplicationBuilder 应用程序构建器
type ApplicationBuilder struct {
	environment          string
	configBuilder        *config.ConfigurationBuilder
	loggingBuilder       *logging.LoggingBuilder
	serviceConfigurators []func(*ServiceCollection)
	configurators        []Configurator
	shutdownTimeout      time.Duration
	mu                   sync.Mutex
}

// NewApplicationBuilder 创建应用程序构建器
func NewApplicationBuilder() *ApplicationBuilder {
	return &ApplicationBuilder{
		environment:     "development",
		configBuilder:   config.NewConfigurationBuilder(),
		loggingBuilder:  logging.NewLoggingBuilder(),
		shutdownTimeout: 30 * time.Second,
	}
}

// UseEnvironment 设置环境
func (b *ApplicationBuilder) UseEnvironment(env string) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.environment = env
	return b
}

// ConfigureConfiguration 配置配置系统
func (b *ApplicationBuilder) ConfigureConfiguration(configure func(*config.ConfigurationBuilder)) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if configure != nil {
		configure(b.configBuilder)
	}
	return b
}

// ConfigureLogging 配置日志系统
func (b *ApplicationBuilder) ConfigureLogging(configure func(*logging.LoggingBuilder)) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if configure != nil {
		configure(b.loggingBuilder)
	}
	return b
}

// ConfigureServices 配置服务
func (b *ApplicationBuilder) ConfigureServices(configure func(*ServiceCollection)) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if configure != nil {
		b.serviceConfigurators = append(b.serviceConfigurators, configure)
	}
	return b
}

// Configure 添加配置器（支持链式调用和可变参数）
func (b *ApplicationBuilder) Configure(configurators ...Configurator) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.configurators = append(b.configurators, configurators...)
	return b
}

// AddExtension 添加应用程序扩展
func (b *ApplicationBuilder) AddExtension(ext Extension) *ApplicationBuilder {
	validateExtension(ext)

	b.mu.Lock()
	defer b.mu.Unlock()

	if sc, ok := ext.(ServiceConfigurator); ok {
		b.serviceConfigurators = append(b.serviceConfigurators, sc.ConfigureServices)
	}
	if ac, ok := ext.(AppConfigurator); ok {
		b.configurators = append(b.configurators, ac.ConfigureBuilder)
	}
	return b
}

// AddOptions 注册配置选项（语法糖，简化配置选项注册）
// 使用示例: core.AddOptions[AppSetting](builder, "app")
func AddOptions[T any](b *ApplicationBuilder, section string) *ApplicationBuilder {
	return b.Configure(func(ctx *BuildContext) {
		ConfigureOptions[T](ctx, section)
	})
}

// AddTask 添加一个简单的后台任务
func (b *ApplicationBuilder) AddTask(task func(ctx context.Context) error) *ApplicationBuilder {
	return b.Configure(func(ctx *BuildContext) {
		ctx.AddHostedService(&functionalService{task: task})
	})
}

// functionalService 函数式托管服务
type functionalService struct {
	task func(ctx context.Context) error
}

func (f *functionalService) Start(ctx context.Context) error {
	return f.task(ctx)
}

func (f *functionalService) Stop(ctx context.Context) error {
	return nil
}

// UseShutdownTimeout 设置关闭超时
func (b *ApplicationBuilder) UseShutdownTimeout(timeout time.Duration) *ApplicationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.shutdownTimeout = timeout
	return b
}

// Build 构建应用程序。
// 配置与日志先就绪，随后全部注册进入容器构建器，最后构建根作用域。
// 集成组件注册的客户端由根作用域的 Disposer 在关闭时统一释放。
func (b *ApplicationBuilder) Build() Application {
	b.mu.Lock()
	defer b.mu.Unlock()

	reloadableConfig, err := b.configBuilder.BuildReloadable()
	if err != nil {
		panic(fmt.Sprintf("app: failed to build configuration: %v", err))
	}

	loggerFactory := b.loggingBuilder.Build()
	logger := loggerFactory.CreateLogger("Application")

	logger.Info("Building application",
		logging.Field{Key: "environment", Value: b.environment})

	containerBuilder := di.NewContainerBuilder()

	// 核心服务注册
	di.Register[config.Configuration](containerBuilder, di.WithValue(reloadableConfig))
	di.Register[*config.ReloadableConfiguration](containerBuilder, di.WithValue(reloadableConfig))
	di.Register[logging.LoggerFactory](containerBuilder, di.WithValue(loggerFactory))
	di.Register[logging.Logger](containerBuilder, di.WithValue(logger))

	environment := NewEnvironment(b.environment)
	di.Register[Environment](containerBuilder, di.WithValue(environment))

	buildContext := &BuildContext{
		builder:       containerBuilder,
		configuration: reloadableConfig,
		logger:        logger,
		environment:   environment,
	}

	for _, configurator := range b.configurators {
		configurator(buildContext)
	}

	services := &ServiceCollection{buildContext: buildContext}
	for _, configurator := range b.serviceConfigurators {
		configurator(services)
	}

	root, err := containerBuilder.Build()
	if err != nil {
		logger.Fatal("Failed to build the container",
			logging.Field{Key: "error", Value: err.Error()})
	}

	logger.Info("Container built successfully")

	// 托管服务：直接添加的实例加上从容器解析的注册
	hostedServices := make([]hosting.HostedService, 0, len(buildContext.hostedServices)+len(buildContext.hostedResolvers))
	hostedServices = append(hostedServices, buildContext.hostedServices...)

	for _, resolve := range buildContext.hostedResolvers {
		service, err := resolve(root)
		if err != nil {
			logger.Fatal("Failed to resolve hosted service",
				logging.Field{Key: "error", Value: err.Error()})
		}
		hostedServices = append(hostedServices, service)
	}

	return &application{
		root:            root,
		configuration:   reloadableConfig,
		configBuilder:   b.configBuilder,
		logger:          logger,
		environment:     environment,
		hostedServices:  hostedServices,
		shutdownTimeout: b.shutdownTimeout,
		stopCh:          make(chan struct{}),
	}
}

// application 应用程序实现
type application struct {
	root            *di.Container
	configuration   *config.ReloadableConfiguration
	configBuilder   *config.ConfigurationBuilder
	logger          logging.Logger
	environment     Environment
	hostedServices  []hosting.HostedService
	serviceManager  *hosting.HostedServiceManager
	shutdownTimeout time.Duration
	stopCh          chan struct{}
	running         bool
	runCtx          context.Context
	runCancel       context.CancelFunc
	mu              sync.Mutex
}

// Run 运行应用程序（阻塞）
func (a *application) Run() error {
	return a.RunAsync(context.Background())
}

// RunAsync 异步运行应用程序
func (a *application) RunAsync(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return errors.New("app: application is already running")
	}
	a.running = true
	a.runCtx, a.runCancel = context.WithCancel(ctx)
	a.mu.Unlock()

	a.logger.Info("Starting application",
		logging.Field{Key: "environment", Value: a.environment.Name()})

	// 启动支持监听的配置源，变更时触发重载
	watchables := a.watchableSources()
	for _, source := range watchables {
		if err := source.StartWatch(a.runCtx, func() {
			if err := a.configuration.Reload(); err != nil {
				a.logger.Error("Failed to reload configuration",
					logging.Field{Key: "error", Value: err.Error()})
			} else {
				a.logger.Info("Configuration reloaded successfully")
			}
		}); err != nil {
			a.logger.Warn("Failed to start config watch",
				logging.Field{Key: "source", Value: source.Name()},
				logging.Field{Key: "error", Value: err.Error()})
		}
	}

	a.serviceManager = hosting.NewHostedServiceManager(a.logger)
	for _, service := range a.hostedServices {
		a.serviceManager.Add(service)
	}
	errCh := a.serviceManager.StartAll(a.runCtx)

	a.logger.Info("Application started successfully")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-sigCh:
		a.logger.Info("Received shutdown signal",
			logging.Field{Key: "signal", Value: sig.String()})
	case <-a.stopCh:
		a.logger.Info("Application stop requested")
	case <-ctx.Done():
		a.logger.Info("Context cancelled")
	case err := <-errCh:
		a.logger.Error("Hosted service failed, stopping application",
			logging.Field{Key: "error", Value: err.Error()})
		runErr = err
	}

	a.logger.Info("Shutting down application",
		logging.Field{Key: "timeout", Value: a.shutdownTimeout.String()})

	a.runCancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
	defer cancel()

	if err := a.serviceManager.StopAll(shutdownCtx); err != nil {
		a.logger.Error("Failed to stop hosted services",
			logging.Field{Key: "error", Value: err.Error()})
	}
	a.serviceManager.Wait()

	for _, source := range watchables {
		source.StopWatch()
	}

	// 释放根作用域：集成组件登记的客户端按登记逆序关闭
	if err := a.root.DisposeAsync(shutdownCtx); err != nil {
		a.logger.Error("Failed to dispose the root scope",
			logging.Field{Key: "error", Value: err.Error()})
	}

	a.logger.Info("Application stopped")

	a.mu.Lock()
	a.running = false
	a.mu.Unlock()
	return runErr
}

func (a *application) watchableSources() []config.WatchableSource {
	var watchables []config.WatchableSource
	for _, source := range a.configBuilder.GetSources() {
		if w, ok := source.(config.WatchableSource); ok {
			watchables = append(watchables, w)
		}
	}
	return watchables
}

// Stop 停止应用程序
func (a *application) Stop(ctx context.Context) error {
	close(a.stopCh)
	return nil
}

// Services 获取根作用域
func (a *application) Services() *di.Container {
	return a.root
}

// Configuration 获取配置
func (a *application) Configuration() config.Configuration {
	return a.configuration
}

// Logger 获取日志记录器
func (a *application) Logger() logging.Logger {
	return a.logger
}

// Environment 获取环境
func (a *application) Environment() Environment {
	return a.environment
}

// GetService 获取服务实例（通过指针参数）
//
// 使用示例：
//
//	var myService *MyService
//	app.GetService(&myService)
func (a *application) GetService(ptr any) {
	ptrValue := reflect.ValueOf(ptr)
	if ptrValue.Kind() != reflect.Pointer {
		panic(fmt.Sprintf("app: GetService argument must be a pointer, got %T", ptr))
	}

	elemValue := ptrValue.Elem()
	if !elemValue.CanSet() {
		panic("app: GetService argument must be settable")
	}

	instance, err := a.root.Resolve(di.NewService(elemValue.Type()))
	if err != nil {
		panic(fmt.Sprintf("app: failed to get service %s: %v", elemValue.Type(), err))
	}
	elemValue.Set(reflect.ValueOf(instance))
}

// Environment 环境接口
type Environment interface {
	Name() string
	IsDevelopment() bool
	IsProduction() bool
	IsStaging() bool
}

// environment 环境实现
type environment struct {
	name string
}

// NewEnvironment 创建环境
func NewEnvironment(name string) Environment {
	return &environment{name: name}
}

func (e *environment) Name() string { return e.name }

func (e *environment) IsDevelopment() bool { return e.name == "development" }

func (e *environment) IsProduction() bool { return e.name == "production" }

func (e *environment) IsStaging() bool { return e.name == "staging" }
