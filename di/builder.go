package di

import (
	"fmt"
	"reflect"
	"sync"
)

// registrationConfig 注册的可变配置，由 Option 填充。
type registrationConfig struct {
	serviceType   reflect.Type
	key           any
	extraServices []Service

	value      any
	hasValue   bool
	factory    any
	delegate   func(*RequestContext) (any, error)
	implType   reflect.Type
	lifetime   Lifetime
	sharing    SharingMode
	ownership  OwnershipMode
	middleware []Middleware
	activated  []func(*RequestContext, any)
}

// Option 配置服务注册。
type Option func(*registrationConfig)

// Use 指定接口的实现类型。
func Use[T any]() Option {
	return func(c *registrationConfig) {
		c.implType = TypeOf[T]()
	}
}

// WithValue 注册预创建的实例。实例默认外部所有。
func WithValue(v any) Option {
	return func(c *registrationConfig) {
		c.value = v
		c.hasValue = true
		c.ownership = ownershipExternallyOwned
	}
}

// WithFactory 注册工厂函数，参数自动注入。
func WithFactory(fn any) Option {
	return func(c *registrationConfig) {
		c.factory = fn
	}
}

// WithDelegate 注册接收请求上下文的委托工厂。
// 委托可访问激活作用域、参数，以及开启请求栈段。
func WithDelegate(fn func(ctx *RequestContext) (any, error)) Option {
	return func(c *registrationConfig) {
		c.delegate = fn
	}
}

// WithName 设置服务的名称键，用于命名注入。
func WithName(name string) Option {
	return func(c *registrationConfig) {
		c.key = name
	}
}

// WithKey 设置服务键（任意可比较值，常用 Token）。
func WithKey(key any) Option {
	return func(c *registrationConfig) {
		c.key = key
	}
}

// As 让注册额外提供服务类型 T。
func As[T any]() Option {
	return func(c *registrationConfig) {
		c.extraServices = append(c.extraServices, TypedService[T]())
	}
}

// WithSingleton 根作用域共享（默认）。
// 在整个容器生命周期内只创建一次实例。
func WithSingleton() Option {
	return func(c *registrationConfig) {
		c.lifetime = RootScopeLifetime{}
		c.sharing = SharingShared
	}
}

// WithTransient 瞬态：每次解析创建新实例，不缓存。
func WithTransient() Option {
	return func(c *registrationConfig) {
		c.lifetime = CurrentScopeLifetime{}
		c.sharing = SharingNone
	}
}

// WithScoped 作用域内共享：同一作用域内复用，不同作用域互相独立。
func WithScoped() Option {
	return func(c *registrationConfig) {
		c.lifetime = CurrentScopeLifetime{}
		c.sharing = SharingShared
	}
}

// WithMatchingScope 标签匹配共享：实例归属最近的标签匹配的祖先作用域。
func WithMatchingScope(tags ...any) Option {
	return func(c *registrationConfig) {
		c.lifetime = NewMatchingScopeLifetime(tags...)
		c.sharing = SharingShared
	}
}

// ExternallyOwned 实例由外部代码释放，作用域不跟踪。
func ExternallyOwned() Option {
	return func(c *registrationConfig) {
		c.ownership = ownershipExternallyOwned
	}
}

// OwnedByScope 实例由所属作用域释放。
// 用于把 WithValue 注册的实例交给作用域托管。
func OwnedByScope() Option {
	return func(c *registrationConfig) {
		c.ownership = OwnedByLifetimeScope
	}
}

// WithMiddleware 为注册管线追加中间件。
func WithMiddleware(mw ...Middleware) Option {
	return func(c *registrationConfig) {
		c.middleware = append(c.middleware, mw...)
	}
}

// OnActivated 实例新激活后回调。共享实例命中缓存时不触发。
func OnActivated(handler func(ctx *RequestContext, instance any)) Option {
	return func(c *registrationConfig) {
		c.activated = append(c.activated, handler)
	}
}

// decoratorConfig 装饰器注册配置。
type decoratorConfig struct {
	serviceType reflect.Type
	factory     any
}

// serviceMiddlewareConfig 服务级中间件配置。
type serviceMiddlewareConfig struct {
	service    Service
	middleware []Middleware
}

// ContainerBuilder 收集注册并构建容器（根作用域）。
// 也用于 BeginLifetimeScope 的叠加注册。
type ContainerBuilder struct {
	mu                sync.Mutex
	configs           []*registrationConfig
	decorators        []decoratorConfig
	sources           []RegistrationSource
	serviceMiddleware []serviceMiddlewareConfig
	properties        map[string]any
	sink              DiagnosticSink
	built             bool
}

// NewContainerBuilder 创建容器构建器。
func NewContainerBuilder() *ContainerBuilder {
	return &ContainerBuilder{properties: make(map[string]any)}
}

// Register 注册服务类型 T。
// 如果 T 是接口，用 di.Use[Impl]()、di.WithFactory 或 di.WithValue
// 指定实现。默认生命周期为单例。
func Register[T any](b *ContainerBuilder, opts ...Option) {
	typ := TypeOf[T]()

	cfg := &registrationConfig{
		serviceType: typ,
		implType:    typ,
		lifetime:    RootScopeLifetime{},
		sharing:     SharingShared,
		ownership:   OwnedByLifetimeScope,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.configs = append(b.configs, cfg)
}

// RegisterDecorator 注册服务类型 T 的装饰器。
// factory 是工厂函数，其类型为 T 的参数接收被包裹的实例，
// 其余参数自动注入。装饰器按注册顺序应用。
func RegisterDecorator[T any](b *ContainerBuilder, factory any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.decorators = append(b.decorators, decoratorConfig{
		serviceType: TypeOf[T](),
		factory:     factory,
	})
}

// RegisterSource 注册一个动态注册 source。
func (b *ContainerBuilder) RegisterSource(src RegistrationSource) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources = append(b.sources, src)
}

// UseServiceMiddleware 为服务追加服务级中间件。
func (b *ContainerBuilder) UseServiceMiddleware(service Service, mw ...Middleware) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.serviceMiddleware = append(b.serviceMiddleware, serviceMiddlewareConfig{service: service, middleware: mw})
}

// SetProperty 设置注册表属性。
func (b *ContainerBuilder) SetProperty(key string, value any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.properties[key] = value
}

// UseDiagnosticSink 设置诊断接收器，容器及其全部作用域共用。
func (b *ContainerBuilder) UseDiagnosticSink(sink DiagnosticSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sink = sink
}

// Build 构建容器并返回根作用域。构建器只能 Build 一次。
func (b *ContainerBuilder) Build() (*Container, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.built {
		return nil, fmt.Errorf("di: the container builder has already been built")
	}
	b.built = true

	registry := newRegistry()
	if err := b.applyLocked(registry); err != nil {
		return nil, err
	}
	registry.register(newSelfRegistration())

	return newRootScope(registry, b.sink), nil
}

// applyTo 把收集的注册叠加到已有注册表上（子作用域路径）。
func (b *ContainerBuilder) applyTo(registry *ComponentRegistry) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.applyLocked(registry)
}

func (b *ContainerBuilder) applyLocked(registry *ComponentRegistry) error {
	for _, cfg := range b.configs {
		reg, err := buildRegistration(cfg)
		if err != nil {
			return err
		}
		registry.register(reg)
	}
	for _, dec := range b.decorators {
		reg, err := buildDecoratorRegistration(dec)
		if err != nil {
			return err
		}
		registry.registerDecorator(NewService(dec.serviceType), reg)
	}
	for _, src := range b.sources {
		registry.addSource(src)
	}
	for _, cfg := range b.serviceMiddleware {
		registry.useServiceMiddleware(cfg.service, cfg.middleware...)
	}
	for key, value := range b.properties {
		registry.setProperty(key, value)
	}
	return nil
}

// buildRegistration 从配置产出不可变注册。
func buildRegistration(cfg *registrationConfig) (*Registration, error) {
	activator, err := buildActivator(cfg)
	if err != nil {
		return nil, err
	}

	services := make([]Service, 0, 1+len(cfg.extraServices))
	services = append(services, Service{Type: cfg.serviceType, Key: cfg.key})
	services = append(services, cfg.extraServices...)

	middleware := coreMiddleware(cfg)

	return &Registration{
		ID:         nextRegistrationID(),
		Services:   services,
		Activator:  activator,
		Lifetime:   cfg.lifetime,
		Sharing:    cfg.sharing,
		Ownership:  cfg.ownership,
		Pipeline:   buildPipeline(middleware),
		middleware: middleware,
	}, nil
}

func buildActivator(cfg *registrationConfig) (Activator, error) {
	switch {
	case cfg.hasValue:
		if cfg.value == nil {
			return nil, fmt.Errorf("di: cannot register a nil value for %v", cfg.serviceType)
		}
		return &instanceActivator{value: cfg.value}, nil
	case cfg.delegate != nil:
		return &delegateActivator{
			desc: fmt.Sprintf("delegate for %v", cfg.serviceType),
			fn:   cfg.delegate,
		}, nil
	case cfg.factory != nil:
		return newFuncActivator(cfg.factory)
	default:
		if cfg.implType.Kind() == reflect.Interface {
			return nil, fmt.Errorf("di: cannot construct the interface type %v, specify an implementation with di.Use, di.WithFactory or di.WithValue", cfg.implType)
		}
		return newStructActivator(cfg.implType)
	}
}

// coreMiddleware 组装注册管线的中间件：核心阶段加用户扩展，
// 激活器置于链尾。
func coreMiddleware(cfg *registrationConfig) []Middleware {
	middleware := make([]Middleware, 0, 4+len(cfg.middleware)+len(cfg.activated))
	middleware = append(middleware,
		scopeSelectionMiddleware{},
		decoratorMiddleware{},
		sharingMiddleware{},
	)
	middleware = append(middleware, cfg.middleware...)
	for _, handler := range cfg.activated {
		middleware = append(middleware, onActivatedMiddleware{handler: handler})
	}
	middleware = append(middleware, activationMiddleware{})
	return middleware
}

func buildPipeline(middleware []Middleware) *Pipeline {
	builder := NewPipelineBuilder()
	for _, mw := range middleware {
		builder.Use(mw)
	}
	return builder.Build()
}

// buildDecoratorRegistration 装饰器注册：瞬态、当前作用域，
// 工厂的目标参数由装饰中间件以类型参数提供。
func buildDecoratorRegistration(dec decoratorConfig) (*Registration, error) {
	activator, err := newFuncActivator(dec.factory)
	if err != nil {
		return nil, fmt.Errorf("di: invalid decorator for %v: %w", dec.serviceType, err)
	}

	middleware := coreMiddleware(&registrationConfig{})

	return &Registration{
		ID:         nextRegistrationID(),
		Services:   []Service{NewService(dec.serviceType)},
		Activator:  activator,
		Lifetime:   CurrentScopeLifetime{},
		Sharing:    SharingNone,
		Ownership:  OwnedByLifetimeScope,
		Pipeline:   buildPipeline(middleware),
		middleware: middleware,
	}, nil
}

// newSelfRegistration 作用域的自注册：从任意作用域解析
// *LifetimeScope 得到该作用域自身。实例外部所有（父持有子），
// 释放时清空共享映射断开引用环。
func newSelfRegistration() *Registration {
	middleware := coreMiddleware(&registrationConfig{})

	return &Registration{
		ID:       nextRegistrationID(),
		Services: []Service{TypedService[*LifetimeScope]()},
		Activator: &delegateActivator{
			desc: "lifetime scope self-registration",
			fn: func(ctx *RequestContext) (any, error) {
				return ctx.ActivationScope(), nil
			},
		},
		Lifetime:   CurrentScopeLifetime{},
		Sharing:    SharingShared,
		Ownership:  ownershipExternallyOwned,
		Pipeline:   buildPipeline(middleware),
		middleware: middleware,
	}
}
