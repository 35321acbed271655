package di

import "sync"

// RegistrationSource 注册的动态提供者。
// 给定服务与已注册项访问器，按序返回适用的注册。
type RegistrationSource interface {
	// RegistrationsFor 返回 source 为该服务提供的注册
	RegistrationsFor(service Service, accessor func(Service) []*Registration) []*Registration

	// IsAdapterForIndividualComponents 报告 source 是否为逐组件适配器。
	// 只有适配器 source 会被隔离模式的子注册表继承。
	IsAdapterForIndividualComponents() bool
}

// SourceFunc 函数式注册 source 适配器。
type SourceFunc struct {
	Fn        func(service Service, accessor func(Service) []*Registration) []*Registration
	IsAdapter bool
}

func (s SourceFunc) RegistrationsFor(service Service, accessor func(Service) []*Registration) []*Registration {
	return s.Fn(service, accessor)
}

func (s SourceFunc) IsAdapterForIndividualComponents() bool {
	return s.IsAdapter
}

// pipelineCacheKey 合成管线缓存键。
type pipelineCacheKey struct {
	regID   uint64
	service Service
}

// ComponentRegistry 组件注册表：服务到注册的索引、装饰器、
// 动态 source、服务级中间件与回退链式属性。
// 子作用域的注册表以引用继承父注册表，父链指向最近的
// 拥有本地组件的祖先（更深的祖先经由它传递可达，避免
// 适配器 source 被重复访问）。
// 构建完成后仅并发读。
type ComponentRegistry struct {
	mu     sync.RWMutex
	parent *ComponentRegistry

	registrations     map[Service][]*Registration
	decorators        map[Service][]*Registration
	sources           []RegistrationSource
	serviceMiddleware map[Service][]Middleware
	properties        map[string]any

	// sourceCache source 产生的注册按服务缓存，保证重复查找返回同一注册
	sourceCache sync.Map

	// pipelineCache 注册管线与服务级中间件的合成结果
	pipelineCache sync.Map
}

func newRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		registrations:     make(map[Service][]*Registration),
		decorators:        make(map[Service][]*Registration),
		serviceMiddleware: make(map[Service][]Middleware),
		properties:        make(map[string]any),
	}
}

// newChildRegistry 创建子注册表。
// 父链跳过没有本地组件的注册表；隔离模式只克隆适配器 source。
func newChildRegistry(parent *ComponentRegistry, isolated bool) *ComponentRegistry {
	child := newRegistry()
	child.parent = nearestWithLocalComponents(parent)

	if child.parent != nil {
		for _, src := range child.parent.sources {
			if isolated && !src.IsAdapterForIndividualComponents() {
				continue
			}
			child.sources = append(child.sources, src)
		}
	}
	return child
}

// nearestWithLocalComponents 返回链上最近的拥有本地组件的注册表。
func nearestWithLocalComponents(r *ComponentRegistry) *ComponentRegistry {
	for ; r != nil; r = r.parent {
		if r.hasLocalComponents() {
			return r
		}
	}
	return nil
}

func (r *ComponentRegistry) hasLocalComponents() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.registrations) > 0 || len(r.decorators) > 0 ||
		len(r.sources) > 0 || len(r.serviceMiddleware) > 0
}

// register 按注册提供的每个服务建立索引。
func (r *ComponentRegistry) register(reg *Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, service := range reg.Services {
		r.registrations[service] = append(r.registrations[service], reg)
	}
}

// registerDecorator 追加服务的装饰器，注册顺序即应用顺序。
func (r *ComponentRegistry) registerDecorator(service Service, reg *Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.decorators[service] = append(r.decorators[service], reg)
}

// addSource 追加一个注册 source。
func (r *ComponentRegistry) addSource(src RegistrationSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, src)
}

// useServiceMiddleware 追加服务级中间件。
func (r *ComponentRegistry) useServiceMiddleware(service Service, mw ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.serviceMiddleware[service] = append(r.serviceMiddleware[service], mw...)
}

// setProperty 设置注册表属性。子注册表的设置覆盖父链的同名属性。
func (r *ComponentRegistry) setProperty(key string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.properties[key] = value
}

// Property 查找属性，本地缺失时沿父链回退。
func (r *ComponentRegistry) Property(key string) (any, bool) {
	r.mu.RLock()
	v, ok := r.properties[key]
	r.mu.RUnlock()
	if ok {
		return v, true
	}
	if r.parent != nil {
		return r.parent.Property(key)
	}
	return nil, false
}

// localRegistrations 返回本地直接注册，不含 source 与父链。
func (r *ComponentRegistry) localRegistrations(service Service) []*Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.registrations[service]
}

// RegistrationFor 返回服务的默认注册：本地最后注册者优先，
// 其次咨询本地 source，最后沿父链查找祖先的直接注册。
// source 在子注册表创建时按隔离模式克隆到本地，父链查找不再
// 咨询祖先的 source，避免适配器 source 被重复访问。
func (r *ComponentRegistry) RegistrationFor(service Service) (*Registration, bool) {
	if regs := r.localRegistrations(service); len(regs) > 0 {
		return regs[len(regs)-1], true
	}

	if fromSource := r.sourceRegistrationsFor(service); len(fromSource) > 0 {
		return fromSource[len(fromSource)-1], true
	}

	for p := r.parent; p != nil; p = p.parent {
		if regs := p.localRegistrations(service); len(regs) > 0 {
			return regs[len(regs)-1], true
		}
	}
	return nil, false
}

// RegistrationsFor 返回服务的全部注册：祖先的直接注册在前，
// 本地注册与本地 source 的注册在后。
func (r *ComponentRegistry) RegistrationsFor(service Service) []*Registration {
	var all []*Registration

	var ancestors []*ComponentRegistry
	for p := r.parent; p != nil; p = p.parent {
		ancestors = append(ancestors, p)
	}
	for i := len(ancestors) - 1; i >= 0; i-- {
		all = append(all, ancestors[i].localRegistrations(service)...)
	}

	all = append(all, r.localRegistrations(service)...)
	all = append(all, r.sourceRegistrationsFor(service)...)
	return all
}

// sourceRegistrationsFor 咨询本地 source 并缓存结果。
func (r *ComponentRegistry) sourceRegistrationsFor(service Service) []*Registration {
	r.mu.RLock()
	sources := r.sources
	r.mu.RUnlock()
	if len(sources) == 0 {
		return nil
	}

	if cached, ok := r.sourceCache.Load(service); ok {
		return cached.([]*Registration)
	}

	accessor := func(s Service) []*Registration {
		r.mu.RLock()
		defer r.mu.RUnlock()
		return r.registrations[s]
	}

	var regs []*Registration
	for _, src := range sources {
		regs = append(regs, src.RegistrationsFor(service, accessor)...)
	}

	actual, _ := r.sourceCache.LoadOrStore(service, regs)
	return actual.([]*Registration)
}

// DecoratorsFor 返回适用于服务的装饰器，父链在前，注册顺序排列。
func (r *ComponentRegistry) DecoratorsFor(service Service) []*Registration {
	var all []*Registration
	if r.parent != nil {
		all = append(all, r.parent.DecoratorsFor(service)...)
	}
	r.mu.RLock()
	all = append(all, r.decorators[service]...)
	r.mu.RUnlock()
	return all
}

// ServiceMiddlewareFor 返回服务级中间件，父链在前。
func (r *ComponentRegistry) ServiceMiddlewareFor(service Service) []Middleware {
	var all []Middleware
	if r.parent != nil {
		all = append(all, r.parent.ServiceMiddlewareFor(service)...)
	}
	r.mu.RLock()
	all = append(all, r.serviceMiddleware[service]...)
	r.mu.RUnlock()
	return all
}

// pipelineFor 返回请求实际使用的管线。
// 无服务级中间件时直接用注册的预组合管线；有则合成并缓存。
func (r *ComponentRegistry) pipelineFor(service Service, reg *Registration) *Pipeline {
	svcMiddleware := r.ServiceMiddlewareFor(service)
	if len(svcMiddleware) == 0 {
		return reg.Pipeline
	}

	key := pipelineCacheKey{regID: reg.ID, service: service}
	if cached, ok := r.pipelineCache.Load(key); ok {
		return cached.(*Pipeline)
	}

	builder := NewPipelineBuilder()
	for _, mw := range reg.middleware {
		builder.Use(mw)
	}
	for _, mw := range svcMiddleware {
		builder.Use(mw)
	}
	pipeline := builder.Build()

	actual, _ := r.pipelineCache.LoadOrStore(key, pipeline)
	return actual.(*Pipeline)
}
