package di

import (
	"context"
	"fmt"
	"sync/atomic"
)

// RootTag 根作用域的标签。
const RootTag = "root"

// Container 是根生命周期作用域。
type Container = LifetimeScope

// anonymousTag 匿名作用域的对象标识标签，与任何其他标签都不相等。
type anonymousTag struct{ _ byte }

func newAnonymousTag() *anonymousTag { return &anonymousTag{} }

func (t *anonymousTag) String() string { return "<anonymous>" }

// LifetimeScope 作用域树中的一个节点。
// 持有私有注册表、共享实例缓存、Disposer 与可选标签；
// 父作用域对子可见，兄弟互相隔离。
type LifetimeScope struct {
	tag      any
	parent   *LifetimeScope
	root     *LifetimeScope
	registry *ComponentRegistry
	store    *sharedInstanceStore
	disposer *Disposer
	diag     DiagnosticSink
	disposed atomic.Bool

	childBeginning     eventList[ChildScopeBeginningEvent]
	ending             eventList[ScopeEndingEvent]
	operationBeginning eventList[OperationBeginningEvent]
}

// newRootScope 创建根作用域。root 指向自身，parent 为空。
func newRootScope(registry *ComponentRegistry, diag DiagnosticSink) *LifetimeScope {
	scope := &LifetimeScope{
		tag:      RootTag,
		registry: registry,
		store:    newSharedInstanceStore(),
		disposer: newDisposer(),
		diag:     diag,
	}
	scope.root = scope
	return scope
}

// Tag 返回作用域的标签。
func (s *LifetimeScope) Tag() any { return s.tag }

// Parent 返回父作用域，根作用域为 nil。
func (s *LifetimeScope) Parent() *LifetimeScope { return s.parent }

// Root 返回作用域树的根。
func (s *LifetimeScope) Root() *LifetimeScope { return s.root }

// Registry 返回作用域的组件注册表。
func (s *LifetimeScope) Registry() *ComponentRegistry { return s.registry }

// Disposer 返回作用域的 Disposer。
func (s *LifetimeScope) Disposer() *Disposer { return s.disposer }

// IsDisposed 报告作用域是否已释放。
func (s *LifetimeScope) IsDisposed() bool { return s.disposed.Load() }

// scopeOptions 子作用域创建选项。
type scopeOptions struct {
	tag       any
	configure func(*ContainerBuilder)
	isolated  bool
}

// ScopeOption 配置子作用域的创建。
type ScopeOption func(*scopeOptions)

// WithTag 为子作用域设置标签。
// 标签在任意根到叶的路径上必须唯一，重复即创建失败。
func WithTag(tag any) ScopeOption {
	return func(o *scopeOptions) { o.tag = tag }
}

// WithRegistrations 在子作用域上叠加额外注册。
// 子作用域以引用继承本作用域的注册表，叠加项只对子树可见。
func WithRegistrations(configure func(*ContainerBuilder)) ScopeOption {
	return func(o *scopeOptions) { o.configure = configure }
}

// BeginLifetimeScope 创建子作用域。
func (s *LifetimeScope) BeginLifetimeScope(opts ...ScopeOption) (*LifetimeScope, error) {
	var o scopeOptions
	for _, opt := range opts {
		opt(&o)
	}
	return s.beginChild(o)
}

// BeginIsolatedLifetimeScope 创建隔离模式的子作用域：
// 只有逐组件适配器 source 被继承，configure 的注册在隔离注册表上叠加。
func (s *LifetimeScope) BeginIsolatedLifetimeScope(configure func(*ContainerBuilder), opts ...ScopeOption) (*LifetimeScope, error) {
	var o scopeOptions
	for _, opt := range opts {
		opt(&o)
	}
	o.isolated = true
	o.configure = configure
	return s.beginChild(o)
}

func (s *LifetimeScope) beginChild(o scopeOptions) (*LifetimeScope, error) {
	if s.IsDisposed() {
		return nil, &ScopeDisposedError{Tag: s.tag}
	}

	tag := o.tag
	if tag == nil {
		tag = newAnonymousTag()
	} else {
		// 非匿名标签在祖先路径上必须唯一
		for ancestor := s; ancestor != nil; ancestor = ancestor.parent {
			if _, anon := ancestor.tag.(*anonymousTag); anon {
				continue
			}
			if ancestor.tag == tag {
				return nil, fmt.Errorf("di: the tag %v is already present on an ancestor lifetime scope", tag)
			}
		}
	}

	registry := s.registry
	if o.configure != nil || o.isolated {
		registry = newChildRegistry(s.registry, o.isolated)
		if o.configure != nil {
			builder := NewContainerBuilder()
			o.configure(builder)
			if err := builder.applyTo(registry); err != nil {
				return nil, err
			}
		}
	}

	child := &LifetimeScope{
		tag:      tag,
		parent:   s,
		root:     s.root,
		registry: registry,
		store:    newSharedInstanceStore(),
		disposer: newDisposer(),
		diag:     s.diag,
	}

	s.childBeginning.Invoke(ChildScopeBeginningEvent{Parent: s, Child: child})
	return child, nil
}

// Resolve 从此作用域解析服务。
// 每次调用创建一个绑定到此作用域的解析操作并执行。
func (s *LifetimeScope) Resolve(service Service, params ...Parameter) (any, error) {
	if s.IsDisposed() {
		return nil, &ScopeDisposedError{Tag: s.tag}
	}

	reg, ok := s.registry.RegistrationFor(service)
	if !ok {
		return nil, &ServiceNotRegisteredError{Service: service}
	}

	op := newResolveOperation(s, s.diag)
	s.operationBeginning.Invoke(OperationBeginningEvent{Operation: op})
	return op.Execute(ResolveRequest{Service: service, Registration: reg, Parameters: params})
}

// TryResolve 同 Resolve，但服务缺失或生命周期策略不匹配时
// 返回 false 而不报错。
func (s *LifetimeScope) TryResolve(service Service, params ...Parameter) (any, bool, error) {
	if s.IsDisposed() {
		return nil, false, &ScopeDisposedError{Tag: s.tag}
	}

	reg, ok := s.registry.RegistrationFor(service)
	if !ok {
		return nil, false, nil
	}

	op := newResolveOperation(s, s.diag)
	s.operationBeginning.Invoke(OperationBeginningEvent{Operation: op})
	return op.TryExecute(ResolveRequest{Service: service, Registration: reg, Parameters: params})
}

// ResolveRegistration 解析一个具体注册，绕过服务查找。
func (s *LifetimeScope) ResolveRegistration(reg *Registration, params ...Parameter) (any, error) {
	if s.IsDisposed() {
		return nil, &ScopeDisposedError{Tag: s.tag}
	}
	if reg == nil || len(reg.Services) == 0 {
		return nil, fmt.Errorf("di: cannot resolve a nil or serviceless registration")
	}

	op := newResolveOperation(s, s.diag)
	s.operationBeginning.Invoke(OperationBeginningEvent{Operation: op})
	return op.Execute(ResolveRequest{Service: reg.Services[0], Registration: reg, Parameters: params})
}

// CreateSharedInstance 获取或创建此作用域持有的共享实例。
func (s *LifetimeScope) CreateSharedInstance(id uint64, qualifier any, creator func() (any, error)) (any, error) {
	if s.IsDisposed() {
		return nil, &ScopeDisposedError{Tag: s.tag}
	}
	return s.store.GetOrCreate(id, qualifier, creator)
}

// TryGetSharedInstance 无锁读取此作用域持有的共享实例。
func (s *LifetimeScope) TryGetSharedInstance(id uint64, qualifier any) (any, bool) {
	return s.store.TryGetQualified(id, qualifier)
}

// Dispose 释放作用域：触发 scope-ending、按逆序排空 Disposer、
// 清空共享实例映射。幂等，重复调用无效果。
func (s *LifetimeScope) Dispose() error {
	if !s.disposed.CompareAndSwap(false, true) {
		return nil
	}
	s.ending.Invoke(ScopeEndingEvent{Scope: s})
	err := s.disposer.Dispose()
	s.store.clear()
	return err
}

// DisposeAsync 异步释放作用域，释放过程可在 ctx 下挂起。幂等。
func (s *LifetimeScope) DisposeAsync(ctx context.Context) error {
	if !s.disposed.CompareAndSwap(false, true) {
		return nil
	}
	s.ending.Invoke(ScopeEndingEvent{Scope: s})
	err := s.disposer.DisposeAsync(ctx)
	s.store.clear()
	return err
}

// OnChildLifetimeScopeBeginning 订阅子作用域创建事件。
func (s *LifetimeScope) OnChildLifetimeScopeBeginning(handler func(ChildScopeBeginningEvent)) {
	s.childBeginning.Subscribe(handler)
}

// OnCurrentScopeEnding 订阅作用域释放事件。
func (s *LifetimeScope) OnCurrentScopeEnding(handler func(ScopeEndingEvent)) {
	s.ending.Subscribe(handler)
}

// OnResolveOperationBeginning 订阅解析操作开始事件。
func (s *LifetimeScope) OnResolveOperationBeginning(handler func(OperationBeginningEvent)) {
	s.operationBeginning.Subscribe(handler)
}
