package di

import (
	"errors"
	"reflect"
)

// ResolveRequest 一次解析请求的输入。
type ResolveRequest struct {
	// Service 请求的服务
	Service Service

	// Registration 提供服务的注册；公共入口为空时由作用域查找
	Registration *Registration

	// Parameters 传给激活器的参数序列
	Parameters []Parameter

	// DecoratorTarget 非空时表示此请求是包裹已激活实例的装饰层
	DecoratorTarget any
}

// RequestContext 单个请求流经管线期间的可变状态。
type RequestContext struct {
	operation        *ResolveOperation
	activationScope  *LifetimeScope
	registration     *Registration
	service          Service
	parameters       []Parameter
	instance         any
	phaseReached     PipelinePhase
	decoratorTarget  any
	decoratorContext *DecoratorContext
	required         bool
	completing       eventList[RequestCompletingEvent]
	completed        bool
}

func newRequestContext(op *ResolveOperation, scope *LifetimeScope, req ResolveRequest, required bool) *RequestContext {
	return &RequestContext{
		operation:       op,
		activationScope: scope,
		registration:    req.Registration,
		service:         req.Service,
		parameters:      req.Parameters,
		phaseReached:    PhaseResolveRequestStart,
		decoratorTarget: req.DecoratorTarget,
		required:        required,
	}
}

// Operation 返回承载此请求的解析操作。
func (c *RequestContext) Operation() *ResolveOperation { return c.operation }

// ActivationScope 返回当前的激活作用域。
// 作用域选择中间件可能把它改为生命周期策略选定的作用域。
func (c *RequestContext) ActivationScope() *LifetimeScope { return c.activationScope }

// Registration 返回提供服务的注册。
func (c *RequestContext) Registration() *Registration { return c.registration }

// Service 返回请求的服务。
func (c *RequestContext) Service() Service { return c.service }

// Parameters 返回请求的参数序列。
func (c *RequestContext) Parameters() []Parameter { return c.parameters }

// Required 报告请求是否必需。非必需请求在策略不匹配时静默短路。
func (c *RequestContext) Required() bool { return c.required }

// Instance 返回已产生的实例，未产生时为 nil。
func (c *RequestContext) Instance() any { return c.instance }

// SetInstance 设置实例。实例一经设置不可再置空，nil 会被拒绝。
func (c *RequestContext) SetInstance(instance any) error {
	if instance == nil {
		return errors.New("di: the request instance cannot be set to nil")
	}
	c.instance = instance
	return nil
}

// PhaseReached 返回请求已到达的管线阶段。
func (c *RequestContext) PhaseReached() PipelinePhase { return c.phaseReached }

// advancePhase 单调推进阶段，不回退。
func (c *RequestContext) advancePhase(phase PipelinePhase) {
	if phase > c.phaseReached {
		c.phaseReached = phase
	}
}

// DecoratorTarget 返回被包裹的实例，仅装饰层请求非空。
func (c *RequestContext) DecoratorTarget() any { return c.decoratorTarget }

// DecoratorContext 返回装饰上下文，无装饰时为 nil。
func (c *RequestContext) DecoratorContext() *DecoratorContext { return c.decoratorContext }

func (c *RequestContext) setDecoratorContext(dctx *DecoratorContext) {
	c.decoratorContext = dctx
}

// NewInstanceActivated 报告实例是否由本次请求新激活：
// 实例已设置且请求到达了激活阶段。
func (c *RequestContext) NewInstanceActivated() bool {
	return c.instance != nil && c.phaseReached == PhaseActivation
}

// ChangeScope 切换激活作用域。
func (c *RequestContext) ChangeScope(scope *LifetimeScope) {
	if scope != nil {
		c.activationScope = scope
	}
}

// ChangeParameters 替换参数序列。
func (c *RequestContext) ChangeParameters(params []Parameter) {
	c.parameters = params
}

// OnCompleting 订阅请求完成事件。
func (c *RequestContext) OnCompleting(handler func(RequestCompletingEvent)) {
	c.completing.Subscribe(handler)
}

// CompleteRequest 触发完成处理器，恰好一次。
func (c *RequestContext) CompleteRequest() {
	if c.completed {
		return
	}
	c.completed = true
	c.completing.Invoke(RequestCompletingEvent{Context: c})
}

// Resolve 在同一操作内解析一个嵌套依赖。
// 激活器通过它解析构造输入。
func (c *RequestContext) Resolve(service Service, params ...Parameter) (any, error) {
	reg, ok := c.activationScope.Registry().RegistrationFor(service)
	if !ok {
		return nil, &ServiceNotRegisteredError{Service: service}
	}
	return c.operation.GetOrCreateInstance(c.activationScope, ResolveRequest{
		Service:      service,
		Registration: reg,
		Parameters:   params,
	})
}

// TryResolve 同 Resolve，但服务缺失或策略不匹配时返回 false 而不报错。
func (c *RequestContext) TryResolve(service Service, params ...Parameter) (any, bool, error) {
	reg, ok := c.activationScope.Registry().RegistrationFor(service)
	if !ok {
		return nil, false, nil
	}
	return c.operation.TryGetOrCreateInstance(c.activationScope, ResolveRequest{
		Service:      service,
		Registration: reg,
		Parameters:   params,
	})
}

// ResolveType 按类型解析嵌套依赖。
func (c *RequestContext) ResolveType(typ reflect.Type) (any, error) {
	return c.Resolve(NewService(typ))
}

// ResolveKeyedType 按键加类型解析嵌套依赖。
func (c *RequestContext) ResolveKeyedType(key any, typ reflect.Type) (any, error) {
	return c.Resolve(NewKeyedService(key, typ))
}
