package di

import "fmt"

// scopeSelectionMiddleware 咨询注册的生命周期策略选定持有实例的作用域。
// 必需请求在策略失败时报错；非必需请求静默短路，不设置实例。
type scopeSelectionMiddleware struct{}

func (scopeSelectionMiddleware) Phase() PipelinePhase { return PhaseScopeSelection }

func (scopeSelectionMiddleware) Execute(ctx *RequestContext, next Next) error {
	lifetime := ctx.Registration().Lifetime

	if ctx.Required() {
		scope, err := lifetime.FindScope(ctx.ActivationScope())
		if err != nil {
			return &ResolutionError{
				Message: fmt.Sprintf("unable to locate the lifetime scope for %s", ctx.Registration()),
				Inner:   err,
			}
		}
		ctx.ChangeScope(scope)
		return next(ctx)
	}

	scope, ok := lifetime.TryFindScope(ctx.ActivationScope())
	if !ok {
		return nil
	}
	ctx.ChangeScope(scope)
	return next(ctx)
}

// sharingMiddleware 对共享注册咨询选定作用域的共享实例缓存。
// creator 调用管线余下的阶段并返回产生的实例；管线短路返回 nil 时
// 不记录共享。缓存返回的规范实例写回上下文。
type sharingMiddleware struct{}

func (sharingMiddleware) Phase() PipelinePhase { return PhaseSharing }

func (sharingMiddleware) Execute(ctx *RequestContext, next Next) error {
	if ctx.Registration().Sharing != SharingShared {
		return next(ctx)
	}

	instance, err := ctx.ActivationScope().CreateSharedInstance(ctx.Registration().ID, nil, func() (any, error) {
		if err := next(ctx); err != nil {
			return nil, err
		}
		return ctx.Instance(), nil
	})
	if err != nil {
		return err
	}
	if instance == nil {
		return nil
	}
	return ctx.SetInstance(instance)
}

// activationMiddleware 管线的最后一个阶段：运行注册的激活器。
// 产生的实例若实现释放契约且注册归作用域所有，则登记到选定
// 作用域的 Disposer。
type activationMiddleware struct{}

func (activationMiddleware) Phase() PipelinePhase { return PhaseActivation }

func (activationMiddleware) Execute(ctx *RequestContext, next Next) error {
	instance, err := ctx.Registration().Activator.Activate(ctx)
	if err != nil {
		return err
	}
	if instance == nil {
		return next(ctx)
	}

	if err := ctx.SetInstance(instance); err != nil {
		return err
	}

	if ctx.Registration().Ownership == OwnedByLifetimeScope && isDisposableInstance(instance) {
		if err := ctx.ActivationScope().Disposer().Add(instance); err != nil {
			return err
		}
	}
	return next(ctx)
}

// decoratorMiddleware 激活之后对适用的装饰器按注册顺序逐层包裹。
// 每一层通过内部解析装饰器注册产生，DecoratorTarget 携带上一层实例。
// 共享注册的装饰结果按 (注册 ID, 被装饰服务) 缓存在选定作用域的
// 限定共享映射中，保证重复解析返回同一引用；未装饰的实例仍按
// 普通 ID 缓存。
type decoratorMiddleware struct{}

func (decoratorMiddleware) Phase() PipelinePhase { return PhaseDecoration }

func (decoratorMiddleware) Execute(ctx *RequestContext, next Next) error {
	// 装饰层自身的解析不再进入装饰
	if ctx.DecoratorTarget() != nil {
		return next(ctx)
	}

	decorators := ctx.ActivationScope().Registry().DecoratorsFor(ctx.Service())
	if len(decorators) == 0 {
		return next(ctx)
	}

	if ctx.Registration().Sharing == SharingShared {
		instance, err := ctx.ActivationScope().CreateSharedInstance(
			ctx.Registration().ID,
			ctx.Service(),
			func() (any, error) {
				return applyDecorators(ctx, next, decorators)
			},
		)
		if err != nil {
			return err
		}
		if instance == nil {
			return nil
		}
		return ctx.SetInstance(instance)
	}

	instance, err := applyDecorators(ctx, next, decorators)
	if err != nil {
		return err
	}
	if instance == nil {
		return nil
	}
	return ctx.SetInstance(instance)
}

// applyDecorators 先让管线余下阶段产生目标实例，再按注册顺序
// 应用每个装饰器，返回最外层实例。
func applyDecorators(ctx *RequestContext, next Next, decorators []*Registration) (any, error) {
	if err := next(ctx); err != nil {
		return nil, err
	}
	if ctx.Instance() == nil {
		return nil, nil
	}

	dctx := newDecoratorContext(ctx.Service(), ctx.Instance())
	ctx.setDecoratorContext(dctx)

	for _, dreg := range decorators {
		target := dctx.CurrentInstance()
		params := append([]Parameter{
			TypedParameter{Type: ctx.Service().Type, Value: target},
		}, ctx.Parameters()...)

		wrapped, err := ctx.Operation().GetOrCreateInstance(ctx.ActivationScope(), ResolveRequest{
			Service:         ctx.Service(),
			Registration:    dreg,
			Parameters:      params,
			DecoratorTarget: target,
		})
		if err != nil {
			return nil, err
		}
		dctx.record(ctx.Service(), wrapped)
	}
	return dctx.CurrentInstance(), nil
}

// onActivatedMiddleware 注册级回调：实例新激活后调用处理器。
type onActivatedMiddleware struct {
	handler func(ctx *RequestContext, instance any)
}

func (onActivatedMiddleware) Phase() PipelinePhase { return PhaseActivation }

func (m onActivatedMiddleware) Execute(ctx *RequestContext, next Next) error {
	if err := next(ctx); err != nil {
		return err
	}
	if ctx.NewInstanceActivated() {
		m.handler(ctx, ctx.Instance())
	}
	return nil
}
