package di

// ResolveOperation 编排一次用户发起的解析及其全部嵌套激活。
// 每个顶层 Resolve 创建一个操作；操作由单一 goroutine 承载，
// 嵌套解析复用同一 goroutine，不可跨 goroutine 共享。
type ResolveOperation struct {
	rootScope    *LifetimeScope
	currentScope *LifetimeScope
	stack        requestStack

	// successful 已成功的请求上下文，按成功顺序（嵌套请求先于外层）
	successful []*RequestContext

	// nextCompleteStart 完成波游标：下一波从此下标开始触发
	nextCompleteStart int

	depth      int
	initiating *RequestContext
	active     *RequestContext
	ended      bool
	diag       DiagnosticSink

	requestBeginning eventList[ResolveRequestBeginningEvent]
	ending           eventList[OperationEndingEvent]
}

func newResolveOperation(scope *LifetimeScope, diag DiagnosticSink) *ResolveOperation {
	return &ResolveOperation{
		rootScope:    scope,
		currentScope: scope,
		diag:         diag,
	}
}

// CurrentScope 返回操作当前所在的作用域。
func (op *ResolveOperation) CurrentScope() *LifetimeScope { return op.currentScope }

// RequestDepth 返回当前的嵌套请求深度。
func (op *ResolveOperation) RequestDepth() int { return op.depth }

// InitiatingRequest 返回发起操作的最外层请求上下文。
func (op *ResolveOperation) InitiatingRequest() *RequestContext { return op.initiating }

// ActiveRequest 返回当前活动的请求上下文。
func (op *ResolveOperation) ActiveRequest() *RequestContext { return op.active }

// OnResolveRequestBeginning 订阅请求开始事件。
func (op *ResolveOperation) OnResolveRequestBeginning(handler func(ResolveRequestBeginningEvent)) {
	op.requestBeginning.Subscribe(handler)
}

// OnCurrentOperationEnding 订阅操作结束事件。
func (op *ResolveOperation) OnCurrentOperationEnding(handler func(OperationEndingEvent)) {
	op.ending.Subscribe(handler)
}

// EnterSegment 在请求栈上开启一个新段。
// 组件经由工厂重入容器解析独立子图时，先开段再解析，
// 使上层进行中的注册不参与循环检测。
func (op *ResolveOperation) EnterSegment() StackSegment {
	return op.stack.EnterSegment()
}

// Execute 执行发起请求并返回实例。顶层入口，请求必需。
func (op *ResolveOperation) Execute(req ResolveRequest) (any, error) {
	return op.executeTop(req, true)
}

// TryExecute 执行发起请求；策略不匹配时返回 false 而不报错。
func (op *ResolveOperation) TryExecute(req ResolveRequest) (any, bool, error) {
	inst, err := op.executeTop(req, false)
	if err != nil {
		return nil, false, err
	}
	return inst, inst != nil, nil
}

func (op *ResolveOperation) executeTop(req ResolveRequest, required bool) (any, error) {
	if op.ended {
		return nil, &OperationDisposedError{}
	}

	if op.diagEnabled() {
		op.diag.OperationStart(op, req)
	}

	instance, err := op.dispatch(op.currentScope, req, required)

	op.ended = true
	if err != nil {
		err = wrapResolutionError(err)
		op.ending.Invoke(OperationEndingEvent{Operation: op, Err: err})
		if op.diagEnabled() {
			op.diag.OperationFailure(op, err)
		}
		return nil, err
	}

	op.ending.Invoke(OperationEndingEvent{Operation: op})
	if op.diagEnabled() {
		op.diag.OperationSuccess(op, instance)
	}
	return instance, nil
}

// GetOrCreateInstance 解析一个必需的嵌套请求。中间件与激活器使用。
func (op *ResolveOperation) GetOrCreateInstance(scope *LifetimeScope, req ResolveRequest) (any, error) {
	return op.dispatch(scope, req, true)
}

// TryGetOrCreateInstance 解析一个非必需的嵌套请求。
// 策略不匹配时返回 (nil, false, nil)。
func (op *ResolveOperation) TryGetOrCreateInstance(scope *LifetimeScope, req ResolveRequest) (any, bool, error) {
	instance, err := op.dispatch(scope, req, false)
	if err != nil {
		return nil, false, err
	}
	return instance, instance != nil, nil
}

// dispatch 执行单个请求的完整协议：构造上下文、事件、压栈、
// 管线调用、状态恢复与完成波。
func (op *ResolveOperation) dispatch(scope *LifetimeScope, req ResolveRequest, required bool) (any, error) {
	if op.ended {
		return nil, &OperationDisposedError{}
	}
	if req.Registration == nil {
		return nil, &ServiceNotRegisteredError{Service: req.Service}
	}

	ctx := newRequestContext(op, scope, req, required)
	if op.initiating == nil {
		op.initiating = ctx
	}

	// 严格先于管线与任何嵌套请求的开始事件
	op.requestBeginning.Invoke(ResolveRequestBeginningEvent{Context: ctx})

	prevActive, prevScope := op.active, op.currentScope
	op.active, op.currentScope = ctx, scope
	op.depth++

	if op.diagEnabled() {
		op.diag.RequestStart(op, ctx)
	}

	var err error
	if op.stack.ContainsInCurrentSegment(req.Registration) {
		err = &CircularDependencyError{Registration: req.Registration.String()}
	} else {
		op.stack.Push(ctx)
		pipeline := scope.Registry().pipelineFor(req.Service, req.Registration)
		err = pipeline.Invoke(ctx)
		op.stack.Pop()

		if err == nil && ctx.Instance() == nil && required {
			err = &NoInstanceError{Service: req.Service}
		}
		if err == nil && ctx.Instance() != nil {
			op.successful = append(op.successful, ctx)
		}
	}

	op.active, op.currentScope = prevActive, prevScope
	op.depth--

	if op.diagEnabled() {
		if err != nil {
			op.diag.RequestFailure(op, ctx, err)
		} else {
			op.diag.RequestSuccess(op, ctx)
		}
	}

	// 栈排空后触发完成波：自上一波以来的成功请求按成功顺序完成（先成功先完成）
	if op.stack.Len() == 0 {
		for i := op.nextCompleteStart; i < len(op.successful); i++ {
			op.successful[i].CompleteRequest()
		}
		op.nextCompleteStart = len(op.successful)
	}

	if err != nil {
		return nil, err
	}
	return ctx.Instance(), nil
}

func (op *ResolveOperation) diagEnabled() bool {
	return op.diag != nil && op.diag.IsEnabled()
}
