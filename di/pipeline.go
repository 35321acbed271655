package di

import "sort"

// PipelinePhase 管线阶段，数值单调递增。
// 中间件按阶段排序组成调用链，同阶段保持加入顺序。
type PipelinePhase int

const (
	// PhaseResolveRequestStart 请求进入管线
	PhaseResolveRequestStart PipelinePhase = iota
	// PhaseScopeSelection 选择持有实例的作用域
	PhaseScopeSelection
	// PhaseDecoration 装饰（外层包裹）
	PhaseDecoration
	// PhaseSharing 共享实例查找
	PhaseSharing
	// PhaseServicePipelineStart 服务级中间件开始
	PhaseServicePipelineStart
	// PhaseServicePipelineEnd 服务级中间件结束
	PhaseServicePipelineEnd
	// PhaseRegistrationPipelineStart 注册级中间件开始
	PhaseRegistrationPipelineStart
	// PhaseRegistrationPipelineEnd 注册级中间件结束
	PhaseRegistrationPipelineEnd
	// PhaseActivation 激活器产生实例
	PhaseActivation
)

// String 返回阶段的字符串表示。
func (p PipelinePhase) String() string {
	switch p {
	case PhaseResolveRequestStart:
		return "ResolveRequestStart"
	case PhaseScopeSelection:
		return "ScopeSelection"
	case PhaseDecoration:
		return "Decoration"
	case PhaseSharing:
		return "Sharing"
	case PhaseServicePipelineStart:
		return "ServicePipelineStart"
	case PhaseServicePipelineEnd:
		return "ServicePipelineEnd"
	case PhaseRegistrationPipelineStart:
		return "RegistrationPipelineStart"
	case PhaseRegistrationPipelineEnd:
		return "RegistrationPipelineEnd"
	case PhaseActivation:
		return "Activation"
	default:
		return "Unknown"
	}
}

// Next 调用管线中剩余的中间件。
type Next func(*RequestContext) error

// Middleware 解析管线中的一个阶段。
// 中间件可以修改上下文，并选择调用 next 或短路。
type Middleware interface {
	// Phase 返回中间件所属的阶段
	Phase() PipelinePhase

	// Execute 执行中间件
	Execute(ctx *RequestContext, next Next) error
}

// middlewareFunc 函数式中间件适配器。
type middlewareFunc struct {
	phase PipelinePhase
	fn    func(ctx *RequestContext, next Next) error
}

// NewMiddleware 用函数创建中间件。
func NewMiddleware(phase PipelinePhase, fn func(ctx *RequestContext, next Next) error) Middleware {
	return &middlewareFunc{phase: phase, fn: fn}
}

func (m *middlewareFunc) Phase() PipelinePhase { return m.phase }

func (m *middlewareFunc) Execute(ctx *RequestContext, next Next) error {
	return m.fn(ctx, next)
}

// Pipeline 有序中间件的组合。
// 在注册构建时预组合；每次解析传递上下文与索引推进，
// 不构造闭包链。
type Pipeline struct {
	stages []Middleware

	// nexts 构建时为每个阶段预建的后继调用
	nexts []Next
}

// Invoke 让上下文流经整条管线。
func (p *Pipeline) Invoke(ctx *RequestContext) error {
	return p.invokeFrom(0, ctx)
}

func (p *Pipeline) invokeFrom(index int, ctx *RequestContext) error {
	if index >= len(p.stages) {
		return nil
	}
	stage := p.stages[index]
	ctx.advancePhase(stage.Phase())
	return stage.Execute(ctx, p.nexts[index])
}

// Len 返回管线中的中间件数。
func (p *Pipeline) Len() int {
	return len(p.stages)
}

// PipelineBuilder 按阶段组装管线。
type PipelineBuilder struct {
	stages []Middleware
}

// NewPipelineBuilder 创建管线构建器。
func NewPipelineBuilder() *PipelineBuilder {
	return &PipelineBuilder{}
}

// Use 加入一个中间件。
func (b *PipelineBuilder) Use(mw Middleware) *PipelineBuilder {
	b.stages = append(b.stages, mw)
	return b
}

// Build 按阶段稳定排序并产出管线。
func (b *PipelineBuilder) Build() *Pipeline {
	stages := make([]Middleware, len(b.stages))
	copy(stages, b.stages)
	sort.SliceStable(stages, func(i, j int) bool {
		return stages[i].Phase() < stages[j].Phase()
	})
	p := &Pipeline{stages: stages, nexts: make([]Next, len(stages))}
	for i := range stages {
		next := i + 1
		p.nexts[i] = func(c *RequestContext) error { return p.invokeFrom(next, c) }
	}
	return p
}
