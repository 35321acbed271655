package di

// DecoratorEntry 一次装饰的记录。
type DecoratorEntry struct {
	// Service 装饰器提供的服务
	Service Service

	// Instance 装饰器实例
	Instance any
}

// DecoratorContext 跟踪目标服务上装饰器的应用顺序。
// 装饰器按注册顺序逐层包裹，每包裹一层追加一条记录。
type DecoratorContext struct {
	// Service 被装饰的服务
	Service Service

	target  any
	applied []DecoratorEntry
}

func newDecoratorContext(service Service, target any) *DecoratorContext {
	return &DecoratorContext{Service: service, target: target}
}

// CurrentInstance 返回当前最外层实例。
// 尚未应用任何装饰器时为原始目标。
func (d *DecoratorContext) CurrentInstance() any {
	if len(d.applied) == 0 {
		return d.target
	}
	return d.applied[len(d.applied)-1].Instance
}

// AppliedDecorators 返回已应用的装饰记录，按应用顺序排列。
func (d *DecoratorContext) AppliedDecorators() []DecoratorEntry {
	return d.applied
}

// Instances 返回完整的包裹链：原始目标在前，随后每层装饰器实例。
func (d *DecoratorContext) Instances() []any {
	chain := make([]any, 0, len(d.applied)+1)
	chain = append(chain, d.target)
	for _, e := range d.applied {
		chain = append(chain, e.Instance)
	}
	return chain
}

// record 记录一层装饰。
func (d *DecoratorContext) record(service Service, instance any) {
	d.applied = append(d.applied, DecoratorEntry{Service: service, Instance: instance})
}
