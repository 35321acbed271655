package di

import "testing"

type Greeter interface {
	Greet() string
}

type plainGreeter struct{}

func (plainGreeter) Greet() string { return "hello" }

type exclaimDecorator struct {
	inner Greeter
}

func (d *exclaimDecorator) Greet() string { return d.inner.Greet() + "!" }

type loudDecorator struct {
	inner Greeter
}

func (d *loudDecorator) Greet() string { return "<" + d.inner.Greet() + ">" }

// 装饰器按注册顺序包裹：D2(D1(base))
func TestDecoratorOrder(t *testing.T) {
	builder := NewContainerBuilder()
	Register[Greeter](builder, WithFactory(func() Greeter { return plainGreeter{} }), WithTransient())
	RegisterDecorator[Greeter](builder, func(inner Greeter) Greeter { return &exclaimDecorator{inner: inner} })
	RegisterDecorator[Greeter](builder, func(inner Greeter) Greeter { return &loudDecorator{inner: inner} })
	root := mustBuild(t, builder)

	g, err := Resolve[Greeter](root)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if got := g.Greet(); got != "<hello!>" {
		t.Errorf("Expected the second decorator outermost, got %q", got)
	}
}

// 装饰上下文记录完整的包裹链：[base, D1, D2]
func TestDecoratorContextRecordsChain(t *testing.T) {
	builder := NewContainerBuilder()
	Register[Greeter](builder, WithFactory(func() Greeter { return plainGreeter{} }), WithTransient())
	RegisterDecorator[Greeter](builder, func(inner Greeter) Greeter { return &exclaimDecorator{inner: inner} })
	RegisterDecorator[Greeter](builder, func(inner Greeter) Greeter { return &loudDecorator{inner: inner} })
	root := mustBuild(t, builder)

	var dctx *DecoratorContext
	root.OnResolveOperationBeginning(func(e OperationBeginningEvent) {
		e.Operation.OnResolveRequestBeginning(func(re ResolveRequestBeginningEvent) {
			ctx := re.Context
			if ctx.DecoratorTarget() == nil {
				ctx.OnCompleting(func(ce RequestCompletingEvent) {
					if ce.Context.DecoratorContext() != nil {
						dctx = ce.Context.DecoratorContext()
					}
				})
			}
		})
	})

	if _, err := Resolve[Greeter](root); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if dctx == nil {
		t.Fatal("Expected a decorator context on the decorated request")
	}

	chain := dctx.Instances()
	if len(chain) != 3 {
		t.Fatalf("Expected chain [base D1 D2], got %d entries", len(chain))
	}
	if _, ok := chain[0].(plainGreeter); !ok {
		t.Errorf("chain[0] must be the base instance, got %T", chain[0])
	}
	if _, ok := chain[1].(*exclaimDecorator); !ok {
		t.Errorf("chain[1] must be the first decorator, got %T", chain[1])
	}
	if _, ok := chain[2].(*loudDecorator); !ok {
		t.Errorf("chain[2] must be the second decorator, got %T", chain[2])
	}

	if len(dctx.AppliedDecorators()) != 2 {
		t.Errorf("Expected two applied decorators, got %d", len(dctx.AppliedDecorators()))
	}
	if dctx.CurrentInstance() != chain[2] {
		t.Error("CurrentInstance must be the outermost decorator")
	}
}

// 共享注册的装饰结果引用唯一，重复解析不再激活
func TestSharedDecoratedReferenceStability(t *testing.T) {
	activations := 0

	builder := NewContainerBuilder()
	Register[Greeter](builder, WithFactory(func() Greeter {
		activations++
		return plainGreeter{}
	}), WithSingleton())
	RegisterDecorator[Greeter](builder, func(inner Greeter) Greeter { return &exclaimDecorator{inner: inner} })
	root := mustBuild(t, builder)

	first, err := Resolve[Greeter](root)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	second, err := Resolve[Greeter](root)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if first != second {
		t.Error("A shared decorated service must resolve to one reference")
	}
	if activations != 1 {
		t.Errorf("The base must activate once, got %d", activations)
	}
}

// 装饰器可以注入其他依赖
func TestDecoratorWithDependencies(t *testing.T) {
	type suffix struct{ Value string }

	builder := NewContainerBuilder()
	Register[*suffix](builder, WithValue(&suffix{Value: "?"}))
	Register[Greeter](builder, WithFactory(func() Greeter { return plainGreeter{} }), WithTransient())
	RegisterDecorator[Greeter](builder, func(inner Greeter, s *suffix) Greeter {
		return &appendDecorator{inner: inner, suffix: s.Value}
	})
	root := mustBuild(t, builder)

	g, err := Resolve[Greeter](root)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got := g.Greet(); got != "hello?" {
		t.Errorf("Expected the decorator dependency to be injected, got %q", got)
	}
}

type appendDecorator struct {
	inner  Greeter
	suffix string
}

func (d *appendDecorator) Greet() string { return d.inner.Greet() + d.suffix }

// 未装饰的服务不受影响
func TestUndecoratedServiceUnaffected(t *testing.T) {
	builder := NewContainerBuilder()
	Register[Greeter](builder, WithFactory(func() Greeter { return plainGreeter{} }), WithTransient())
	RegisterDecorator[Greeter](builder, func(inner Greeter) Greeter { return &exclaimDecorator{inner: inner} })

	type other struct{}
	Register[*other](builder, WithFactory(func() *other { return &other{} }), WithTransient())
	root := mustBuild(t, builder)

	if _, err := Resolve[*other](root); err != nil {
		t.Errorf("An undecorated service must resolve normally: %v", err)
	}
}
