package di

import (
	"errors"
	"testing"
)

type serviceB struct{}

type serviceA struct {
	B *serviceB
}

func newServiceB() *serviceB { return &serviceB{} }

func newServiceA(b *serviceB) *serviceA { return &serviceA{B: b} }

// 嵌套完成顺序：完成事件在最外层请求返回后按成功顺序（先成功先完成）触发
func TestCompletionOrder(t *testing.T) {
	builder := NewContainerBuilder()
	Register[*serviceB](builder, WithFactory(newServiceB), WithTransient())
	Register[*serviceA](builder, WithFactory(newServiceA), WithTransient())
	root := mustBuild(t, builder)

	var completed []string

	root.OnResolveOperationBeginning(func(e OperationBeginningEvent) {
		e.Operation.OnResolveRequestBeginning(func(re ResolveRequestBeginningEvent) {
			ctx := re.Context
			switch ctx.Service().Type {
			case TypeOf[*serviceA]():
				ctx.OnCompleting(func(RequestCompletingEvent) {
					completed = append(completed, "A")
				})
			case TypeOf[*serviceB]():
				ctx.OnCompleting(func(RequestCompletingEvent) {
					completed = append(completed, "B")
				})
			}
		})
	})

	if _, err := Resolve[*serviceA](root); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	// 嵌套请求先成功先完成：B 的完成先于 A
	if len(completed) != 2 || completed[0] != "B" || completed[1] != "A" {
		t.Fatalf("Expected completion order [B A] (first successful first), got %v", completed)
	}
}

// 完成事件恰好触发一次
func TestCompletionFiresOnce(t *testing.T) {
	builder := NewContainerBuilder()
	Register[*serviceB](builder, WithFactory(newServiceB), WithTransient())
	root := mustBuild(t, builder)

	count := 0
	root.OnResolveOperationBeginning(func(e OperationBeginningEvent) {
		e.Operation.OnResolveRequestBeginning(func(re ResolveRequestBeginningEvent) {
			re.Context.OnCompleting(func(RequestCompletingEvent) { count++ })
		})
	})

	if _, err := Resolve[*serviceB](root); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected exactly one completion, got %d", count)
	}
}

// 请求开始事件严格先于嵌套请求的开始事件
func TestRequestBeginningOrdering(t *testing.T) {
	builder := NewContainerBuilder()
	Register[*serviceB](builder, WithFactory(newServiceB), WithTransient())
	Register[*serviceA](builder, WithFactory(newServiceA), WithTransient())
	root := mustBuild(t, builder)

	var order []string
	root.OnResolveOperationBeginning(func(e OperationBeginningEvent) {
		e.Operation.OnResolveRequestBeginning(func(re ResolveRequestBeginningEvent) {
			order = append(order, re.Context.Service().String())
		})
	})

	if _, err := Resolve[*serviceA](root); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if len(order) != 2 {
		t.Fatalf("Expected two request beginnings, got %v", order)
	}
	if order[0] != TypedService[*serviceA]().String() {
		t.Errorf("Outer request must begin first, got %v", order)
	}
}

// 操作结束事件恰好一次；成功后复用操作失败
func TestOperationEndsOnce(t *testing.T) {
	builder := NewContainerBuilder()
	Register[*serviceB](builder, WithFactory(newServiceB), WithTransient())
	root := mustBuild(t, builder)

	var ops []*ResolveOperation
	endings := 0
	root.OnResolveOperationBeginning(func(e OperationBeginningEvent) {
		ops = append(ops, e.Operation)
		e.Operation.OnCurrentOperationEnding(func(OperationEndingEvent) { endings++ })
	})

	if _, err := Resolve[*serviceB](root); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if endings != 1 {
		t.Fatalf("operation-ending must fire exactly once, fired %d times", endings)
	}

	// 已结束的操作拒绝复用
	_, err := ops[0].Execute(ResolveRequest{Service: TypedService[*serviceB]()})
	var disposed *OperationDisposedError
	if !errors.As(err, &disposed) {
		t.Errorf("Expected OperationDisposedError, got %v", err)
	}
}

// 循环依赖：同段内重复注册报 CircularDependency
func TestCircularDependency(t *testing.T) {
	type cycleA struct{}
	type cycleB struct{}

	builder := NewContainerBuilder()
	Register[*cycleA](builder, WithDelegate(func(ctx *RequestContext) (any, error) {
		if _, err := ctx.Resolve(TypedService[*cycleB]()); err != nil {
			return nil, err
		}
		return &cycleA{}, nil
	}), WithTransient())
	Register[*cycleB](builder, WithDelegate(func(ctx *RequestContext) (any, error) {
		if _, err := ctx.Resolve(TypedService[*cycleA]()); err != nil {
			return nil, err
		}
		return &cycleB{}, nil
	}), WithTransient())
	root := mustBuild(t, builder)

	_, err := Resolve[*cycleA](root)
	var circular *CircularDependencyError
	if !errors.As(err, &circular) {
		t.Fatalf("Expected CircularDependencyError, got %v", err)
	}
}

// 跨段重入合法：工厂开段后可以再次请求上层进行中的注册
func TestSegmentedReentry(t *testing.T) {
	type widget struct{ ID int }
	counter := 0

	builder := NewContainerBuilder()
	Register[*widget](builder, WithDelegate(func(ctx *RequestContext) (any, error) {
		counter++
		id := counter
		if id == 1 {
			// 经由工厂重入容器解析独立子图
			segment := ctx.Operation().EnterSegment()
			defer segment.Close()

			if _, err := ctx.Resolve(TypedService[*widget]()); err != nil {
				return nil, err
			}
		}
		return &widget{ID: id}, nil
	}), WithTransient())
	root := mustBuild(t, builder)

	first, err := Resolve[*widget](root)
	if err != nil {
		t.Fatalf("Re-entry across a segment must succeed: %v", err)
	}
	if first.ID != 1 || counter != 2 {
		t.Errorf("Expected two activations via segment re-entry, got counter=%d", counter)
	}
}

// 不开段的同样重入是循环
func TestReentryWithoutSegmentIsCycle(t *testing.T) {
	type widget struct{}

	builder := NewContainerBuilder()
	first := true
	Register[*widget](builder, WithDelegate(func(ctx *RequestContext) (any, error) {
		if first {
			first = false
			if _, err := ctx.Resolve(TypedService[*widget]()); err != nil {
				return nil, err
			}
		}
		return &widget{}, nil
	}), WithTransient())
	root := mustBuild(t, builder)

	_, err := Resolve[*widget](root)
	var circular *CircularDependencyError
	if !errors.As(err, &circular) {
		t.Fatalf("Expected CircularDependencyError without a segment, got %v", err)
	}
}

// 共享组件在构造完成后经工厂重入返回缓存实例，不再激活
func TestSharedReentryAfterConstruction(t *testing.T) {
	type widget struct{}
	activations := 0

	builder := NewContainerBuilder()
	Register[*widget](builder, WithDelegate(func(ctx *RequestContext) (any, error) {
		activations++
		return &widget{}, nil
	}), WithSingleton())
	root := mustBuild(t, builder)

	first, err := Resolve[*widget](root)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	second, err := Resolve[*widget](root)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if first != second {
		t.Error("Expected the cached shared instance")
	}
	if activations != 1 {
		t.Errorf("Cached resolution must not re-enter activation, got %d activations", activations)
	}
}

// 单例在自身构造期间经段重入解析自身：自构造错误
func TestSelfConstructingSingleton(t *testing.T) {
	type widget struct{}

	builder := NewContainerBuilder()
	Register[*widget](builder, WithDelegate(func(ctx *RequestContext) (any, error) {
		segment := ctx.Operation().EnterSegment()
		defer segment.Close()

		if _, err := ctx.Resolve(TypedService[*widget]()); err != nil {
			return nil, err
		}
		return &widget{}, nil
	}), WithSingleton())
	root := mustBuild(t, builder)

	_, err := Resolve[*widget](root)
	var selfConstructing *SelfConstructingDependencyError
	if !errors.As(err, &selfConstructing) {
		t.Fatalf("Expected SelfConstructingDependencyError, got %v", err)
	}
}

// 空管线的必需解析：管线返回但未产生实例
func TestPipelineCompletedWithNoInstance(t *testing.T) {
	root := mustBuild(t, NewContainerBuilder())

	type widget struct{}
	reg := &Registration{
		ID:        nextRegistrationID(),
		Services:  []Service{TypedService[*widget]()},
		Activator: &instanceActivator{value: &widget{}},
		Lifetime:  CurrentScopeLifetime{},
		Sharing:   SharingNone,
		Pipeline:  NewPipelineBuilder().Build(),
	}

	_, err := root.ResolveRegistration(reg)
	var noInstance *NoInstanceError
	if !errors.As(err, &noInstance) {
		t.Fatalf("Expected NoInstanceError from an empty pipeline, got %v", err)
	}
}

// 激活器错误在 Execute 边界包装为 ResolutionError
func TestActivatorErrorWrapped(t *testing.T) {
	type widget struct{}
	boom := errors.New("boom")

	builder := NewContainerBuilder()
	Register[*widget](builder, WithFactory(func() (*widget, error) {
		return nil, boom
	}), WithTransient())
	root := mustBuild(t, builder)

	_, err := Resolve[*widget](root)
	var resolution *ResolutionError
	if !errors.As(err, &resolution) {
		t.Fatalf("Expected a ResolutionError wrapper, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Error("The inner error must remain reachable through the wrapper")
	}
}

// 未注册服务
func TestServiceNotRegistered(t *testing.T) {
	root := mustBuild(t, NewContainerBuilder())

	type missing struct{}
	_, err := Resolve[*missing](root)
	var notRegistered *ServiceNotRegisteredError
	if !errors.As(err, &notRegistered) {
		t.Fatalf("Expected ServiceNotRegisteredError, got %v", err)
	}

	_, ok, err := TryResolve[*missing](root)
	if err != nil || ok {
		t.Errorf("TryResolve of a missing service must report absence, got ok=%v err=%v", ok, err)
	}
}

// 失败的操作：嵌套成功请求仍按成功顺序收到完成事件
func TestCompletionWaveAfterFailure(t *testing.T) {
	type widget struct{}

	builder := NewContainerBuilder()
	Register[*serviceB](builder, WithFactory(newServiceB), WithTransient())
	Register[*widget](builder, WithDelegate(func(ctx *RequestContext) (any, error) {
		if _, err := ctx.Resolve(TypedService[*serviceB]()); err != nil {
			return nil, err
		}
		return nil, errors.New("activation failed")
	}), WithTransient())
	root := mustBuild(t, builder)

	completedB := 0
	root.OnResolveOperationBeginning(func(e OperationBeginningEvent) {
		e.Operation.OnResolveRequestBeginning(func(re ResolveRequestBeginningEvent) {
			if re.Context.Service().Type == TypeOf[*serviceB]() {
				re.Context.OnCompleting(func(RequestCompletingEvent) { completedB++ })
			}
		})
	})

	if _, err := Resolve[*widget](root); err == nil {
		t.Fatal("Expected the resolve to fail")
	}
	if completedB != 1 {
		t.Errorf("Nested successful request must still complete once, got %d", completedB)
	}
}
