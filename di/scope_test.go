package di

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

// 测试用接口和实现
type TestLogger interface {
	Log(msg string)
}

type ConsoleLogger struct {
	ID int
}

func (l *ConsoleLogger) Log(msg string) {}

var loggerCounter int
var loggerMu sync.Mutex

func NewTestConsoleLogger() *ConsoleLogger {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	loggerCounter++
	return &ConsoleLogger{ID: loggerCounter}
}

func resetLoggerCounter() {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	loggerCounter = 0
}

func mustBuild(t *testing.T, b *ContainerBuilder) *Container {
	t.Helper()
	root, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return root
}

// 单例：重复解析返回同一实例，只创建一次
func TestSingletonSharing(t *testing.T) {
	resetLoggerCounter()

	builder := NewContainerBuilder()
	Register[TestLogger](builder, WithFactory(NewTestConsoleLogger), WithSingleton())
	root := mustBuild(t, builder)

	first, err := Resolve[TestLogger](root)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	second, err := Resolve[TestLogger](root)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if first.(*ConsoleLogger) != second.(*ConsoleLogger) {
		t.Errorf("Expected same instance, got IDs %d and %d",
			first.(*ConsoleLogger).ID, second.(*ConsoleLogger).ID)
	}
	if loggerCounter != 1 {
		t.Errorf("Expected one activation, got %d", loggerCounter)
	}
}

// 单例从子作用域解析仍归属根作用域
func TestSingletonOwnedByRoot(t *testing.T) {
	resetLoggerCounter()

	builder := NewContainerBuilder()
	Register[TestLogger](builder, WithFactory(NewTestConsoleLogger), WithSingleton())
	root := mustBuild(t, builder)

	child, err := root.BeginLifetimeScope()
	if err != nil {
		t.Fatalf("BeginLifetimeScope failed: %v", err)
	}

	fromChild, err := Resolve[TestLogger](child)
	if err != nil {
		t.Fatalf("Resolve from child failed: %v", err)
	}
	fromRoot, err := Resolve[TestLogger](root)
	if err != nil {
		t.Fatalf("Resolve from root failed: %v", err)
	}

	if fromChild != fromRoot {
		t.Error("Expected the child resolution to return the root-owned instance")
	}

	// 实例缓存在根作用域的共享映射里
	if _, ok := child.TryGetSharedInstance(registrationIDFor(t, root, TypedService[TestLogger]()), nil); ok {
		t.Error("Child scope should not cache a root-owned instance")
	}
}

func registrationIDFor(t *testing.T, scope *LifetimeScope, service Service) uint64 {
	t.Helper()
	reg, ok := scope.Registry().RegistrationFor(service)
	if !ok {
		t.Fatalf("registration for %s not found", service)
	}
	return reg.ID
}

// 瞬态：每次解析创建新实例
func TestTransient(t *testing.T) {
	resetLoggerCounter()

	builder := NewContainerBuilder()
	Register[TestLogger](builder, WithFactory(NewTestConsoleLogger), WithTransient())
	root := mustBuild(t, builder)

	first, _ := Resolve[TestLogger](root)
	second, _ := Resolve[TestLogger](root)

	if first.(*ConsoleLogger).ID == second.(*ConsoleLogger).ID {
		t.Error("Expected different instances for a transient registration")
	}
	if loggerCounter != 2 {
		t.Errorf("Expected two activations, got %d", loggerCounter)
	}
}

// 作用域内共享：同作用域同实例，不同作用域不同实例
func TestScopedSharing(t *testing.T) {
	resetLoggerCounter()

	builder := NewContainerBuilder()
	Register[TestLogger](builder, WithFactory(NewTestConsoleLogger), WithScoped())
	root := mustBuild(t, builder)

	scopeA, _ := root.BeginLifetimeScope()
	scopeB, _ := root.BeginLifetimeScope()

	a1, _ := Resolve[TestLogger](scopeA)
	a2, _ := Resolve[TestLogger](scopeA)
	b1, _ := Resolve[TestLogger](scopeB)

	if a1 != a2 {
		t.Error("Expected the same instance within one scope")
	}
	if a1 == b1 {
		t.Error("Expected sibling scopes to hold independent instances")
	}
}

// 标签匹配：实例归属最近的标签匹配祖先，随该祖先释放
func TestMatchingScopeResolution(t *testing.T) {
	builder := NewContainerBuilder()
	Register[*trackedDisposable](builder,
		WithFactory(func() *trackedDisposable { return &trackedDisposable{} }),
		WithMatchingScope("unit"))
	root := mustBuild(t, builder)

	unit, err := root.BeginLifetimeScope(WithTag("unit"))
	if err != nil {
		t.Fatalf("BeginLifetimeScope failed: %v", err)
	}
	inner, err := unit.BeginLifetimeScope()
	if err != nil {
		t.Fatalf("BeginLifetimeScope failed: %v", err)
	}

	first, err := Resolve[*trackedDisposable](inner)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	second, err := Resolve[*trackedDisposable](inner)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if first != second {
		t.Error("Expected both resolutions to return the unit-owned instance")
	}

	// 内层匿名作用域释放不触碰 unit 持有的实例
	if err := inner.Dispose(); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if first.disposed {
		t.Error("Instance must not be disposed with the inner scope")
	}

	if err := unit.Dispose(); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if !first.disposed {
		t.Error("Instance must be disposed with the unit scope")
	}
}

// 标签匹配：没有匹配祖先时必需解析报 MatchingScopeNotFound，TryResolve 返回缺席
func TestMatchingScopeNotFound(t *testing.T) {
	builder := NewContainerBuilder()
	Register[*trackedDisposable](builder,
		WithFactory(func() *trackedDisposable { return &trackedDisposable{} }),
		WithMatchingScope("unit"))
	root := mustBuild(t, builder)

	sibling, _ := root.BeginLifetimeScope(WithTag("other"))

	_, err := Resolve[*trackedDisposable](sibling)
	if err == nil {
		t.Fatal("Expected an error resolving outside a matching scope")
	}
	var notFound *MatchingScopeNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("Expected MatchingScopeNotFoundError, got %v", err)
	}

	_, ok, err := TryResolve[*trackedDisposable](sibling)
	if err != nil {
		t.Fatalf("TryResolve must not fail: %v", err)
	}
	if ok {
		t.Error("TryResolve must report absence")
	}
}

// 非匿名标签在祖先路径上重复时创建失败
func TestDuplicateTagRejected(t *testing.T) {
	root := mustBuild(t, NewContainerBuilder())

	unit, err := root.BeginLifetimeScope(WithTag("unit"))
	if err != nil {
		t.Fatalf("BeginLifetimeScope failed: %v", err)
	}

	if _, err := unit.BeginLifetimeScope(WithTag("unit")); err == nil {
		t.Error("Expected duplicate ancestor tag to be rejected")
	}

	// 兄弟作用域可以复用标签
	if _, err := root.BeginLifetimeScope(WithTag("unit")); err != nil {
		t.Errorf("Sibling scopes may share a tag: %v", err)
	}

	// 匿名作用域互不冲突
	anon1, err := root.BeginLifetimeScope()
	if err != nil {
		t.Fatalf("anonymous scope: %v", err)
	}
	if _, err := anon1.BeginLifetimeScope(); err != nil {
		t.Errorf("nested anonymous scopes must not conflict: %v", err)
	}
}

// 自注册：从任意作用域解析 *LifetimeScope 得到该作用域自身
func TestScopeSelfRegistration(t *testing.T) {
	root := mustBuild(t, NewContainerBuilder())
	child, _ := root.BeginLifetimeScope()

	fromRoot, err := Resolve[*LifetimeScope](root)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if fromRoot != root {
		t.Error("Root must resolve itself")
	}

	fromChild, err := Resolve[*LifetimeScope](child)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if fromChild != child {
		t.Error("Child must resolve itself, not an ancestor")
	}
}

// 子作用域叠加注册只对子树可见
func TestChildScopeRegistrations(t *testing.T) {
	builder := NewContainerBuilder()
	Register[TestLogger](builder, WithFactory(NewTestConsoleLogger), WithTransient())
	root := mustBuild(t, builder)

	type extra struct{ Value string }

	child, err := root.BeginLifetimeScope(WithRegistrations(func(b *ContainerBuilder) {
		Register[*extra](b, WithValue(&extra{Value: "child"}))
	}))
	if err != nil {
		t.Fatalf("BeginLifetimeScope failed: %v", err)
	}

	if _, err := Resolve[*extra](child); err != nil {
		t.Errorf("Child must see the overlay registration: %v", err)
	}
	if _, err := Resolve[*extra](root); err == nil {
		t.Error("Root must not see child overlay registrations")
	}
	// 父注册经由子作用域仍可解析
	if _, err := Resolve[TestLogger](child); err != nil {
		t.Errorf("Child must see parent registrations: %v", err)
	}
}

// 释放幂等：重复 Dispose 不再触发 scope-ending，也不再排空 Disposer
func TestDisposeIdempotent(t *testing.T) {
	builder := NewContainerBuilder()
	Register[*trackedDisposable](builder,
		WithFactory(func() *trackedDisposable { return &trackedDisposable{} }),
		WithScoped())
	root := mustBuild(t, builder)

	scope, _ := root.BeginLifetimeScope()
	instance, _ := Resolve[*trackedDisposable](scope)

	endingCount := 0
	scope.OnCurrentScopeEnding(func(ScopeEndingEvent) { endingCount++ })

	if err := scope.Dispose(); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}
	if err := scope.Dispose(); err != nil {
		t.Fatalf("Second dispose must be a no-op: %v", err)
	}

	if endingCount != 1 {
		t.Errorf("scope-ending must fire exactly once, fired %d times", endingCount)
	}
	if instance.disposeCount != 1 {
		t.Errorf("Instance must be disposed exactly once, got %d", instance.disposeCount)
	}
}

// 已释放作用域上的操作失败
func TestDisposedScopeRejectsUse(t *testing.T) {
	root := mustBuild(t, NewContainerBuilder())
	scope, _ := root.BeginLifetimeScope()
	if err := scope.Dispose(); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}

	var disposedErr *ScopeDisposedError

	if _, err := Resolve[*LifetimeScope](scope); !errors.As(err, &disposedErr) {
		t.Errorf("Resolve after dispose must fail with ScopeDisposedError, got %v", err)
	}
	if _, err := scope.BeginLifetimeScope(); !errors.As(err, &disposedErr) {
		t.Errorf("BeginLifetimeScope after dispose must fail, got %v", err)
	}
}

// 所有权：owned 实例随作用域释放，externally-owned 不被触碰
func TestOwnershipOnDisposal(t *testing.T) {
	external := &trackedDisposable{}

	builder := NewContainerBuilder()
	Register[*trackedDisposable](builder,
		WithName("owned"),
		WithFactory(func() *trackedDisposable { return &trackedDisposable{} }))
	Register[*trackedDisposable](builder,
		WithName("external"),
		WithFactory(func() *trackedDisposable { return external }),
		ExternallyOwned())
	root := mustBuild(t, builder)

	owned, err := ResolveNamed[*trackedDisposable](root, "owned")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if _, err := ResolveNamed[*trackedDisposable](root, "external"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if err := root.Dispose(); err != nil {
		t.Fatalf("Dispose failed: %v", err)
	}

	if owned.disposeCount != 1 {
		t.Errorf("Owned instance must be disposed once, got %d", owned.disposeCount)
	}
	if external.disposeCount != 0 {
		t.Errorf("Externally-owned instance must not be disposed, got %d", external.disposeCount)
	}
}

// 子作用域创建事件
func TestChildScopeBeginningEvent(t *testing.T) {
	root := mustBuild(t, NewContainerBuilder())

	var observed *LifetimeScope
	root.OnChildLifetimeScopeBeginning(func(e ChildScopeBeginningEvent) {
		observed = e.Child
	})

	child, _ := root.BeginLifetimeScope()
	if observed != child {
		t.Error("child-lifetime-scope-beginning must carry the new child")
	}
}

// 并发解析单例：一个创建者胜出
func TestConcurrentSingletonResolution(t *testing.T) {
	resetLoggerCounter()

	builder := NewContainerBuilder()
	Register[TestLogger](builder, WithFactory(NewTestConsoleLogger), WithSingleton())
	root := mustBuild(t, builder)

	const workers = 32
	results := make([]TestLogger, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			v, err := Resolve[TestLogger](root)
			if err != nil {
				t.Errorf("Resolve failed: %v", err)
				return
			}
			results[n] = v
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Fatalf("Expected one shared instance under contention")
		}
	}
	if loggerCounter != 1 {
		t.Errorf("Expected a single activation under contention, got %d", loggerCounter)
	}
}

// trackedDisposable 记录释放次数的测试组件
type trackedDisposable struct {
	disposed     bool
	disposeCount int
}

func (d *trackedDisposable) Dispose() error {
	d.disposed = true
	d.disposeCount++
	return nil
}

func ExampleResolve() {
	builder := NewContainerBuilder()
	Register[TestLogger](builder, WithFactory(NewTestConsoleLogger))

	root, _ := builder.Build()
	defer root.Dispose()

	logger, _ := Resolve[TestLogger](root)
	fmt.Println(logger != nil)
	// Output: true
}
