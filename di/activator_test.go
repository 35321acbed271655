package di

import (
	"errors"
	"testing"
)

type database struct{ DSN string }

type repository struct {
	DB *database
}

// 构造函数注入：参数从容器解析
func TestFuncActivatorInjection(t *testing.T) {
	builder := NewContainerBuilder()
	Register[*database](builder, WithValue(&database{DSN: "sqlite://"}))
	Register[*repository](builder, WithFactory(func(db *database) *repository {
		return &repository{DB: db}
	}), WithTransient())
	root := mustBuild(t, builder)

	repo, err := Resolve[*repository](root)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if repo.DB == nil || repo.DB.DSN != "sqlite://" {
		t.Errorf("Expected the database dependency injected, got %+v", repo.DB)
	}
}

// 显式参数优先于容器解析
func TestTypedParameterOverride(t *testing.T) {
	builder := NewContainerBuilder()
	Register[*database](builder, WithValue(&database{DSN: "registered"}))
	Register[*repository](builder, WithFactory(func(db *database) *repository {
		return &repository{DB: db}
	}), WithTransient())
	root := mustBuild(t, builder)

	override := &database{DSN: "override"}
	repo, err := Resolve[*repository](root, NewTypedParameter(override))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if repo.DB != override {
		t.Errorf("Expected the supplied parameter to win, got %+v", repo.DB)
	}
}

// 结构体注入：di 标签字段，命名与可选
type taggedService struct {
	DB       *database   `di:""`
	Backup   *database   `di:"backup"`
	Missing  *repository `di:"?"`
	Untagged string
}

func TestStructActivatorInjection(t *testing.T) {
	builder := NewContainerBuilder()
	Register[*database](builder, WithValue(&database{DSN: "main"}))
	Register[*database](builder, WithName("backup"), WithValue(&database{DSN: "backup"}))
	Register[*taggedService](builder, Use[*taggedService](), WithTransient())
	root := mustBuild(t, builder)

	svc, err := Resolve[*taggedService](root)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if svc.DB == nil || svc.DB.DSN != "main" {
		t.Errorf("Expected the unnamed database, got %+v", svc.DB)
	}
	if svc.Backup == nil || svc.Backup.DSN != "backup" {
		t.Errorf("Expected the keyed database, got %+v", svc.Backup)
	}
	if svc.Missing != nil {
		t.Error("An optional missing dependency must stay nil")
	}
	if svc.Untagged != "" {
		t.Error("Untagged fields must not be touched")
	}
}

// 非可选字段缺失：解析失败
func TestStructActivatorRequiredFieldMissing(t *testing.T) {
	type needy struct {
		Repo *repository `di:""`
	}

	builder := NewContainerBuilder()
	Register[*needy](builder, WithTransient())
	root := mustBuild(t, builder)

	if _, err := Resolve[*needy](root); err == nil {
		t.Error("Expected a failure for a missing required field")
	}
}

// 接口类型没有实现方式：构建失败
func TestInterfaceWithoutImplementation(t *testing.T) {
	builder := NewContainerBuilder()
	Register[TestLogger](builder)

	if _, err := builder.Build(); err == nil {
		t.Error("Registering a bare interface must fail at build time")
	}
}

// 不可构造的目标：NoConstructorsFound
func TestNoConstructorsFound(t *testing.T) {
	_, err := newStructActivator(TypeOf[int]())
	var noCtor *NoConstructorsFoundError
	if !errors.As(err, &noCtor) {
		t.Fatalf("Expected NoConstructorsFoundError, got %v", err)
	}
}

// 工厂签名校验
func TestFuncActivatorValidation(t *testing.T) {
	if _, err := newFuncActivator(42); err == nil {
		t.Error("A non-function factory must be rejected")
	}
	if _, err := newFuncActivator(func() {}); err == nil {
		t.Error("A factory without return values must be rejected")
	}
}

// 工厂返回 nil 实例：激活失败
func TestFuncActivatorNilResult(t *testing.T) {
	builder := NewContainerBuilder()
	Register[*database](builder, WithFactory(func() *database { return nil }), WithTransient())
	root := mustBuild(t, builder)

	if _, err := Resolve[*database](root); err == nil {
		t.Error("A nil constructor result must fail the activation")
	}
}

// Token 作为服务键
func TestTokenKeyedService(t *testing.T) {
	dsnToken := NewToken[string]("db-dsn")

	builder := NewContainerBuilder()
	Register[string](builder, WithKey(dsnToken), WithValue("postgres://..."))
	root := mustBuild(t, builder)

	dsn, err := ResolveKeyed[string](root, dsnToken)
	if err != nil {
		t.Fatalf("ResolveKeyed failed: %v", err)
	}
	if dsn != "postgres://..." {
		t.Errorf("Expected the token-keyed value, got %q", dsn)
	}

	// 无键解析不命中带键注册
	if _, err := Resolve[string](root); err == nil {
		t.Error("An unkeyed resolve must not see the keyed registration")
	}
}

// As：一个注册提供多个服务
func TestAdditionalServices(t *testing.T) {
	builder := NewContainerBuilder()
	Register[*ConsoleLogger](builder,
		WithFactory(NewTestConsoleLogger),
		As[TestLogger](),
		WithSingleton())
	root := mustBuild(t, builder)

	byStruct, err := Resolve[*ConsoleLogger](root)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	byIface, err := Resolve[TestLogger](root)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if byStruct != byIface.(*ConsoleLogger) {
		t.Error("Both services must share the one instance")
	}
}

// MustResolve 失败时 panic
func TestMustResolvePanics(t *testing.T) {
	root := mustBuild(t, NewContainerBuilder())

	defer func() {
		if recover() == nil {
			t.Error("MustResolve must panic for a missing service")
		}
	}()
	MustResolve[*database](root)
}

// 生命周期策略
func TestLifetimePolicies(t *testing.T) {
	root := mustBuild(t, NewContainerBuilder())
	unit, _ := root.BeginLifetimeScope(WithTag("unit"))
	leaf, _ := unit.BeginLifetimeScope()

	if s, _ := (CurrentScopeLifetime{}).FindScope(leaf); s != leaf {
		t.Error("CurrentScopeLifetime must return the starting scope")
	}
	if s, _ := (RootScopeLifetime{}).FindScope(leaf); s != root {
		t.Error("RootScopeLifetime must return the root")
	}

	matching := NewMatchingScopeLifetime("unit")
	if s, err := matching.FindScope(leaf); err != nil || s != unit {
		t.Errorf("MatchingScopeLifetime must find the nearest tagged ancestor, got %v, %v", s, err)
	}

	missing := NewMatchingScopeLifetime("absent")
	if _, err := missing.FindScope(leaf); err == nil {
		t.Error("FindScope must fail without a matching ancestor")
	}
	if _, ok := missing.TryFindScope(leaf); ok {
		t.Error("TryFindScope must report absence")
	}
}
