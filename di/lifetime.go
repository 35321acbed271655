package di

// Lifetime 生命周期策略。
// 给定发起解析的最内层作用域，定位应当持有共享实例的作用域。
type Lifetime interface {
	// FindScope 返回持有共享实例的作用域，找不到时报错
	FindScope(mostNested *LifetimeScope) (*LifetimeScope, error)

	// TryFindScope 同 FindScope，但找不到时返回 false 而不报错。
	// 用于非必需的解析请求。
	TryFindScope(mostNested *LifetimeScope) (*LifetimeScope, bool)
}

// CurrentScopeLifetime 实例归属发起解析的作用域。
type CurrentScopeLifetime struct{}

func (CurrentScopeLifetime) FindScope(mostNested *LifetimeScope) (*LifetimeScope, error) {
	return mostNested, nil
}

func (CurrentScopeLifetime) TryFindScope(mostNested *LifetimeScope) (*LifetimeScope, bool) {
	return mostNested, true
}

// RootScopeLifetime 实例归属根作用域（单例）。
type RootScopeLifetime struct{}

func (RootScopeLifetime) FindScope(mostNested *LifetimeScope) (*LifetimeScope, error) {
	return mostNested.Root(), nil
}

func (RootScopeLifetime) TryFindScope(mostNested *LifetimeScope) (*LifetimeScope, bool) {
	return mostNested.Root(), true
}

// MatchingScopeLifetime 实例归属最近的标签匹配的祖先作用域。
// 从发起作用域向上逐级比较标签（值相等），第一个命中者即为归属。
type MatchingScopeLifetime struct {
	Tags []any
}

// NewMatchingScopeLifetime 创建标签匹配生命周期策略。
func NewMatchingScopeLifetime(tags ...any) *MatchingScopeLifetime {
	return &MatchingScopeLifetime{Tags: tags}
}

func (m *MatchingScopeLifetime) FindScope(mostNested *LifetimeScope) (*LifetimeScope, error) {
	if scope, ok := m.TryFindScope(mostNested); ok {
		return scope, nil
	}
	return nil, &MatchingScopeNotFoundError{Tags: m.Tags}
}

func (m *MatchingScopeLifetime) TryFindScope(mostNested *LifetimeScope) (*LifetimeScope, bool) {
	for scope := mostNested; scope != nil; scope = scope.Parent() {
		for _, tag := range m.Tags {
			if scope.Tag() == tag {
				return scope, true
			}
		}
	}
	return nil, false
}
