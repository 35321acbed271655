package di

import (
	"fmt"
	"reflect"
)

// Token 表示一个依赖注入的令牌，用于区分相同类型的不同注册
//
// 使用场景：
//   - 需要注册多个相同类型但用途不同的实例（如多个数据库连接）
//   - 配置值（如字符串、整数等基本类型）
//
// 示例：
//
//	var DBConnectionString = di.NewToken[string]("db-connection")
//
//	di.Register[string](builder, di.WithValue("postgres://..."), di.WithKey(DBConnectionString))
//
//	conn, _ := di.ResolveKeyed[string](scope, DBConnectionString)
type Token[T any] struct {
	name string
	typ  reflect.Type
}

// NewToken 创建一个新的 Token
//
// 参数 name 用于标识此 Token，应该是唯一的描述性名称。
func NewToken[T any](name string) *Token[T] {
	return &Token[T]{
		name: name,
		typ:  reflect.TypeOf((*T)(nil)).Elem(),
	}
}

// Name 返回 Token 的名称
func (t *Token[T]) Name() string {
	return t.name
}

// Type 返回 Token 的类型
func (t *Token[T]) Type() reflect.Type {
	return t.typ
}

// Service 返回以此 Token 为键的服务标识
func (t *Token[T]) Service() Service {
	return Service{Type: t.typ, Key: t}
}

// String 返回 Token 的字符串表示
func (t *Token[T]) String() string {
	return fmt.Sprintf("Token[%s](%s)", t.typ, t.name)
}
