package di

import "fmt"

// Resolve 从作用域解析类型 T 的实例。
func Resolve[T any](scope *LifetimeScope, params ...Parameter) (T, error) {
	return resolveService[T](scope, TypedService[T](), params)
}

// ResolveKeyed 从作用域解析类型 T 加键的实例。
func ResolveKeyed[T any](scope *LifetimeScope, key any, params ...Parameter) (T, error) {
	return resolveService[T](scope, KeyedServiceOf[T](key), params)
}

// ResolveNamed 从作用域解析类型 T 的命名实例。
func ResolveNamed[T any](scope *LifetimeScope, name string, params ...Parameter) (T, error) {
	return resolveService[T](scope, KeyedServiceOf[T](name), params)
}

func resolveService[T any](scope *LifetimeScope, service Service, params []Parameter) (T, error) {
	var zero T

	val, err := scope.Resolve(service, params...)
	if err != nil {
		return zero, err
	}

	typed, ok := val.(T)
	if !ok {
		return zero, fmt.Errorf("di: resolved value is %T, expected %v", val, service.Type)
	}
	return typed, nil
}

// TryResolve 同 Resolve，服务缺失或策略不匹配时返回 false 而不报错。
func TryResolve[T any](scope *LifetimeScope, params ...Parameter) (T, bool, error) {
	var zero T

	val, ok, err := scope.TryResolve(TypedService[T](), params...)
	if err != nil || !ok {
		return zero, false, err
	}

	typed, tok := val.(T)
	if !tok {
		return zero, false, fmt.Errorf("di: resolved value is %T, expected %v", val, TypeOf[T]())
	}
	return typed, true, nil
}

// MustResolve 解析类型 T 的实例，失败时 panic。
func MustResolve[T any](scope *LifetimeScope, params ...Parameter) T {
	val, err := Resolve[T](scope, params...)
	if err != nil {
		panic(fmt.Sprintf("di: MustResolve failed: %v", err))
	}
	return val
}
