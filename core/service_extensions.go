package core

import (
	"reflect"

	"github.com/gocrud/container/di"
)

// AddSingleton 将接口 T 绑定到实现 impl，并注册为单例
// impl 可以是实例，也可以是构造函数
//
// 示例:
//
//	core.AddSingleton[IService](services, NewServiceImpl)
func AddSingleton[T any](s *ServiceCollection, impl any) {
	di.Register[T](s.Builder(), append(implOptions(impl), di.WithSingleton())...)
}

// AddTransient 将接口 T 绑定到实现 impl，并注册为瞬态服务
//
// 示例:
//
//	core.AddTransient[IWorker](services, NewWorker)
func AddTransient[T any](s *ServiceCollection, impl any) {
	di.Register[T](s.Builder(), append(implOptions(impl), di.WithTransient())...)
}

// AddScoped 将接口 T 绑定到实现 impl，并注册为作用域服务
//
// 示例:
//
//	core.AddScoped[IRequestScope](services, NewRequestScope)
func AddScoped[T any](s *ServiceCollection, impl any) {
	di.Register[T](s.Builder(), append(implOptions(impl), di.WithScoped())...)
}

// implOptions 按 impl 的形态选择注册方式：函数作为工厂，其余作为值
func implOptions(impl any) []di.Option {
	if impl != nil && reflect.TypeOf(impl).Kind() == reflect.Func {
		return []di.Option{di.WithFactory(impl)}
	}
	return []di.Option{di.WithValue(impl)}
}
