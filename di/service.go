package di

import (
	"fmt"
	"reflect"
)

// Service 标识一次解析请求所请求的服务。
// 服务由类型标识，或由类型加键（命名/限定服务）标识。
// Service 是可比较的值类型，可直接作为 map 的键使用。
type Service struct {
	// Type 服务类型
	Type reflect.Type

	// Key 服务键，nil 表示无键服务。
	// 键必须是可比较的值（字符串、Token 等）。
	Key any
}

// NewService 创建按类型标识的服务。
func NewService(typ reflect.Type) Service {
	return Service{Type: typ}
}

// NewKeyedService 创建按键加类型标识的服务。
func NewKeyedService(key any, typ reflect.Type) Service {
	return Service{Type: typ, Key: key}
}

// IsKeyed 报告服务是否带键。
func (s Service) IsKeyed() bool {
	return s.Key != nil
}

// IsZero 报告服务是否为零值（未指定）。
func (s Service) IsZero() bool {
	return s.Type == nil
}

// String 返回服务的可读描述。
func (s Service) String() string {
	if s.Type == nil {
		return "<nil service>"
	}
	if s.Key != nil {
		return fmt.Sprintf("%v (key=%v)", s.Type, s.Key)
	}
	return s.Type.String()
}

// TypedService 获取类型 T 的服务标识（泛型辅助函数）。
func TypedService[T any]() Service {
	return Service{Type: TypeOf[T]()}
}

// KeyedServiceOf 获取类型 T 加键的服务标识。
func KeyedServiceOf[T any](key any) Service {
	return Service{Type: TypeOf[T](), Key: key}
}

// TypeOf 获取类型 T 的 reflect.Type（泛型辅助函数）。
//
// 示例：
//
//	loggerType := di.TypeOf[Logger]()
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
