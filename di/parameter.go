package di

import "reflect"

// Parameter 为激活器提供构造输入。
// 核心不解释参数，只按顺序传递；由激活器按签名匹配。
type Parameter interface {
	// TrySupply 尝试为目标参数提供值。
	// typ 是参数的声明类型，name 是参数/字段名（可能为空）。
	TrySupply(typ reflect.Type, name string) (any, bool)
}

// TypedParameter 按类型匹配的参数。
// 值可赋给目标类型即视为匹配。
type TypedParameter struct {
	Type  reflect.Type
	Value any
}

// NewTypedParameter 创建按类型匹配的参数（泛型辅助函数）。
func NewTypedParameter[T any](value T) TypedParameter {
	return TypedParameter{Type: TypeOf[T](), Value: value}
}

func (p TypedParameter) TrySupply(typ reflect.Type, name string) (any, bool) {
	if p.Type != nil && p.Type.AssignableTo(typ) {
		return p.Value, true
	}
	return nil, false
}

// NamedParameter 按名称匹配的参数。
// 匹配结构体字段名或构造函数参数名。
type NamedParameter struct {
	Name  string
	Value any
}

func (p NamedParameter) TrySupply(typ reflect.Type, name string) (any, bool) {
	if p.Name != "" && p.Name == name {
		return p.Value, true
	}
	return nil, false
}

// supplyFromParameters 依次尝试每个参数，返回第一个匹配的值。
func supplyFromParameters(params []Parameter, typ reflect.Type, name string) (any, bool) {
	for _, p := range params {
		if v, ok := p.TrySupply(typ, name); ok {
			return v, true
		}
	}
	return nil, false
}
