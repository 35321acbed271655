package di

import (
	"fmt"
	"reflect"
	"strings"
)

// Activator 从请求上下文产生原始实例。
// 上下文提供激活作用域、参数序列以及嵌套解析能力。
type Activator interface {
	Activate(ctx *RequestContext) (any, error)
	Description() string
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// instanceActivator 直接返回预创建的实例。
type instanceActivator struct {
	value any
}

func (a *instanceActivator) Activate(ctx *RequestContext) (any, error) {
	return a.value, nil
}

func (a *instanceActivator) Description() string {
	return fmt.Sprintf("provided instance %T", a.value)
}

// delegateActivator 委托给一个接收上下文的函数。
type delegateActivator struct {
	desc string
	fn   func(ctx *RequestContext) (any, error)
}

func (a *delegateActivator) Activate(ctx *RequestContext) (any, error) {
	return a.fn(ctx)
}

func (a *delegateActivator) Description() string {
	return a.desc
}

// funcActivator 调用工厂或构造函数，参数自动注入。
// 参数先尝试由请求参数提供，未匹配时从容器解析。
type funcActivator struct {
	fn     reflect.Value
	fnType reflect.Type
	desc   string
}

// newFuncActivator 创建函数激活器，校验签名。
func newFuncActivator(fn any) (*funcActivator, error) {
	fnVal := reflect.ValueOf(fn)
	if !fnVal.IsValid() || fnVal.Kind() != reflect.Func {
		return nil, fmt.Errorf("di: factory must be a function, got %T", fn)
	}
	fnType := fnVal.Type()
	if fnType.NumOut() == 0 {
		return nil, fmt.Errorf("di: factory function must return at least one value")
	}
	return &funcActivator{
		fn:     fnVal,
		fnType: fnType,
		desc:   fmt.Sprintf("constructor %v", fnType),
	}, nil
}

func (a *funcActivator) Activate(ctx *RequestContext) (any, error) {
	args := make([]reflect.Value, a.fnType.NumIn())
	for i := range args {
		argType := a.fnType.In(i)

		if v, ok := supplyFromParameters(ctx.Parameters(), argType, ""); ok {
			args[i] = asArgValue(v, argType)
			continue
		}

		dep, err := ctx.ResolveType(argType)
		if err != nil {
			return nil, fmt.Errorf("di: argument %d of %s: %w", i, a.desc, err)
		}
		args[i] = asArgValue(dep, argType)
	}

	results := a.fn.Call(args)

	// 最后一个返回值若为 error 则作为激活失败
	if len(results) > 1 {
		last := results[len(results)-1]
		if last.Type().Implements(errorType) && !last.IsNil() {
			return nil, last.Interface().(error)
		}
	}

	first := results[0]
	if (first.Kind() == reflect.Pointer || first.Kind() == reflect.Interface) && first.IsNil() {
		return nil, fmt.Errorf("di: %s returned a nil instance", a.desc)
	}
	return first.Interface(), nil
}

func (a *funcActivator) Description() string {
	return a.desc
}

// fieldInjection 需要注入的结构体字段的元数据。
type fieldInjection struct {
	Index    int
	Name     string
	Type     reflect.Type
	Optional bool
	Key      string
}

// structActivator 实例化结构体并注入带 `di` 标签的字段。
type structActivator struct {
	implType reflect.Type // 结构体或结构体指针
	fields   []fieldInjection
	desc     string
}

// newStructActivator 分析目标类型并创建结构体激活器。
// 注入元数据在注册构建时计算一次，激活时不再反射标签。
func newStructActivator(implType reflect.Type) (*structActivator, error) {
	structType := implType
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return nil, &NoConstructorsFoundError{Type: implType}
	}

	var fields []fieldInjection
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		tagValue, hasTag := field.Tag.Lookup("di")
		if !hasTag {
			continue
		}
		fields = append(fields, parseFieldTag(i, field, tagValue))
	}

	return &structActivator{
		implType: implType,
		fields:   fields,
		desc:     fmt.Sprintf("struct %v", implType),
	}, nil
}

// parseFieldTag 解析字段标签 "name,option"。
// "?" 或 "optional" 表示依赖缺失时跳过注入。
func parseFieldTag(index int, field reflect.StructField, tagValue string) fieldInjection {
	parts := strings.Split(tagValue, ",")
	key := strings.TrimSpace(parts[0])
	optional := false

	if key == "?" || key == "optional" {
		key = ""
		optional = true
	}
	for _, part := range parts[1:] {
		part = strings.TrimSpace(part)
		if part == "optional" || part == "?" {
			optional = true
		}
	}

	return fieldInjection{
		Index:    index,
		Name:     field.Name,
		Type:     field.Type,
		Optional: optional,
		Key:      key,
	}
}

func (a *structActivator) Activate(ctx *RequestContext) (any, error) {
	structType := a.implType
	isPointer := structType.Kind() == reflect.Pointer
	if isPointer {
		structType = structType.Elem()
	}

	val := reflect.New(structType)
	elem := val.Elem()

	for _, f := range a.fields {
		if v, ok := supplyFromParameters(ctx.Parameters(), f.Type, f.Name); ok {
			elem.Field(f.Index).Set(asArgValue(v, f.Type))
			continue
		}

		var dep any
		var err error
		if f.Key != "" {
			dep, err = ctx.ResolveKeyedType(f.Key, f.Type)
		} else {
			dep, err = ctx.ResolveType(f.Type)
		}
		if err != nil {
			if f.Optional {
				continue
			}
			return nil, fmt.Errorf("di: field %s of %s: %w", f.Name, a.desc, err)
		}
		elem.Field(f.Index).Set(asArgValue(dep, f.Type))
	}

	if isPointer {
		return val.Interface(), nil
	}
	return elem.Interface(), nil
}

func (a *structActivator) Description() string {
	return a.desc
}

// asArgValue 将 any 转为目标类型的 reflect.Value，nil 用零值表示。
func asArgValue(v any, typ reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(typ)
	}
	return reflect.ValueOf(v)
}
