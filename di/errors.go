package di

import (
	"errors"
	"fmt"
	"reflect"
)

// frameworkError 标记由容器自身产生的错误。
// Execute 边界只包装非框架错误。
type frameworkError interface {
	error
	frameworkError()
}

// ResolutionError 是所有解析失败的总括错误。
// 管线内部的非框架错误在 Execute 边界被包装为 ResolutionError。
type ResolutionError struct {
	Message string
	Inner   error
}

func (e *ResolutionError) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("di: %s: %v", e.Message, e.Inner)
	}
	return "di: " + e.Message
}

func (e *ResolutionError) Unwrap() error {
	return e.Inner
}

func (e *ResolutionError) frameworkError() {}

// CircularDependencyError 请求的注册已在请求栈的当前段中。
type CircularDependencyError struct {
	Registration string
}

func (e *CircularDependencyError) Error() string {
	return fmt.Sprintf("di: circular dependency detected while resolving %s", e.Registration)
}

func (e *CircularDependencyError) frameworkError() {}

// MatchingScopeNotFoundError 生命周期策略未找到匹配标签的祖先作用域。
type MatchingScopeNotFoundError struct {
	Tags []any
}

func (e *MatchingScopeNotFoundError) Error() string {
	return fmt.Sprintf("di: no lifetime scope matching the tags %v could be found from the resolution scope", e.Tags)
}

func (e *MatchingScopeNotFoundError) frameworkError() {}

// SelfConstructingDependencyError 组件的激活器在自身构造期间递归解析了自身。
type SelfConstructingDependencyError struct {
	Registration string
}

func (e *SelfConstructingDependencyError) Error() string {
	return fmt.Sprintf("di: the shared component %s tried to construct itself during its own construction", e.Registration)
}

func (e *SelfConstructingDependencyError) frameworkError() {}

// NoInstanceError 必需解析的管线返回后实例仍为空。
type NoInstanceError struct {
	Service Service
}

func (e *NoInstanceError) Error() string {
	return fmt.Sprintf("di: the pipeline for %s completed without providing an instance", e.Service)
}

func (e *NoInstanceError) frameworkError() {}

// OperationDisposedError 解析操作已结束后被再次使用。
type OperationDisposedError struct{}

func (e *OperationDisposedError) Error() string {
	return "di: the resolve operation has already ended"
}

func (e *OperationDisposedError) frameworkError() {}

// ScopeDisposedError 作用域（或其祖先）已释放后被使用。
type ScopeDisposedError struct {
	Tag any
}

func (e *ScopeDisposedError) Error() string {
	if e.Tag != nil {
		return fmt.Sprintf("di: the lifetime scope (tag=%v) has already been disposed", e.Tag)
	}
	return "di: the lifetime scope has already been disposed"
}

func (e *ScopeDisposedError) frameworkError() {}

// NoConstructorsFoundError 激活目标没有可用的构造方式。
type NoConstructorsFoundError struct {
	Type reflect.Type
}

func (e *NoConstructorsFoundError) Error() string {
	return fmt.Sprintf("di: no constructors or injectable fields found on %v", e.Type)
}

func (e *NoConstructorsFoundError) frameworkError() {}

// ServiceNotRegisteredError 请求的服务未注册。
type ServiceNotRegisteredError struct {
	Service Service
}

func (e *ServiceNotRegisteredError) Error() string {
	return fmt.Sprintf("di: the requested service %s has not been registered", e.Service)
}

func (e *ServiceNotRegisteredError) frameworkError() {}

// isFrameworkError 报告 err 是否由容器自身产生（沿包装链查找）。
func isFrameworkError(err error) bool {
	for e := err; e != nil; e = errors.Unwrap(e) {
		if _, ok := e.(frameworkError); ok {
			return true
		}
	}
	return false
}

// wrapResolutionError 在 Execute 边界包装非框架错误。
// 框架错误原样返回。
func wrapResolutionError(err error) error {
	if err == nil || isFrameworkError(err) {
		return err
	}
	return &ResolutionError{Message: "an exception was thrown while resolving", Inner: err}
}
