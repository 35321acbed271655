package di

import "sync"

// eventList 事件发布者持有的一小组回调。
// 没有全局订阅表；处理器按订阅顺序同步调用。
type eventList[T any] struct {
	mu       sync.Mutex
	handlers []func(T)
}

// Subscribe 追加一个处理器。
func (e *eventList[T]) Subscribe(handler func(T)) {
	if handler == nil {
		return
	}
	e.mu.Lock()
	e.handlers = append(e.handlers, handler)
	e.mu.Unlock()
}

// Invoke 按订阅顺序同步调用所有处理器。
func (e *eventList[T]) Invoke(arg T) {
	e.mu.Lock()
	handlers := make([]func(T), len(e.handlers))
	copy(handlers, e.handlers)
	e.mu.Unlock()

	for _, h := range handlers {
		h(arg)
	}
}

// ChildScopeBeginningEvent 子作用域创建事件。
type ChildScopeBeginningEvent struct {
	Parent *LifetimeScope
	Child  *LifetimeScope
}

// ScopeEndingEvent 作用域释放事件，在 Disposer 排空之前触发。
type ScopeEndingEvent struct {
	Scope *LifetimeScope
}

// OperationBeginningEvent 作用域上新解析操作开始事件。
type OperationBeginningEvent struct {
	Operation *ResolveOperation
}

// ResolveRequestBeginningEvent 单个解析请求开始事件，
// 严格先于该请求的管线及任何嵌套请求触发。
type ResolveRequestBeginningEvent struct {
	Context *RequestContext
}

// OperationEndingEvent 解析操作结束事件。失败结束时携带错误。
type OperationEndingEvent struct {
	Operation *ResolveOperation
	Err       error
}

// RequestCompletingEvent 请求完成事件，在最外层请求返回后按成功顺序（先成功先完成）触发。
type RequestCompletingEvent struct {
	Context *RequestContext
}
