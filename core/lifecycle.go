package core

import "context"

// LifecycleEvents 管理应用程序的启动与停止钩子
type LifecycleEvents struct {
	onStart []func(context.Context) error
	onStop  []func(context.Context) error
}

// NewLifecycle 创建新的生命周期管理器
func NewLifecycle() *LifecycleEvents {
	return &LifecycleEvents{}
}

// OnStart 注册启动钩子
func (l *LifecycleEvents) OnStart(fn func(context.Context) error) {
	l.onStart = append(l.onStart, fn)
}

// OnStop 注册停止钩子
func (l *LifecycleEvents) OnStop(fn func(context.Context) error) {
	l.onStop = append(l.onStop, fn)
}

// Start 按注册顺序执行启动钩子，第一个错误中断启动
func (l *LifecycleEvents) Start(ctx context.Context) error {
	for _, fn := range l.onStart {
		if err := fn(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Stop 倒序执行停止钩子，错误不中断后续钩子，第一个错误被返回
func (l *LifecycleEvents) Stop(ctx context.Context) error {
	var firstErr error
	for i := len(l.onStop) - 1; i >= 0; i-- {
		if err := l.onStop[i](ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
