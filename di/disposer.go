package di

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Disposable 同步释放契约。
type Disposable interface {
	Dispose() error
}

// AsyncDisposable 异步释放契约。释放过程可在 ctx 下挂起。
type AsyncDisposable interface {
	DisposeAsync(ctx context.Context) error
}

// isDisposableInstance 报告实例是否实现任一释放契约。
// io.Closer 也视为可释放，domain 客户端（redis、gorm 等）都实现它。
func isDisposableInstance(instance any) bool {
	switch instance.(type) {
	case Disposable, AsyncDisposable, io.Closer:
		return true
	}
	return false
}

// Disposer 持有作用域生命周期内登记的可释放实例，
// 按登记的逆序释放。
type Disposer struct {
	mu       sync.Mutex
	items    []any
	disposed bool
}

func newDisposer() *Disposer {
	return &Disposer{}
}

// Add 登记一个可释放实例。作用域释放后登记失败。
func (d *Disposer) Add(item any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.disposed {
		return fmt.Errorf("di: cannot track instance %T, the disposer has already been disposed", item)
	}
	d.items = append(d.items, item)
	return nil
}

// Count 返回已登记的实例数。
func (d *Disposer) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.items)
}

// Dispose 按逆序同步释放所有实例。
// 第一个错误被保留返回，其余实例仍然尝试释放。
// 只实现 AsyncDisposable 的实例在同步路径上报错，不做阻塞桥接。
func (d *Disposer) Dispose() error {
	items := d.takeItems()

	var firstErr error
	for i := len(items) - 1; i >= 0; i-- {
		var err error
		switch v := items[i].(type) {
		case Disposable:
			err = v.Dispose()
		case io.Closer:
			err = v.Close()
		case AsyncDisposable:
			err = fmt.Errorf("di: instance %T only supports asynchronous disposal, use DisposeAsync", v)
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DisposeAsync 按逆序释放所有实例，逐个等待异步释放完成。
// 同步契约的实例在异步路径上直接释放。
func (d *Disposer) DisposeAsync(ctx context.Context) error {
	items := d.takeItems()

	var firstErr error
	for i := len(items) - 1; i >= 0; i-- {
		var err error
		switch v := items[i].(type) {
		case AsyncDisposable:
			err = v.DisposeAsync(ctx)
		case Disposable:
			err = v.Dispose()
		case io.Closer:
			err = v.Close()
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// takeItems 原子地取走全部条目并标记已释放。
// 二次释放拿到空列表，自然幂等。
func (d *Disposer) takeItems() []any {
	d.mu.Lock()
	defer d.mu.Unlock()
	items := d.items
	d.items = nil
	d.disposed = true
	return items
}
