package hosting

import (
	"context"
	"fmt"
	"sync"

	"github.com/gocrud/container/logging"
)

// HostedService 托管服务接口
// 框架在独立的 goroutine 中调用 Start，用户无需自己启动 goroutine。
type HostedService interface {
	// Start 启动服务。该方法应阻塞执行，直到 context 被取消或发生错误。
	Start(ctx context.Context) error

	// Stop 执行优雅关闭逻辑，必须支持通过 ctx 进行超时控制。
	// Start 的 context 取消时服务应自行停止；Stop 用于额外清理。
	Stop(ctx context.Context) error
}

// HostedServiceManager 托管服务管理器
type HostedServiceManager struct {
	services []HostedService
	logger   logging.Logger
	mu       sync.RWMutex
	wg       sync.WaitGroup
}

// NewHostedServiceManager 创建托管服务管理器
func NewHostedServiceManager(logger logging.Logger) *HostedServiceManager {
	return &HostedServiceManager{logger: logger}
}

// Add 添加托管服务
func (m *HostedServiceManager) Add(service HostedService) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services = append(m.services, service)
}

// StartAll 并发启动所有托管服务，每个服务在独立的 goroutine 中运行。
// 返回的通道携带启动失败的错误；context 取消不算失败。
func (m *HostedServiceManager) StartAll(ctx context.Context) <-chan error {
	m.mu.RLock()
	services := m.services
	m.mu.RUnlock()

	errCh := make(chan error, len(services))
	m.logger.Info(fmt.Sprintf("Starting %d hosted services", len(services)))

	for i, service := range services {
		m.wg.Add(1)
		go func(index int, svc HostedService) {
			defer m.wg.Done()

			err := svc.Start(ctx)
			switch {
			case err == nil:
				m.logger.Debug(fmt.Sprintf("Hosted service %d completed", index+1))
			case err == context.Canceled || err == context.DeadlineExceeded:
				m.logger.Debug(fmt.Sprintf("Hosted service %d stopped (context done)", index+1))
			default:
				m.logger.Error(fmt.Sprintf("Hosted service %d error", index+1),
					logging.Field{Key: "error", Value: err.Error()})
				// 缓冲区等于服务数量，不会阻塞
				errCh <- err
			}
		}(i, service)
	}

	return errCh
}

// StopAll 反向并发停止所有托管服务，等待全部停止完成。
func (m *HostedServiceManager) StopAll(ctx context.Context) error {
	m.mu.RLock()
	services := m.services
	m.mu.RUnlock()

	m.logger.Info(fmt.Sprintf("Stopping %d hosted services", len(services)))

	var wg sync.WaitGroup
	for i := len(services) - 1; i >= 0; i-- {
		wg.Add(1)
		go func(index int, svc HostedService) {
			defer wg.Done()

			if err := svc.Stop(ctx); err != nil {
				m.logger.Error(fmt.Sprintf("Failed to stop hosted service %d", index+1),
					logging.Field{Key: "error", Value: err.Error()})
			}
		}(i, services[i])
	}
	wg.Wait()

	m.logger.Info("All hosted services stopped")
	return nil
}

// Wait 等待所有服务的 Start goroutine 退出
func (m *HostedServiceManager) Wait() {
	m.wg.Wait()
}

// BackgroundService 后台服务基类，提供停止信号管道
type BackgroundService struct {
	name   string
	logger logging.Logger
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewBackgroundService 创建后台服务
func NewBackgroundService(name string, logger logging.Logger) *BackgroundService {
	return &BackgroundService{
		name:   name,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start 阻塞直到停止信号或上下文取消
func (s *BackgroundService) Start(ctx context.Context) error {
	s.logger.Info(fmt.Sprintf("BackgroundService '%s' starting", s.name))

	select {
	case <-s.stopCh:
	case <-ctx.Done():
	}

	s.Done()
	return nil
}

// Stop 发出停止信号并等待服务退出或超时
func (s *BackgroundService) Stop(ctx context.Context) error {
	s.logger.Info(fmt.Sprintf("BackgroundService '%s' stopping", s.name))
	close(s.stopCh)

	select {
	case <-s.doneCh:
		return nil
	case <-ctx.Done():
		s.logger.Warn(fmt.Sprintf("BackgroundService '%s' stop timeout", s.name))
		return ctx.Err()
	}
}

// Done 标记服务已退出
func (s *BackgroundService) Done() {
	select {
	case <-s.doneCh:
	default:
		close(s.doneCh)
	}
}

// StopChan 返回停止通道，用于在 select 中监听
func (s *BackgroundService) StopChan() <-chan struct{} {
	return s.stopCh
}
