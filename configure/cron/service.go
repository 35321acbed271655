package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/gocrud/container/logging"
	"github.com/robfig/cron/v3"
)

// options 调度器选项
type options struct {
	EnableSeconds bool
	Location      string
	Logger        logging.Logger
}

// cronService 基于 robfig/cron 的托管调度服务
type cronService struct {
	cron   *cron.Cron
	logger logging.Logger
}

// newService 创建调度服务
func newService(logger logging.Logger, configure func(*options)) (*cronService, error) {
	opts := &options{Location: "UTC", Logger: logger}
	if configure != nil {
		configure(opts)
	}

	location, err := time.LoadLocation(opts.Location)
	if err != nil {
		return nil, fmt.Errorf("invalid cron location '%s': %w", opts.Location, err)
	}

	cronOpts := []cron.Option{cron.WithLocation(location)}
	if opts.EnableSeconds {
		cronOpts = append(cronOpts, cron.WithSeconds())
	}

	return &cronService{
		cron:   cron.New(cronOpts...),
		logger: logger,
	}, nil
}

// addJob 注册任务，运行包裹日志与 panic 恢复
func (s *cronService) addJob(spec, name string, handler func()) error {
	wrapped := func() {
		start := time.Now()
		s.logger.Debug("cron job starting",
			logging.Field{Key: "job", Value: name})

		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("cron job panicked",
					logging.Field{Key: "job", Value: name},
					logging.Field{Key: "panic", Value: r})
				return
			}
			s.logger.Debug("cron job finished",
				logging.Field{Key: "job", Value: name},
				logging.Field{Key: "elapsed", Value: time.Since(start).String()})
		}()

		handler()
	}

	if _, err := s.cron.AddFunc(spec, wrapped); err != nil {
		return fmt.Errorf("invalid cron spec '%s' for job '%s': %w", spec, name, err)
	}
	return nil
}

// Start 启动调度器，阻塞到 ctx 取消
func (s *cronService) Start(ctx context.Context) error {
	s.logger.Info("Cron scheduler starting")
	s.cron.Start()

	<-ctx.Done()
	return nil
}

// Stop 停止调度器并等待进行中的任务完成
func (s *cronService) Stop(ctx context.Context) error {
	s.logger.Info("Cron scheduler stopping")

	stopCtx := s.cron.Stop()
	select {
	case <-stopCtx.Done():
		s.logger.Info("Cron scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Cron scheduler stop timeout")
		return ctx.Err()
	}
}
