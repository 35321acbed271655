package cron

import (
	"github.com/gocrud/container/core"
	"github.com/gocrud/container/di"
	"github.com/gocrud/container/hosting"
)

// Configure 返回 Cron 配置器。
// 调度服务在容器构建完成后拿到根作用域，带依赖注入的任务
// 每次运行在独立的子作用域内解析参数。
// 使用示例: builder.Configure(cron.Configure(func(b *cron.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder()
		if options != nil {
			options(builder)
		}

		logger := ctx.GetLogger()
		ctx.AddHostedServiceResolver(func(root *di.Container) (hosting.HostedService, error) {
			return builder.build(root, logger)
		})

		logger.Info("Cron service configured")
	}
}
