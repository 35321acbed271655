package web

import (
	"github.com/gocrud/container/core"
	"github.com/gocrud/container/di"
	"github.com/gocrud/container/hosting"
	"github.com/gocrud/container/logging"
)

// Configure 返回 Web 配置器。
// 主机在容器构建完成后拿到根作用域，请求作用域从根派生。
// 使用示例: builder.Configure(web.Configure(func(b *web.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder(ctx.GetLogger())
		if options != nil {
			options(builder)
		}

		host := builder.Build()

		ctx.AddHostedServiceResolver(func(root *di.Container) (hosting.HostedService, error) {
			host.holder.root = root
			return host, nil
		})

		ctx.GetLogger().Info("Web host configured",
			logging.Field{Key: "port", Value: host.port})
	}
}
