package etcd

import (
	"github.com/gocrud/container/core"
	"github.com/gocrud/container/di"
	"github.com/gocrud/container/logging"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Configure 返回 etcd 配置器。
// 工厂注册为根作用域所有的单例，应用关闭释放根作用域时统一关闭。
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder()
		if options != nil {
			options(builder)
		}

		factory, err := builder.Build(ctx.GetLogger())
		if err != nil {
			ctx.GetLogger().Fatal("Failed to build etcd clients",
				logging.Field{Key: "error", Value: err.Error()})
		}
		if factory == nil {
			return
		}

		di.Register[*EtcdFactory](ctx.Builder(),
			di.WithValue(factory), di.OwnedByScope())

		factory.Each(func(name string, client *clientv3.Client) {
			di.Register[*clientv3.Client](ctx.Builder(),
				di.WithName(name), di.WithValue(client))
			if name == "default" {
				di.Register[*clientv3.Client](ctx.Builder(), di.WithValue(client))
			}
		})

		ctx.GetLogger().Info("Etcd clients registered to the container")
	}
}
