package mongodb

import (
	"github.com/gocrud/container/core"
	"github.com/gocrud/container/di"
	"github.com/gocrud/container/logging"
	"github.com/gocrud/mgo"
)

// Configure 返回 MongoDB 配置器。
// 工厂注册为根作用域所有的单例，应用关闭时经 DisposeAsync 逐个断开。
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder()
		if options != nil {
			options(builder)
		}

		factory, err := builder.Build(ctx.GetLogger())
		if err != nil {
			ctx.GetLogger().Fatal("Failed to build mongodb clients",
				logging.Field{Key: "error", Value: err.Error()})
		}
		if factory == nil {
			return
		}

		// 工厂交给根作用域托管，异步释放
		di.Register[*MongoFactory](ctx.Builder(),
			di.WithValue(factory), di.OwnedByScope())

		factory.Each(func(name string, client *mgo.Client) {
			di.Register[*mgo.Client](ctx.Builder(),
				di.WithName(name), di.WithValue(client))
			if name == "default" {
				di.Register[*mgo.Client](ctx.Builder(), di.WithValue(client))
			}
		})

		ctx.GetLogger().Info("Mongo clients registered to the container")
	}
}
