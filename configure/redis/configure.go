package redis

import (
	"github.com/gocrud/container/core"
	"github.com/gocrud/container/di"
	"github.com/gocrud/container/logging"
	"github.com/redis/go-redis/v9"
)

// Configure 返回 Redis 配置器。
// 工厂注册为根作用域所有的单例，应用关闭释放根作用域时
// 关闭全部客户端（各客户端之间的关闭顺序不固定）。
// 使用示例: builder.Configure(redis.Configure(func(b *redis.Builder) { ... }))
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder()
		if options != nil {
			options(builder)
		}

		factory, err := builder.Build(ctx.GetLogger())
		if err != nil {
			ctx.GetLogger().Fatal("Failed to build redis clients",
				logging.Field{Key: "error", Value: err.Error()})
		}
		if factory == nil {
			return
		}

		// 工厂交给根作用域托管，Disposer 负责关闭
		di.Register[*RedisClientFactory](ctx.Builder(),
			di.WithValue(factory), di.OwnedByScope())

		// 命名客户端逐个注册
		factory.Each(func(name string, client *redis.Client) {
			di.Register[*redis.Client](ctx.Builder(),
				di.WithName(name), di.WithValue(client))
			if name == "default" {
				di.Register[*redis.Client](ctx.Builder(), di.WithValue(client))
			}
		})

		ctx.GetLogger().Info("Redis clients registered to the container")
	}
}
