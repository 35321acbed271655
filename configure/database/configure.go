package database

import (
	"github.com/gocrud/container/configure/web"
	"github.com/gocrud/container/core"
	"github.com/gocrud/container/di"
	"github.com/gocrud/container/logging"
	"gorm.io/gorm"
)

// Session 请求级数据库会话。
// 按 web 请求标签共享：同一请求作用域内解析得到同一会话，
// 请求作用域结束后会话随之废弃。
type Session struct {
	// DB 绑定了新会话的 gorm 连接
	DB *gorm.DB
}

// Configure 返回数据库配置器。
// 连接工厂注册为根作用域所有的单例；Session 注册为
// instance-per-matching-scope(web.RequestTag)，只在请求作用域树内可解析。
func Configure(options func(*Builder)) core.Configurator {
	return func(ctx *core.BuildContext) {
		builder := NewBuilder()
		if options != nil {
			options(builder)
		}

		factory, err := builder.Build(ctx.GetLogger())
		if err != nil {
			ctx.GetLogger().Fatal("Failed to build databases",
				logging.Field{Key: "error", Value: err.Error()})
		}
		if factory == nil {
			return
		}

		// 工厂交给根作用域托管
		di.Register[*DatabaseFactory](ctx.Builder(),
			di.WithValue(factory), di.OwnedByScope())

		factory.Each(func(name string, db *gorm.DB) {
			di.Register[*gorm.DB](ctx.Builder(),
				di.WithName(name), di.WithValue(db))
			if name == "default" {
				di.Register[*gorm.DB](ctx.Builder(), di.WithValue(db))
			}
		})

		// 请求级会话：归属最近的请求作用域
		di.Register[*Session](ctx.Builder(),
			di.WithFactory(func(db *gorm.DB) *Session {
				return &Session{DB: db.Session(&gorm.Session{NewDB: true})}
			}),
			di.WithMatchingScope(web.RequestTag))

		ctx.GetLogger().Info("Databases registered to the container")
	}
}
