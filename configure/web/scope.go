package web

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/gocrud/container/di"
	"github.com/gocrud/container/logging"
)

// RequestTag 请求作用域的标签。
// 注册为 di.WithMatchingScope(web.RequestTag) 的组件在同一请求内
// 共享实例，请求结束随请求作用域释放。
const RequestTag = "request"

// scopeContextKey 请求作用域在 gin.Context 里的键
const scopeContextKey = "gocrud.container.scope"

// rootHolder 延迟绑定的根作用域。
// 路由在容器构建之前注册，中间件经由 holder 在请求时取根。
type rootHolder struct {
	root *di.Container
}

// scopeMiddleware 为每个请求开启带 RequestTag 的子作用域，
// 请求结束时释放。处理器通过 RequestScope 取回作用域解析服务。
func scopeMiddleware(holder *rootHolder, logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if holder.root == nil {
			c.Next()
			return
		}

		scope, err := holder.root.BeginLifetimeScope(di.WithTag(RequestTag))
		if err != nil {
			logger.Error("failed to begin the request scope",
				logging.Field{Key: "error", Value: err.Error()})
			c.AbortWithStatus(500)
			return
		}
		defer func() {
			if err := scope.Dispose(); err != nil {
				logger.Error("failed to dispose the request scope",
					logging.Field{Key: "error", Value: err.Error()})
			}
		}()

		c.Set(scopeContextKey, scope)
		c.Next()
	}
}

// RequestScope 取回当前请求的生命周期作用域。
// 中间件未启用时返回 nil。
func RequestScope(c *gin.Context) *di.LifetimeScope {
	if v, ok := c.Get(scopeContextKey); ok {
		if scope, ok := v.(*di.LifetimeScope); ok {
			return scope
		}
	}
	return nil
}

// ResolveScoped 从当前请求的作用域解析类型 T 的服务（泛型辅助函数）。
//
// 示例：
//
//	session, err := web.ResolveScoped[*database.Session](c)
func ResolveScoped[T any](c *gin.Context) (T, error) {
	scope := RequestScope(c)
	if scope == nil {
		var zero T
		return zero, fmt.Errorf("web: no request scope on this context, is the scope middleware installed?")
	}
	return di.Resolve[T](scope)
}
