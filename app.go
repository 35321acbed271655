// Package container 提供一个以分层生命周期作用域为核心的依赖注入容器，
// 以及围绕它的应用程序宿主：配置、日志、托管服务与集成组件。
package container

import "github.com/gocrud/container/core"

// NewApplicationBuilder 创建应用程序构建器
// 这是创建应用程序的入口点
func NewApplicationBuilder() *core.ApplicationBuilder {
	return core.NewApplicationBuilder()
}
