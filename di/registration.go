package di

import (
	"fmt"
	"strings"
	"sync/atomic"
)

// SharingMode 共享模式，决定注册在其所属作用域内是否复用实例。
type SharingMode int

const (
	// SharingNone 每次解析产生新实例
	SharingNone SharingMode = iota
	// SharingShared 在所属作用域内复用同一实例
	SharingShared
)

// OwnershipMode 所有权模式，决定实例由谁负责释放。
type OwnershipMode int

const (
	// OwnedByLifetimeScope 实例由所属作用域的 Disposer 释放（默认）
	OwnedByLifetimeScope OwnershipMode = iota
	// ownershipExternallyOwned 实例由外部代码释放，作用域不跟踪
	ownershipExternallyOwned
)

// Registration 是服务到激活器及其管线的不可变绑定。
// 由 ContainerBuilder 构建，构建后不再修改。
type Registration struct {
	// ID 全局唯一的注册标识，共享实例缓存以它为键
	ID uint64

	// Services 此注册提供的服务集合
	Services []Service

	// Activator 产生原始实例
	Activator Activator

	// Lifetime 决定共享实例归属哪个作用域
	Lifetime Lifetime

	// Sharing 共享模式
	Sharing SharingMode

	// Ownership 所有权模式
	Ownership OwnershipMode

	// Pipeline 预组合的解析管线
	Pipeline *Pipeline

	// middleware 组成管线的中间件，服务级中间件合成时重新排序用
	middleware []Middleware
}

var registrationIDCounter atomic.Uint64

// nextRegistrationID 分配下一个全局唯一注册 ID。
func nextRegistrationID() uint64 {
	return registrationIDCounter.Add(1)
}

// ProvidesService 报告注册是否提供指定服务。
func (r *Registration) ProvidesService(service Service) bool {
	for _, s := range r.Services {
		if s == service {
			return true
		}
	}
	return false
}

// String 返回注册的可读描述：激活器加服务列表。
func (r *Registration) String() string {
	services := make([]string, 0, len(r.Services))
	for _, s := range r.Services {
		services = append(services, s.String())
	}
	desc := "<nil activator>"
	if r.Activator != nil {
		desc = r.Activator.Description()
	}
	return fmt.Sprintf("%s providing %s", desc, strings.Join(services, ", "))
}
