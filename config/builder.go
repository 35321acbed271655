package config

import (
	"fmt"
	"sync"
	"time"
)

// ConfigurationBuilder 配置构建器
type ConfigurationBuilder struct {
	sources []Source
	mu      sync.RWMutex
}

// NewConfigurationBuilder 创建配置构建器
func NewConfigurationBuilder() *ConfigurationBuilder {
	return &ConfigurationBuilder{}
}

// Add 添加配置源
func (b *ConfigurationBuilder) Add(source Source) *ConfigurationBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sources = append(b.sources, source)
	return b
}

// AddJsonFile 添加 JSON 文件配置源
func (b *ConfigurationBuilder) AddJsonFile(path string, optional ...bool) *ConfigurationBuilder {
	isOptional := len(optional) > 0 && optional[0]
	return b.Add(&JsonFileSource{Path: path, Optional: isOptional})
}

// AddYamlFile 添加 YAML 文件配置源
func (b *ConfigurationBuilder) AddYamlFile(path string, optional ...bool) *ConfigurationBuilder {
	isOptional := len(optional) > 0 && optional[0]
	return b.Add(&YamlFileSource{Path: path, Optional: isOptional})
}

// AddEnvironmentVariables 添加环境变量配置源
func (b *ConfigurationBuilder) AddEnvironmentVariables(prefix string) *ConfigurationBuilder {
	return b.Add(&EnvironmentVariableSource{Prefix: prefix})
}

// AddInMemory 添加内存配置源
func (b *ConfigurationBuilder) AddInMemory(data map[string]any) *ConfigurationBuilder {
	return b.Add(&InMemorySource{Data: data})
}

// EtcdOptions etcd 配置选项
type EtcdOptions struct {
	Endpoints   []string      // etcd 服务器地址列表
	Username    string        // 用户名（可选）
	Password    string        // 密码（可选）
	Prefix      string        // 键前缀（可选）
	Timeout     time.Duration // 请求超时时间（默认 5 秒）
	DialTimeout time.Duration // 拨号超时时间（默认 5 秒）
}

// AddEtcd 添加 etcd 配置源
func (b *ConfigurationBuilder) AddEtcd(opts EtcdOptions) *ConfigurationBuilder {
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return b.Add(&EtcdSource{Options: opts})
}

// GetSources 返回已添加的配置源
func (b *ConfigurationBuilder) GetSources() []Source {
	b.mu.RLock()
	defer b.mu.RUnlock()
	sources := make([]Source, len(b.sources))
	copy(sources, b.sources)
	return sources
}

// load 按顺序加载全部配置源并合并，后面的覆盖前面的
func (b *ConfigurationBuilder) load() (map[string]any, error) {
	b.mu.RLock()
	sources := b.sources
	b.mu.RUnlock()

	data := make(map[string]any)
	for _, source := range sources {
		part, err := source.Load()
		if err != nil {
			return nil, fmt.Errorf("config: failed to load source %s: %w", source.Name(), err)
		}
		mergeMaps(data, part)
	}
	return data, nil
}

// Build 构建只读配置
func (b *ConfigurationBuilder) Build() (Configuration, error) {
	data, err := b.load()
	if err != nil {
		return nil, err
	}
	return NewConfiguration(data), nil
}

// BuildReloadable 构建可重载配置。
// Reload 重新加载全部配置源并原子替换快照，然后按订阅顺序
// 触发 OnReload 回调。
func (b *ConfigurationBuilder) BuildReloadable() (*ReloadableConfiguration, error) {
	data, err := b.load()
	if err != nil {
		return nil, err
	}
	return &ReloadableConfiguration{
		configuration: configuration{store: newValueStore(data)},
		builder:       b,
	}, nil
}

// ReloadableConfiguration 可重载配置
type ReloadableConfiguration struct {
	configuration
	builder *ConfigurationBuilder

	mu       sync.Mutex
	onReload []func()
}

// Reload 重新加载配置
func (c *ReloadableConfiguration) Reload() error {
	data, err := c.builder.load()
	if err != nil {
		return err
	}
	c.store.store(data)

	c.mu.Lock()
	handlers := make([]func(), len(c.onReload))
	copy(handlers, c.onReload)
	c.mu.Unlock()

	for _, h := range handlers {
		h()
	}
	return nil
}

// OnReload 订阅重载事件
func (c *ReloadableConfiguration) OnReload(handler func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onReload = append(c.onReload, handler)
}
