package config

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
)

// Configuration 配置接口
type Configuration interface {
	// Get 获取配置值
	Get(key string) string
	// GetWithDefault 获取配置值，如果不存在则返回默认值
	GetWithDefault(key, defaultValue string) string
	// GetInt 获取整数配置值
	GetInt(key string) (int, error)
	// GetBool 获取布尔配置值
	GetBool(key string) (bool, error)
	// GetSection 获取配置节
	GetSection(key string) Configuration
	// Bind 绑定配置到结构体
	Bind(key string, target any) error
	// GetAll 获取所有配置
	GetAll() map[string]any
}

// valueStore 用 atomic.Value 存储配置快照，读取无锁
type valueStore struct {
	value atomic.Value // map[string]any
}

func newValueStore(data map[string]any) *valueStore {
	s := &valueStore{}
	if data == nil {
		data = make(map[string]any)
	}
	s.value.Store(data)
	return s
}

func (s *valueStore) load() map[string]any {
	return s.value.Load().(map[string]any)
}

func (s *valueStore) store(data map[string]any) {
	s.value.Store(data)
}

// pathCache 缓存路径解析结果，支持 ":" 与 "." 分隔符
var pathCache sync.Map

func pathSegments(path string) []string {
	if v, ok := pathCache.Load(path); ok {
		return v.([]string)
	}
	parts := strings.Split(strings.ReplaceAll(path, ":", "."), ".")
	pathCache.Store(path, parts)
	return parts
}

// configuration 基于快照的配置实现
type configuration struct {
	store *valueStore
}

// NewConfiguration 用现有数据创建配置
func NewConfiguration(data map[string]any) Configuration {
	return &configuration{store: newValueStore(data)}
}

func (c *configuration) Get(key string) string {
	value := getByPath(c.store.load(), key)
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func (c *configuration) GetWithDefault(key, defaultValue string) string {
	if value := c.Get(key); value != "" {
		return value
	}
	return defaultValue
}

func (c *configuration) GetInt(key string) (int, error) {
	value := getByPath(c.store.load(), key)
	if value == nil {
		return 0, fmt.Errorf("config: key %s not found", key)
	}

	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("config: cannot convert %v to int", value)
	}
}

func (c *configuration) GetBool(key string) (bool, error) {
	value := getByPath(c.store.load(), key)
	if value == nil {
		return false, fmt.Errorf("config: key %s not found", key)
	}

	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	default:
		return false, fmt.Errorf("config: cannot convert %v to bool", value)
	}
}

func (c *configuration) GetSection(key string) Configuration {
	value := getByPath(c.store.load(), key)
	if m, ok := value.(map[string]any); ok {
		return NewConfiguration(m)
	}
	return NewConfiguration(nil)
}

// Bind 通过 JSON 往返把配置节绑定到结构体
func (c *configuration) Bind(key string, target any) error {
	var data any
	if key == "" {
		data = c.store.load()
	} else {
		data = getByPath(c.store.load(), key)
	}
	if data == nil {
		return fmt.Errorf("config: key %s not found", key)
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("config: failed to marshal data: %w", err)
	}
	if err := json.Unmarshal(jsonData, target); err != nil {
		return fmt.Errorf("config: failed to unmarshal data: %w", err)
	}
	return nil
}

func (c *configuration) GetAll() map[string]any {
	result := make(map[string]any)
	mergeMaps(result, c.store.load())
	return result
}

// getByPath 沿路径取值
func getByPath(data map[string]any, path string) any {
	if path == "" {
		return data
	}

	current := any(data)
	for _, part := range pathSegments(path) {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[part]
	}
	return current
}

// mergeMaps 深合并 src 到 dst，标量后写覆盖
func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		if dstMap, ok := dst[k].(map[string]any); ok {
			if srcMap, ok := v.(map[string]any); ok {
				mergeMaps(dstMap, srcMap)
				continue
			}
		}
		dst[k] = v
	}
}

// setNestedValue 按 ":" 路径写入嵌套值，字符串尝试转为数值/布尔
func setNestedValue(data map[string]any, path string, value any) {
	parts := strings.Split(path, ":")
	current := data

	for i := 0; i < len(parts)-1; i++ {
		part := parts[i]
		if _, exists := current[part]; !exists {
			current[part] = make(map[string]any)
		}
		m, ok := current[part].(map[string]any)
		if !ok {
			return
		}
		current = m
	}

	if strValue, ok := value.(string); ok {
		if intValue, err := strconv.Atoi(strValue); err == nil {
			value = intValue
		} else if floatValue, err := strconv.ParseFloat(strValue, 64); err == nil {
			value = floatValue
		} else if boolValue, err := strconv.ParseBool(strValue); err == nil {
			value = boolValue
		}
	}

	current[parts[len(parts)-1]] = value
}

// Load 加载并绑定指定节的配置到结构体 T（泛型辅助函数）
func Load[T any](cfg Configuration, section string) (T, error) {
	var t T
	err := cfg.Bind(section, &t)
	return t, err
}
