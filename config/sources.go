package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"
)

// Source 配置源接口
type Source interface {
	// Load 加载配置数据
	Load() (map[string]any, error)
	// Name 配置源名称
	Name() string
}

// WatchableSource 支持变更监听的配置源
type WatchableSource interface {
	Source

	// StartWatch 开始监听，配置变更时调用 onChange
	StartWatch(ctx context.Context, onChange func()) error
	// StopWatch 停止监听
	StopWatch()
}

// JsonFileSource JSON 文件配置源
type JsonFileSource struct {
	Path     string
	Optional bool
}

func (s *JsonFileSource) Name() string {
	return fmt.Sprintf("JsonFile(%s)", s.Path)
}

func (s *JsonFileSource) Load() (map[string]any, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if s.Optional && os.IsNotExist(err) {
			return make(map[string]any), nil
		}
		return nil, err
	}

	var result map[string]any
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("config: failed to parse JSON: %w", err)
	}
	return result, nil
}

// YamlFileSource YAML 文件配置源
type YamlFileSource struct {
	Path     string
	Optional bool
}

func (s *YamlFileSource) Name() string {
	return fmt.Sprintf("YamlFile(%s)", s.Path)
}

func (s *YamlFileSource) Load() (map[string]any, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if s.Optional && os.IsNotExist(err) {
			return make(map[string]any), nil
		}
		return nil, err
	}

	var result map[string]any
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("config: failed to parse YAML: %w", err)
	}
	return result, nil
}

// EnvironmentVariableSource 环境变量配置源。
// 键转为小写，"_" 作为嵌套分隔符。
type EnvironmentVariableSource struct {
	Prefix string
}

func (s *EnvironmentVariableSource) Name() string {
	return fmt.Sprintf("EnvironmentVariables(%s)", s.Prefix)
}

func (s *EnvironmentVariableSource) Load() (map[string]any, error) {
	result := make(map[string]any)

	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok {
			continue
		}

		if s.Prefix != "" {
			if !strings.HasPrefix(key, s.Prefix) {
				continue
			}
			key = strings.TrimPrefix(key, s.Prefix)
		}

		key = strings.ToLower(key)
		key = strings.ReplaceAll(key, "_", ":")
		setNestedValue(result, key, value)
	}
	return result, nil
}

// InMemorySource 内存配置源
type InMemorySource struct {
	Data map[string]any
}

func (s *InMemorySource) Name() string {
	return "InMemory"
}

func (s *InMemorySource) Load() (map[string]any, error) {
	result := make(map[string]any)
	mergeMaps(result, s.Data)
	return result, nil
}

// EtcdSource etcd 配置源。
// 键按 "/" 展开为嵌套路径，值优先按 JSON 再按 YAML 解析，
// 都失败时作为字符串。支持前缀监听实现热重载。
type EtcdSource struct {
	Options EtcdOptions

	mu        sync.Mutex
	watchStop context.CancelFunc
}

func (s *EtcdSource) Name() string {
	return fmt.Sprintf("Etcd(%v)", s.Options.Endpoints)
}

func (s *EtcdSource) newClient() (*clientv3.Client, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   s.Options.Endpoints,
		Username:    s.Options.Username,
		Password:    s.Options.Password,
		DialTimeout: s.Options.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("config: failed to create etcd client: %w", err)
	}
	return cli, nil
}

func (s *EtcdSource) prefix() string {
	if s.Options.Prefix == "" {
		return "/"
	}
	return s.Options.Prefix
}

func (s *EtcdSource) Load() (map[string]any, error) {
	cli, err := s.newClient()
	if err != nil {
		return nil, err
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), s.Options.Timeout)
	defer cancel()

	resp, err := cli.Get(ctx, s.prefix(), clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("config: failed to get config from etcd: %w", err)
	}

	result := make(map[string]any)
	for _, kv := range resp.Kvs {
		key := string(kv.Key)
		value := string(kv.Value)

		key = strings.TrimPrefix(key, s.Options.Prefix)
		key = strings.TrimPrefix(key, "/")
		if key == "" {
			continue
		}
		key = strings.ReplaceAll(key, "/", ":")

		setNestedValue(result, key, parseEtcdValue(value))
	}
	return result, nil
}

// parseEtcdValue 依次尝试 JSON、YAML，失败时保留字符串
func parseEtcdValue(value string) any {
	var jsonValue any
	if err := json.Unmarshal([]byte(value), &jsonValue); err == nil {
		return jsonValue
	}

	var yamlValue any
	if err := yaml.Unmarshal([]byte(value), &yamlValue); err == nil {
		return yamlValue
	}
	return value
}

// StartWatch 监听前缀下的键变更
func (s *EtcdSource) StartWatch(ctx context.Context, onChange func()) error {
	cli, err := s.newClient()
	if err != nil {
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.watchStop = func() {
		cancel()
		cli.Close()
	}
	s.mu.Unlock()

	watchCh := cli.Watch(watchCtx, s.prefix(), clientv3.WithPrefix())
	go func() {
		for resp := range watchCh {
			if resp.Canceled {
				return
			}
			if len(resp.Events) > 0 {
				onChange()
			}
		}
	}()
	return nil
}

// StopWatch 停止监听
func (s *EtcdSource) StopWatch() {
	s.mu.Lock()
	stop := s.watchStop
	s.watchStop = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}
}
