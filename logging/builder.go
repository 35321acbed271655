package logging

import (
	"io"
	"os"
	"sync"
)

// LoggingBuilder 日志构建器
type LoggingBuilder struct {
	providers    []LoggerProvider
	minimumLevel LogLevel
	mu           sync.Mutex
}

// NewLoggingBuilder 创建日志构建器
func NewLoggingBuilder() *LoggingBuilder {
	return &LoggingBuilder{minimumLevel: LogLevelInfo}
}

// SetMinimumLevel 设置最小日志级别
func (b *LoggingBuilder) SetMinimumLevel(level LogLevel) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.minimumLevel = level
	return b
}

// AddProvider 添加日志提供者
func (b *LoggingBuilder) AddProvider(provider LoggerProvider) *LoggingBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.providers = append(b.providers, provider)
	return b
}

// AddConsole 添加控制台日志（文本格式，带颜色）
func (b *LoggingBuilder) AddConsole() *LoggingBuilder {
	return b.AddProvider(NewWriterProvider(WriterProviderOptions{
		Writer:    os.Stdout,
		Formatter: &TextFormatter{ColorOutput: true},
	}))
}

// AddJSONConsole 添加 JSON 格式的控制台日志
func (b *LoggingBuilder) AddJSONConsole() *LoggingBuilder {
	return b.AddProvider(NewWriterProvider(WriterProviderOptions{
		Writer:    os.Stdout,
		Formatter: &JSONFormatter{},
	}))
}

// AddWriter 添加任意写入目标
func (b *LoggingBuilder) AddWriter(writer io.Writer, options ...WriterProviderOptions) *LoggingBuilder {
	opts := WriterProviderOptions{Writer: writer}
	if len(options) > 0 {
		opts = options[0]
		opts.Writer = writer
	}
	return b.AddProvider(NewWriterProvider(opts))
}

// AddFile 添加文件日志（异步写入）
func (b *LoggingBuilder) AddFile(path string) *LoggingBuilder {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		NewLogger().Error("failed to open log file", Field{Key: "path", Value: path}, Field{Key: "error", Value: err.Error()})
		return b
	}
	return b.AddProvider(NewWriterProvider(WriterProviderOptions{
		Writer:    file,
		Formatter: &TextFormatter{},
		Async:     true,
	}))
}

// Build 构建日志工厂
func (b *LoggingBuilder) Build() LoggerFactory {
	b.mu.Lock()
	defer b.mu.Unlock()

	factory := &loggerFactory{minimumLevel: b.minimumLevel}
	for _, provider := range b.providers {
		factory.AddProvider(provider)
	}
	return factory
}
