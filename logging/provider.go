package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// WriterProvider 把格式化后的条目写入任意 io.Writer 的提供者。
// Async 开启时写入经由后台协程，调用方只在队列满时阻塞等待。
type WriterProvider struct {
	formatter Formatter
	writer    io.Writer
	async     *asyncWriter
	mu        sync.Mutex
}

// WriterProviderOptions WriterProvider 选项
type WriterProviderOptions struct {
	Writer    io.Writer
	Formatter Formatter

	// Async 异步写入
	Async bool

	// BufferSize 异步队列长度，默认 1024
	BufferSize int
}

// NewWriterProvider 创建写入器提供者
func NewWriterProvider(options WriterProviderOptions) *WriterProvider {
	if options.Writer == nil {
		options.Writer = os.Stdout
	}
	if options.Formatter == nil {
		options.Formatter = &TextFormatter{}
	}

	p := &WriterProvider{formatter: options.Formatter, writer: options.Writer}
	if options.Async {
		size := options.BufferSize
		if size <= 0 {
			size = 1024
		}
		p.async = newAsyncWriter(options.Writer, options.Formatter, size)
	}
	return p
}

func (p *WriterProvider) WriteLog(entry *LogEntry) {
	if p.async != nil {
		p.async.WriteLog(entry)
		return
	}

	data, err := p.formatter.Format(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: format error: %v\n", err)
		return
	}

	p.mu.Lock()
	_, err = p.writer.Write(data)
	p.mu.Unlock()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging: write error: %v\n", err)
	}
}

// Close 关闭提供者，等待异步队列排空。
func (p *WriterProvider) Close() error {
	if p.async != nil {
		return p.async.Close()
	}
	return nil
}

// MemoryProvider 把条目保存在内存里的提供者，测试用。
type MemoryProvider struct {
	mu      sync.Mutex
	entries []*LogEntry
}

// NewMemoryProvider 创建内存提供者
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{}
}

func (p *MemoryProvider) WriteLog(entry *LogEntry) {
	p.mu.Lock()
	p.entries = append(p.entries, entry)
	p.mu.Unlock()
}

// Entries 返回已记录条目的快照
func (p *MemoryProvider) Entries() []*LogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*LogEntry, len(p.entries))
	copy(out, p.entries)
	return out
}
