package logging

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// LogEntry 日志条目
type LogEntry struct {
	Time     time.Time
	Level    LogLevel
	Category string
	Message  string
	Fields   []Field
}

// Formatter 日志格式化接口
type Formatter interface {
	// Format 格式化日志条目，输出以换行结尾
	Format(entry *LogEntry) ([]byte, error)
}

// bufferPool 复用格式化缓冲，减少 GC
var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// TextFormatter 文本格式化器
type TextFormatter struct {
	// TimestampFormat 时间戳格式，空则用 "2006-01-02 15:04:05"
	TimestampFormat string

	// ColorOutput 按级别着色
	ColorOutput bool
}

func (f *TextFormatter) Format(entry *LogEntry) ([]byte, error) {
	buf := bufferPool.Get().(*bytes.Buffer)
	defer func() {
		buf.Reset()
		bufferPool.Put(buf)
	}()

	layout := f.TimestampFormat
	if layout == "" {
		layout = "2006-01-02 15:04:05"
	}
	buf.WriteString(entry.Time.Format(layout))
	buf.WriteByte(' ')

	if f.ColorOutput {
		buf.WriteString(colorize(entry.Level, entry.Level.String()))
	} else {
		buf.WriteString(entry.Level.String())
	}

	if entry.Category != "" {
		fmt.Fprintf(buf, " [%s]", entry.Category)
	}

	buf.WriteByte(' ')
	buf.WriteString(entry.Message)

	if len(entry.Fields) > 0 {
		buf.WriteString(" {")
		for i, field := range entry.Fields {
			if i > 0 {
				buf.WriteString(", ")
			}
			fmt.Fprintf(buf, "%s=%v", field.Key, field.Value)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('\n')

	out := make([]byte, buf.Len())
	copy(out, buf.Bytes())
	return out, nil
}

// colorize 为日志级别添加颜色
func colorize(level LogLevel, text string) string {
	const (
		reset   = "\033[0m"
		gray    = "\033[90m"
		cyan    = "\033[36m"
		green   = "\033[32m"
		yellow  = "\033[33m"
		red     = "\033[31m"
		magenta = "\033[35m"
	)

	switch level {
	case LogLevelTrace:
		return gray + text + reset
	case LogLevelDebug:
		return cyan + text + reset
	case LogLevelInfo:
		return green + text + reset
	case LogLevelWarn:
		return yellow + text + reset
	case LogLevelError:
		return red + text + reset
	case LogLevelFatal:
		return magenta + text + reset
	default:
		return text
	}
}

// JSONFormatter JSON 格式化器
type JSONFormatter struct{}

func (f *JSONFormatter) Format(entry *LogEntry) ([]byte, error) {
	record := map[string]any{
		"time":    entry.Time.Format(time.RFC3339Nano),
		"level":   entry.Level.String(),
		"message": entry.Message,
	}
	if entry.Category != "" {
		record["category"] = entry.Category
	}
	for _, field := range entry.Fields {
		record[field.Key] = field.Value
	}

	data, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}
