package di

import (
	"fmt"

	"github.com/gocrud/container/logging"
)

// DiagnosticSink 解析过程的诊断接收器。
// 所有调用都是即发即忘，不允许挂起。
type DiagnosticSink interface {
	// IsEnabled 报告接收器是否启用；禁用时核心跳过全部发射
	IsEnabled() bool

	OperationStart(op *ResolveOperation, req ResolveRequest)
	OperationSuccess(op *ResolveOperation, instance any)
	OperationFailure(op *ResolveOperation, err error)
	RequestStart(op *ResolveOperation, ctx *RequestContext)
	RequestSuccess(op *ResolveOperation, ctx *RequestContext)
	RequestFailure(op *ResolveOperation, ctx *RequestContext, err error)
}

// loggerSink 把诊断事件写入日志的接收器。
type loggerSink struct {
	logger logging.Logger
}

// NewLoggerSink 创建基于日志的诊断接收器。
func NewLoggerSink(logger logging.Logger) DiagnosticSink {
	return &loggerSink{logger: logger}
}

func (s *loggerSink) IsEnabled() bool { return true }

func (s *loggerSink) OperationStart(op *ResolveOperation, req ResolveRequest) {
	s.logger.Trace("resolve operation starting",
		logging.Field{Key: "service", Value: req.Service.String()})
}

func (s *loggerSink) OperationSuccess(op *ResolveOperation, instance any) {
	s.logger.Trace("resolve operation succeeded",
		logging.Field{Key: "instance", Value: typeName(instance)})
}

func (s *loggerSink) OperationFailure(op *ResolveOperation, err error) {
	s.logger.Debug("resolve operation failed",
		logging.Field{Key: "error", Value: err.Error()})
}

func (s *loggerSink) RequestStart(op *ResolveOperation, ctx *RequestContext) {
	s.logger.Trace("resolve request starting",
		logging.Field{Key: "service", Value: ctx.Service().String()},
		logging.Field{Key: "depth", Value: op.RequestDepth()})
}

func (s *loggerSink) RequestSuccess(op *ResolveOperation, ctx *RequestContext) {
	s.logger.Trace("resolve request succeeded",
		logging.Field{Key: "service", Value: ctx.Service().String()})
}

func (s *loggerSink) RequestFailure(op *ResolveOperation, ctx *RequestContext, err error) {
	s.logger.Debug("resolve request failed",
		logging.Field{Key: "service", Value: ctx.Service().String()},
		logging.Field{Key: "error", Value: err.Error()})
}

func typeName(v any) string {
	if v == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%T", v)
}
