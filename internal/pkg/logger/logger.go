// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// base 是进程级的根 logger，所有服务共享。
var base = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init 在服务启动时注入服务名，之后所有日志都会带上 service 字段。
func Init(serviceName string) {
	base = base.With().Str("service", serviceName).Logger()
}

// Ctx 返回一个富化过的 logger：如果 ctx 中带有 trace 信息，
// 则自动附加 trace_id，方便在 Jaeger 和日志之间互相跳转。
func Ctx(ctx context.Context) *zerolog.Logger {
	l := base
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		l = l.With().Str("trace_id", sc.TraceID().String()).Logger()
	}
	return &l
}

// L 返回不带追踪上下文的根 logger，用于启动阶段。
func L() *zerolog.Logger {
	return &base
}
