package logger

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// WithCandidateID 将候选人ID注入上下文中的logger，后续日志自动携带该字段
func WithCandidateID(ctx context.Context, candidateID string) context.Context {
	l := FromContext(ctx).With().Str("candidate_id", candidateID).Logger()
	return l.WithContext(ctx)
}

// FromContext 从上下文中获取logger，并附带当前span的trace_id/span_id
// 上下文中没有logger时退回全局实例
func FromContext(ctx context.Context) zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		l = &Logger
	}

	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return *l
	}
	return l.With().
		Str("trace_id", spanCtx.TraceID().String()).
		Str("span_id", spanCtx.SpanID().String()).
		Logger()
}
