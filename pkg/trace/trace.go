package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
)

type ctxKey struct{}

const (
	TraceIDKey      = "trace_id"
	HeaderTraceID   = "X-Trace-ID"
	HeaderRequestID = "X-Request-ID"
)

// GenerateTraceID 生成一个新的 trace ID
func GenerateTraceID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// FromContext 从 context 中获取 trace_id
func FromContext(ctx context.Context) string {
	if traceID, ok := ctx.Value(ctxKey{}).(string); ok {
		return traceID
	}
	return ""
}

// WithContext 将 trace_id 添加到 context 中
func WithContext(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, traceID)
}

// FromRequest 从 HTTP header 中提取 trace_id（支持 X-Trace-ID 和 X-Request-ID），没有则生成
func FromRequest(r *http.Request) string {
	if v := r.Header.Get(HeaderTraceID); v != "" {
		return v
	}
	if v := r.Header.Get(HeaderRequestID); v != "" {
		return v
	}
	return GenerateTraceID()
}
