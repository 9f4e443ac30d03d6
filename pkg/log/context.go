// Copyright 2026 ETH Zurich
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package log

import (
	"context"
	"fmt"

	"github.com/opentracing/opentracing-go"
	"go.uber.org/zap"
)

type loggerContextKey string

const loggerKey loggerContextKey = "logger"

// CtxWith returns a new context, based on ctx, that embeds argument logger.
// Attaching a logger to a context which already contains one overwrites it.
func CtxWith(ctx context.Context, logger Logger) context.Context {
	if ctx == nil {
		panic("nil context")
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromCtx returns the logger embedded in ctx if one exists, or the root
// logger otherwise. If ctx carries an opentracing span, every log line is
// also recorded on the span. FromCtx never returns nil.
func FromCtx(ctx context.Context) Logger {
	if ctx == nil {
		return Root()
	}
	if l, ok := ctx.Value(loggerKey).(Logger); ok && l != nil {
		if _, ok := l.(Span); ok {
			return l
		}
		return attachSpan(ctx, l)
	}
	return attachSpan(ctx, Root())
}

// WithLabels returns a context with additional labels added to the logger.
// For convenience it also returns the logger itself.
func WithLabels(ctx context.Context, labels ...any) (context.Context, Logger) {
	logger := FromCtx(ctx).New(labels...)
	return CtxWith(ctx, logger), logger
}

func attachSpan(ctx context.Context, l Logger) Logger {
	span := opentracing.SpanFromContext(ctx)
	if span == nil {
		return l
	}
	if optioner, ok := l.(interface{ WithOptions(...zap.Option) Logger }); ok {
		l = optioner.WithOptions(zap.AddCallerSkip(1))
	}
	return Span{Logger: l, Span: span}
}

// Span is a logger that also records every log call on a tracing span.
type Span struct {
	Logger Logger
	Span   opentracing.Span
}

func (s Span) New(ctx ...any) Logger {
	return Span{Logger: s.Logger.New(ctx...), Span: s.Span}
}

func (s Span) Debug(msg string, ctx ...any) {
	s.spanLog("debug", msg, ctx)
	s.Logger.Debug(msg, ctx...)
}

func (s Span) Info(msg string, ctx ...any) {
	s.spanLog("info", msg, ctx)
	s.Logger.Info(msg, ctx...)
}

func (s Span) Error(msg string, ctx ...any) {
	s.spanLog("error", msg, ctx)
	s.Logger.Error(msg, ctx...)
}

func (s Span) Enabled(lvl Level) bool {
	return s.Logger.Enabled(lvl)
}

func (s Span) spanLog(lvl, msg string, ctx []any) {
	kv := make([]any, 0, len(ctx)+4)
	kv = append(kv, "level", lvl, "msg", msg)
	for i := 0; i+1 < len(ctx); i += 2 {
		kv = append(kv, fmt.Sprint(ctx[i]), ctx[i+1])
	}
	s.Span.LogKV(kv...)
}
