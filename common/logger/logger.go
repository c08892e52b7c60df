package logger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/trace"

	"github.com/SeunOnTech/sol-stake-backend/core/config"
)

// Setup installs the process-wide slog handler. Production with an OTLP endpoint
// writes JSON to stdout and exports through the OTel log bridge at the same time.
func Setup(cfg config.Config) {
	slog.SetDefault(slog.New(NewHandler(cfg, os.Stdout)))
}

// NewHandler builds the handler Setup installs, writing console output to w.
func NewHandler(cfg config.Config, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Log.Level, defaultLevel(cfg))}

	var console slog.Handler
	switch resolveFormat(cfg) {
	case "json":
		console = slog.NewJSONHandler(w, opts)
	default:
		console = slog.NewTextHandler(w, opts)
	}

	if cfg.IsProduction() && cfg.OTel.Enabled() {
		exporter := otelslog.NewHandler(
			cfg.OTel.ServiceName,
			otelslog.WithLoggerProvider(global.GetLoggerProvider()),
		)
		return NewTraceHandler(fanout{console, exporter})
	}
	return NewTraceHandler(console)
}

// ParseLevel accepts debug, info, warn and error in any case.
func ParseLevel(s string, fallback slog.Level) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return fallback
	}
	return level
}

func defaultLevel(cfg config.Config) slog.Level {
	if cfg.IsDevelopment() {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func resolveFormat(cfg config.Config) string {
	switch f := strings.ToLower(cfg.Log.Format); f {
	case "json", "text":
		return f
	}
	if cfg.IsDevelopment() {
		return "text"
	}
	return "json"
}

// TraceHandler stamps the active span and the context's LogFields onto every record.
type TraceHandler struct {
	slog.Handler
}

func NewTraceHandler(h slog.Handler) *TraceHandler {
	return &TraceHandler{Handler: h}
}

func (h *TraceHandler) Handle(ctx context.Context, r slog.Record) error {
	if sc := trace.SpanFromContext(ctx).SpanContext(); sc.IsValid() {
		r.AddAttrs(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	r.AddAttrs(GetLogFields(ctx).attrs()...)
	return h.Handler.Handle(ctx, r)
}

func (h *TraceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *TraceHandler) WithGroup(name string) slog.Handler {
	return &TraceHandler{Handler: h.Handler.WithGroup(name)}
}

func (f LogFields) attrs() []slog.Attr {
	var attrs []slog.Attr
	str := func(key string, v *string) {
		if v != nil {
			attrs = append(attrs, slog.String(key, *v))
		}
	}
	str("task_id", f.TaskID)
	str("task_type", f.TaskType)
	str("message_id", f.MessageID)
	if f.RunID != nil {
		attrs = append(attrs, slog.Int64("run_id", *f.RunID))
	}
	str("validator_pubkey", f.ValidatorPubkey)
	str("request_id", f.RequestID)
	if f.Component != "" {
		attrs = append(attrs, slog.String("component", f.Component))
	}
	return attrs
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithAttrs(attrs)
	}
	return next
}

func (f fanout) WithGroup(name string) slog.Handler {
	next := make(fanout, len(f))
	for i, h := range f {
		next[i] = h.WithGroup(name)
	}
	return next
}
