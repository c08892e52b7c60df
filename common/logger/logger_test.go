package logger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/SeunOnTech/sol-stake-backend/common/logger"
	"github.com/SeunOnTech/sol-stake-backend/core/config"
)

var _ = Describe("Handler", func() {
	var buf *bytes.Buffer

	decode := func() map[string]any {
		var out map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &out)).To(Succeed())
		return out
	}

	BeforeEach(func() {
		buf = &bytes.Buffer{}
	})

	It("adds context log fields to each record", func() {
		cfg := config.Config{Env: "staging", Log: config.LogConfig{Format: "json"}}
		log := slog.New(logger.NewHandler(cfg, buf))

		ctx := logger.WithLogFields(context.Background(), logger.LogFields{
			TaskID:    logger.Ptr("42"),
			Component: "ssb.worker.pool",
		})
		ctx = logger.WithLogFields(ctx, logger.LogFields{RunID: logger.Ptr(int64(7))})
		log.InfoContext(ctx, "processing task")

		out := decode()
		Expect(out["msg"]).To(Equal("processing task"))
		Expect(out["task_id"]).To(Equal("42"))
		Expect(out["run_id"]).To(BeNumerically("==", 7))
		Expect(out["component"]).To(Equal("ssb.worker.pool"))
		Expect(out).NotTo(HaveKey("trace_id"))
	})

	It("defaults to info outside development", func() {
		log := slog.New(logger.NewHandler(config.Config{Env: "production"}, buf))
		log.Debug("hidden")
		Expect(buf.Len()).To(BeZero())

		log.Info("shown")
		Expect(decode()["msg"]).To(Equal("shown"))
	})

	It("honours an explicit level", func() {
		cfg := config.Config{Env: "development", Log: config.LogConfig{Level: "warn", Format: "json"}}
		log := slog.New(logger.NewHandler(cfg, buf))
		log.Info("hidden")
		Expect(buf.Len()).To(BeZero())
	})

	It("writes text in development", func() {
		log := slog.New(logger.NewHandler(config.Config{Env: "development"}, buf))
		log.Debug("hello", "k", "v")
		Expect(buf.String()).To(ContainSubstring("msg=hello"))
		Expect(buf.String()).To(ContainSubstring("k=v"))
	})
})

var _ = Describe("ParseLevel", func() {
	DescribeTable("levels",
		func(in string, want slog.Level) {
			Expect(logger.ParseLevel(in, slog.LevelInfo)).To(Equal(want))
		},
		Entry("debug", "debug", slog.LevelDebug),
		Entry("upper case", "WARN", slog.LevelWarn),
		Entry("padded", " error ", slog.LevelError),
		Entry("empty falls back", "", slog.LevelInfo),
		Entry("unknown falls back", "loud", slog.LevelInfo),
	)
})

var _ = Describe("Spans", func() {
	It("continues a trace from a stored trace id", func() {
		const traceID = "4bf92f3577b34da6a3ce929d0e0e4736"
		sc := logger.StartSpanFromTraceID(context.Background(), traceID, "worker.process_task")
		defer sc.End()
		Expect(logger.TraceIDFromContext(sc.Context())).To(Equal(traceID))
	})

	It("ignores a malformed trace id", func() {
		sc := logger.StartSpanFromTraceID(context.Background(), "not-hex", "worker.process_task")
		defer sc.End()
		sc.RecordError(nil)
		Expect(logger.TraceIDFromContext(sc.Context())).To(BeEmpty())
	})
})

var _ = Describe("Truncate", func() {
	It("keeps short strings", func() {
		Expect(logger.Truncate("abc", 5)).To(Equal("abc"))
	})
	It("cuts long strings", func() {
		Expect(logger.Truncate("abcdef", 3)).To(Equal("abc..."))
	})
})
