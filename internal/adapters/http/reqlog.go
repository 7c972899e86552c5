package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/stationmap/internal/pkg/telemetry"
)

type ctxKey string

const loggerKey ctxKey = "logger"

// RequestIDLogMiddleware opens a server span for the request, continuing any
// incoming W3C trace context, and stores a request-scoped *slog.Logger
// carrying the request and trace IDs in the user context.
func RequestIDLogMiddleware() fiber.Handler {
	tracer := telemetry.Tracer("stationmap/http")

	return func(c *fiber.Ctx) error {
		carrier := propagation.HeaderCarrier(http.Header(c.GetReqHeaders()))
		ctx := otel.GetTextMapPropagator().Extract(c.UserContext(), carrier)

		// Fiber strings are only valid inside the handler; spans outlive it.
		method := utils.CopyString(c.Method())
		ctx, span := tracer.Start(ctx, method+" "+utils.CopyString(c.Path()),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", method),
				attribute.String("http.target", utils.CopyString(c.OriginalURL())),
			),
		)
		defer span.End()

		logger := slog.Default()
		if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
			logger = logger.With("request_id", rid)
			span.SetAttributes(attribute.String("request_id", utils.CopyString(rid)))
		}
		if sc := span.SpanContext(); sc.IsValid() {
			logger = logger.With("trace_id", sc.TraceID().String())
		}
		c.SetUserContext(context.WithValue(ctx, loggerKey, logger))

		err := c.Next()

		status := c.Response().StatusCode()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if err != nil || status >= 500 {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		return err
	}
}

// LoggerFromCtx extracts the per-request slog.Logger from a context.
// Falls back to the default logger if none is set.
func LoggerFromCtx(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
