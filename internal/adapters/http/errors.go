package http

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/stationmap/internal/core/domain"
	"github.com/samirrijal/stationmap/internal/pkg/report"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // bad_request, not_found, bad_gateway, internal_error, ...
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   message,
		RequestID: reqID,
	})
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errUnauthorized returns a 401 error.
func errUnauthorized(c *fiber.Ctx, msg string) error {
	return newError(c, 401, "unauthorized", msg)
}

// errBadGateway returns a 502 error for failed upstream calls.
func errBadGateway(c *fiber.Ctx, msg string) error {
	return newError(c, 502, "bad_gateway", msg)
}

// errFromDomain maps a use-case error onto the API error taxonomy.
// Unclassified errors are reported to Sentry and hidden from the client.
func errFromDomain(c *fiber.Ctx, err error) error {
	switch {
	case domain.IsValidation(err):
		return errBadRequest(c, err.Error())
	case domain.IsAuthRequired(err):
		return errUnauthorized(c, err.Error())
	case domain.IsNotFound(err):
		return errNotFound(c, err.Error())
	case domain.IsNetwork(err):
		LoggerFromCtx(c.UserContext()).Warn("upstream failure", "path", c.Path(), "error", err)
		return errBadGateway(c, "upstream service unavailable")
	}

	reqID, _ := c.Locals("requestid").(string)
	report.ReportError(err, map[string]string{"path": c.Path(), "request_id": reqID})
	LoggerFromCtx(c.UserContext()).Error("request failed", slog.String("path", c.Path()), slog.Any("error", err))
	return errInternal(c, "internal error")
}
