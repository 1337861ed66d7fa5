package http

import (
	"errors"

	"github.com/code19m/errx"
	"github.com/gofiber/fiber/v2"
	"github.com/marmos91/filewallet/pkg/files"
)

const (
	codeRateLimited     = "RATE_LIMITED"
	codePayloadTooLarge = "PAYLOAD_TOO_LARGE"
	codeRouteNotFound   = "ROUTE_NOT_FOUND"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error     string         `json:"error"`
	Code      string         `json:"code"`
	Details   map[string]any `json:"details,omitempty"`
	FileCount *int           `json:"fileCount,omitempty"`
}

// writeError writes err as a JSON error response and returns the status
// code it used.
func writeError(c *fiber.Ctx, err error, hideDetails bool) int {
	status, body := errorResponse(err, hideDetails)
	c.Status(status)
	_ = c.JSON(body)
	return status
}

func errorResponse(err error, hideDetails bool) (int, errorBody) {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, errorBody{Error: fe.Message, Code: fiberErrorCode(fe.Code)}
	}

	var e errx.ErrorX
	if !errors.As(err, &e) || e.Code() == "" {
		// Unclassified errors never leak their message.
		return fiber.StatusInternalServerError, errorBody{Error: "internal error", Code: files.CodeInternal}
	}

	body := errorBody{Error: e.Error(), Code: e.Code()}
	if e.Code() == files.CodeInternal {
		body.Error = "internal error"
	}

	details := e.Details()
	if e.Code() == files.CodeFolderNotEmpty {
		if n, ok := details["fileCount"].(int); ok {
			body.FileCount = &n
		}
	}
	if !hideDetails && e.Code() != files.CodeInternal && len(details) > 0 {
		body.Details = map[string]any(details)
	}

	return statusForType(e.Type()), body
}

func statusForType(t errx.Type) int {
	switch t {
	case errx.T_Authentication:
		return fiber.StatusUnauthorized
	case errx.T_Forbidden:
		return fiber.StatusForbidden
	case errx.T_NotFound:
		return fiber.StatusNotFound
	case errx.T_Validation:
		return fiber.StatusBadRequest
	case errx.T_Conflict:
		return fiber.StatusConflict
	case errx.T_Throttling:
		return fiber.StatusTooManyRequests
	default:
		return fiber.StatusInternalServerError
	}
}

func fiberErrorCode(status int) string {
	switch {
	case status == fiber.StatusNotFound, status == fiber.StatusMethodNotAllowed:
		return codeRouteNotFound
	case status == fiber.StatusRequestEntityTooLarge:
		return codePayloadTooLarge
	case status == fiber.StatusTooManyRequests:
		return codeRateLimited
	case status >= 400 && status < 500:
		return files.CodeInvalidInput
	default:
		return files.CodeInternal
	}
}

// errorHandler handles errors raised by fiber itself (unknown routes,
// oversized bodies). Route handlers write their own errors.
func errorHandler(hideDetails bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if r := c.Response(); r != nil && r.StatusCode() >= 400 && len(r.Body()) > 0 {
			return nil
		}
		writeError(c, err, hideDetails)
		return nil
	}
}

func errNoFile() error {
	return errx.New(
		"no file uploaded",
		errx.WithCode(files.CodeInvalidInput),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(errx.D{"field": "file"}),
	)
}

func errBadBody(err error) error {
	return errx.Wrap(
		err,
		errx.WithCode(files.CodeInvalidInput),
		errx.WithType(errx.T_Validation),
	)
}

func errRateLimited() error {
	return errx.New(
		"too many requests",
		errx.WithCode(codeRateLimited),
		errx.WithType(errx.T_Throttling),
	)
}
