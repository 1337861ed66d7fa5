package http

import (
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/code19m/errx"
	"github.com/gofiber/fiber/v2"
	"github.com/marmos91/filewallet/internal/logger"
	"github.com/marmos91/filewallet/pkg/access"
	"github.com/marmos91/filewallet/pkg/files"
)

type handlerFunc func(c *fiber.Ctx, caller files.Caller) error

// handle wraps a route handler with metrics, panic recovery, per-identity
// rate limiting (for mutating routes) and error rendering.
func (a *HTTPAdapter) handle(route string, mutating bool, h handlerFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		a.metrics.RecordRequestStart(route)
		defer a.metrics.RecordRequestEnd(route)

		status := a.serve(c, route, mutating, h)

		duration := time.Since(start)
		a.metrics.RecordRequest(route, status, duration)
		logRequest(c, route, status, duration)
		return nil
	}
}

// serve runs h and returns the response status.
func (a *HTTPAdapter) serve(c *fiber.Ctx, route string, mutating bool, h handlerFunc) (status int) {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			buf = buf[:runtime.Stack(buf, false)]
			logger.Error("Panic in %s %s: %v\n%s", c.Method(), c.Path(), r, buf)
			status = writeError(c, fmt.Errorf("panic: %v", r), a.config.HideErrorDetails)
		}
	}()

	caller := a.caller(c)

	if mutating && !a.limiter.Allow(limitKey(c, caller)) {
		a.metrics.RecordRateLimited(route)
		return writeError(c, errRateLimited(), a.config.HideErrorDetails)
	}

	if a.svc == nil {
		return writeError(c, errx.New("files service not configured", errx.WithCode(files.CodeInternal)), a.config.HideErrorDetails)
	}

	if err := h(c, caller); err != nil {
		return writeError(c, err, a.config.HideErrorDetails)
	}
	return c.Response().StatusCode()
}

func (a *HTTPAdapter) caller(c *fiber.Ctx) files.Caller {
	return files.Caller{
		Identity: strings.TrimSpace(c.Get(a.config.IdentityHeader)),
		Hostname: c.Hostname(),
	}
}

// limitKey buckets authenticated callers by identity and anonymous ones by
// client address.
func limitKey(c *fiber.Ctx, caller files.Caller) string {
	if caller.Authenticated() {
		return "id:" + access.NormalizeIdentity(caller.Identity)
	}
	return "ip:" + c.IP()
}

func logRequest(c *fiber.Ctx, route string, status int, duration time.Duration) {
	switch {
	case status >= 500:
		logger.Error("%s %s (%s) -> %d in %s", c.Method(), c.OriginalURL(), route, status, duration)
	case status >= 400:
		logger.Warn("%s %s (%s) -> %d in %s", c.Method(), c.OriginalURL(), route, status, duration)
	default:
		logger.Debug("%s %s (%s) -> %d in %s", c.Method(), c.OriginalURL(), route, status, duration)
	}
}
