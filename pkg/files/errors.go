package files

import (
	"context"
	"errors"

	"github.com/code19m/errx"
	"github.com/marmos91/filewallet/internal/logger"
	"github.com/marmos91/filewallet/pkg/store/content"
)

// Error codes returned at the service boundary. They are stable and part of
// the HTTP error body.
const (
	CodeUnauthenticated    = "UNAUTHENTICATED"
	CodeForbidden          = "FORBIDDEN"
	CodeNotFound           = "NOT_FOUND"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeFolderNotEmpty     = "FOLDER_NOT_EMPTY"
	CodeUploadFailed       = "UPLOAD_FAILED"
	CodeBackendUnavailable = "BACKEND_UNAVAILABLE"
	CodeBackendFailure     = "BACKEND_FAILURE"
	CodeInternal           = "INTERNAL"
)

func errUnauthenticated() error {
	return errx.New(
		"authentication required",
		errx.WithCode(CodeUnauthenticated),
		errx.WithType(errx.T_Authentication),
	)
}

func errForbidden(msg string) error {
	return errx.New(
		msg,
		errx.WithCode(CodeForbidden),
		errx.WithType(errx.T_Forbidden),
	)
}

func errNotFound(msg string, details errx.D) error {
	return errx.New(
		msg,
		errx.WithCode(CodeNotFound),
		errx.WithType(errx.T_NotFound),
		errx.WithDetails(details),
	)
}

func errInvalidInput(msg string, details errx.D) error {
	return errx.New(
		msg,
		errx.WithCode(CodeInvalidInput),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(details),
	)
}

func errFolderNotEmpty(path string, count int) error {
	return errx.New(
		"folder is not empty",
		errx.WithCode(CodeFolderNotEmpty),
		errx.WithType(errx.T_Validation),
		errx.WithDetails(errx.D{
			"path":      path,
			"fileCount": count,
		}),
	)
}

// backendReason reduces a backend error to a kind safe to show clients.
// Raw errors may carry server paths or node messages and stay in the log.
func backendReason(err error) string {
	switch {
	case errors.Is(err, content.ErrUnavailable):
		return "unavailable"
	case errors.Is(err, content.ErrTooLarge):
		return "too_large"
	case errors.Is(err, content.ErrNotFound):
		return "not_found"
	case errors.Is(err, content.ErrInvalidKey):
		return "invalid_key"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.Is(err, content.ErrTransferFailed):
		return "transfer_failed"
	default:
		return "backend_error"
	}
}

// errUpload classifies a backend failure during upload. An unconfigured
// backend is reported as BACKEND_UNAVAILABLE so operators can tell it from a
// transfer failure. Callers log err.
func errUpload(err error, details errx.D) error {
	code := CodeUploadFailed
	msg := "upload failed"
	if errors.Is(err, content.ErrUnavailable) {
		code = CodeBackendUnavailable
		msg = "storage backend unavailable"
	}
	if details == nil {
		details = errx.D{}
	}
	details["reason"] = backendReason(err)

	return errx.New(
		msg,
		errx.WithCode(code),
		errx.WithType(errx.T_Internal),
		errx.WithDetails(details),
	)
}

// errBackend reports a backend failure outside of uploads.
func errBackend(op string, err error) error {
	code := CodeBackendFailure
	if errors.Is(err, content.ErrUnavailable) {
		code = CodeBackendUnavailable
	}
	logger.Warn("Backend failure during %s: %v", op, err)

	return errx.New(
		"storage backend failure",
		errx.WithCode(code),
		errx.WithType(errx.T_Internal),
		errx.WithDetails(errx.D{
			"op":     op,
			"reason": backendReason(err),
		}),
	)
}

// errInternal reports a metadata store failure.
func errInternal(op string, err error) error {
	return errx.New(
		"internal error",
		errx.WithCode(CodeInternal),
		errx.WithType(errx.T_Internal),
		errx.WithDetails(errx.D{
			"op":     op,
			"reason": err.Error(),
		}),
	)
}

// Code returns the service error code carried by err, or CodeInternal for
// errors that did not originate here.
func Code(err error) string {
	if err == nil {
		return ""
	}
	var e errx.ErrorX
	if !errors.As(err, &e) {
		return CodeInternal
	}
	if c := e.Code(); c != "" {
		return c
	}
	return CodeInternal
}
