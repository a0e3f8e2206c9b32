package api

import (
	"errors"
	"net/http"

	"github.com/nextdomen/mextdomen/internal/directory"
)

// dirErrStatus maps a directory.Error's Kind to the HTTP status, message,
// and machine code this API reports it under.
func dirErrStatus(err error) (status int, message, code string) {
	var derr *directory.Error
	if !errors.As(err, &derr) {
		return http.StatusInternalServerError, "an internal error occurred", "internal_error"
	}

	switch derr.Kind {
	case directory.ErrNotFound:
		return http.StatusNotFound, "resource not found", "not_found"
	case directory.ErrAlreadyExists:
		return http.StatusConflict, derr.Msg, "conflict"
	case directory.ErrInvalidInput:
		return http.StatusBadRequest, derr.Msg, "bad_request"
	case directory.ErrSerialization:
		return http.StatusBadRequest, derr.Msg, "bad_request"
	default:
		return http.StatusInternalServerError, "an internal error occurred", "internal_error"
	}
}
