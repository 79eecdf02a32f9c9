package http

import (
	"net/http"

	"github.com/spyberpolymath/folio-auth/pkg/httpx"
)

// apiError is a wire-level error: a stable machine code plus a human
// description, written as the standard error envelope.
type apiError struct {
	Status      int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

func (e apiError) Error() string { return e.Code }

func (e apiError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.Status, e)
}

var (
	errInvalidRequest = apiError{
		Status:      http.StatusBadRequest,
		Code:        "invalid_request",
		Description: "the request is missing a required parameter or is malformed",
	}

	// errInvalidCredentials deliberately says nothing about WHICH part of
	// the login failed.
	errInvalidCredentials = apiError{
		Status:      http.StatusUnauthorized,
		Code:        "invalid_credentials",
		Description: "invalid email or password",
	}

	// errWrongPassword is the authenticated password-change failure; the
	// caller's identity is already established, so this can be specific.
	errWrongPassword = apiError{
		Status:      http.StatusBadRequest,
		Code:        "invalid_password",
		Description: "current password is incorrect",
	}

	errNotFound = apiError{
		Status:      http.StatusNotFound,
		Code:        "not_found",
		Description: "resource not found",
	}

	errServerError = apiError{
		Status:      http.StatusInternalServerError,
		Code:        "server_error",
		Description: "an internal error occurred",
	}
)
