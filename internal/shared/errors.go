package shared

import (
	"errors"

	"github.com/casinha/portal/internal/platform/httpx"
)

var (
	// ErrNotFound indicates resource not found. It maps to 404 through httpx.RespondError.
	ErrNotFound = httpx.ErrNotFound
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveMember indicates an ex-member attempted to sign in.
	ErrInactiveMember = errors.New("member is inactive")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
