// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
)

// Client facing messages. Internal error text never reaches the response body.
const (
	MsgUnauthorized = "Não autorizado"
	MsgForbidden    = "Acesso negado"
	MsgInternal     = "Erro interno do servidor"
	MsgNotFound     = "Recurso não encontrado"
	MsgConflict     = "Conflito com o estado atual"
	MsgValidation   = "Dados inválidos"
)

// RespondError maps domain errors to HTTP responses.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		Message(w, http.StatusNotFound, MsgNotFound)
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrConflict):
		Message(w, http.StatusConflict, MsgConflict)
	case errors.Is(err, ErrValidation):
		Message(w, http.StatusBadRequest, MsgValidation)
	case errors.Is(err, ErrForbidden):
		Message(w, http.StatusForbidden, MsgForbidden)
	case errors.Is(err, ErrUnauthorized):
		Message(w, http.StatusUnauthorized, MsgUnauthorized)
	default:
		Message(w, http.StatusInternalServerError, MsgInternal)
	}
}
