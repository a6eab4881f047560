package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DosAbicos/2tick-sub000/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// ContractEnvelope wraps single-contract responses.
type ContractEnvelope struct {
	Contract *domain.Contract `json:"contract,omitempty"`
	Message  string           `json:"message,omitempty"`
	Error    string           `json:"error,omitempty"`
}

// PaginatedContractsEnvelope wraps cursor-paginated contract list responses.
type PaginatedContractsEnvelope struct {
	Data       []domain.Contract `json:"data"`
	NextCursor string            `json:"next_cursor,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// DispatchEnvelope wraps code-request responses. FallbackCode is only ever
// populated outside production when no delivery backend is configured.
type DispatchEnvelope struct {
	Channel      string `json:"channel"`
	Hint         string `json:"hint,omitempty"`
	DeepLink     string `json:"deep_link,omitempty"`
	CodeLength   int    `json:"code_length"`
	FallbackCode string `json:"fallback_code,omitempty"`
}

// SignatureEnvelope wraps verification responses.
type SignatureEnvelope struct {
	Signature *domain.SignatureArtifact `json:"signature,omitempty"`
	Message   string                    `json:"message,omitempty"`
	Error     string                    `json:"error,omitempty"`
}

// ContentEnvelope wraps resolved-document responses.
type ContentEnvelope struct {
	Content string `json:"content"`
}

// SnapshotEnvelope wraps archived-copy download responses.
type SnapshotEnvelope struct {
	URL string `json:"url"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// writeDomainError maps domain sentinel errors onto HTTP status codes so every
// handler reports failures the same way.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrOwnershipViolation):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrCodeNotFound),
		errors.Is(err, domain.ErrCodeExpired),
		errors.Is(err, domain.ErrCodeAlreadyUsed),
		errors.Is(err, domain.ErrCodeMismatch):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrDispatchFailed):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
