package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/DosAbicos/2tick-sub000/internal/application/contract"
	"github.com/DosAbicos/2tick-sub000/internal/domain"
	"github.com/DosAbicos/2tick-sub000/internal/pkg/validate"
)

// ContractHandler handles contract lifecycle endpoints.
type ContractHandler struct {
	svc contract.Service
}

func NewContractHandler(svc contract.Service) *ContractHandler {
	return &ContractHandler{svc: svc}
}

func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	c, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ContractEnvelope{Contract: c})
}

func (h *ContractHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ContractEnvelope{Contract: c})
}

func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	cursor := r.URL.Query().Get("cursor")
	contracts, next, err := h.svc.List(r.Context(), int32(limit), cursor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if contracts == nil {
		contracts = []domain.Contract{}
	}
	writeJSON(w, http.StatusOK, PaginatedContractsEnvelope{Data: contracts, NextCursor: next})
}

// UpdateValues is the creator-side fill endpoint, available while drafting.
func (h *ContractHandler) UpdateValues(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateValuesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.svc.UpdateCreatorValues(r.Context(), chi.URLParam(r, "id"), req.Values)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ContractEnvelope{Contract: c})
}

// UpdateSignerValues is the public signer-side fill endpoint, reached through
// the signing link without authentication.
func (h *ContractHandler) UpdateSignerValues(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateValuesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.svc.UpdateSignerValues(r.Context(), chi.URLParam(r, "id"), req.Values)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ContractEnvelope{Contract: c})
}

func (h *ContractHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Finalize(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ContractEnvelope{Contract: c, Message: "contract sent for signing"})
}

func (h *ContractHandler) Approve(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ContractEnvelope{Contract: c, Message: "contract signed"})
}

// Content renders the document for a viewer: "creator", "signer" or "final".
func (h *ContractHandler) Content(w http.ResponseWriter, r *http.Request) {
	viewer := r.URL.Query().Get("viewer")
	if viewer == "" {
		viewer = domain.OwnerCreator
	}
	text, err := h.svc.ResolvedContent(r.Context(), chi.URLParam(r, "id"), viewer)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ContentEnvelope{Content: text})
}

// Snapshot returns a time-limited download link for the archived signed copy.
func (h *ContractHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	url, err := h.svc.SnapshotLink(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SnapshotEnvelope{URL: url})
}

// SignerContent is the public view for the signing link: only signer-owned
// fields are substituted, so creator data never leaks early and signer fields
// stay visible as blanks to fill.
func (h *ContractHandler) SignerContent(w http.ResponseWriter, r *http.Request) {
	text, err := h.svc.ResolvedContent(r.Context(), chi.URLParam(r, "id"), domain.OwnerSigner)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ContentEnvelope{Content: text})
}
