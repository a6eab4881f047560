package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/DosAbicos/2tick-sub000/internal/application/contract"
	"github.com/DosAbicos/2tick-sub000/internal/application/otp"
	"github.com/DosAbicos/2tick-sub000/internal/pkg/validate"
)

// OTPHandler handles code request and verification for the signing flow. Both
// endpoints are public: the signer holds a contract link, not a JWT.
type OTPHandler struct {
	otpSvc      otp.Service
	contractSvc contract.Service
}

func NewOTPHandler(otpSvc otp.Service, contractSvc contract.Service) *OTPHandler {
	return &OTPHandler{otpSvc: otpSvc, contractSvc: contractSvc}
}

type requestCodeBody struct {
	Channel string `json:"channel" validate:"required,oneof=sms call telegram"`
}

type verifyCodeBody struct {
	Channel string `json:"channel" validate:"required,oneof=sms call telegram"`
	Code    string `json:"code" validate:"required"`
}

// RequestCode issues a one-time code for the contract over the chosen channel.
// Re-requesting supersedes any previously issued code for the same channel.
func (h *OTPHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var body requestCodeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	res, err := h.otpSvc.Request(r.Context(), chi.URLParam(r, "id"), body.Channel)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DispatchEnvelope{
		Channel:      res.Channel,
		Hint:         res.Hint,
		DeepLink:     res.DeepLink,
		CodeLength:   res.CodeLength,
		FallbackCode: res.FallbackCode,
	})
}

// VerifyCode consumes the code and, on success, moves the contract to
// pending_signature with the signer's signature artifact attached.
func (h *OTPHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var body verifyCodeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	artifact, err := h.contractSvc.VerifySign(r.Context(), chi.URLParam(r, "id"), body.Channel, body.Code)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SignatureEnvelope{Signature: artifact, Message: "signature recorded"})
}
