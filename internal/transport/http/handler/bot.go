package handler

import (
	"encoding/json"
	"net/http"

	"github.com/DosAbicos/2tick-sub000/internal/application/otp"
	"github.com/DosAbicos/2tick-sub000/internal/pkg/validate"
)

// BotHandler receives Telegram bot callbacks. When a signer opens the deep
// link and presses Start, the bot reports the chat here so the pending code
// can be pushed into that chat.
type BotHandler struct {
	svc otp.Service
}

func NewBotHandler(svc otp.Service) *BotHandler { return &BotHandler{svc: svc} }

type botStartBody struct {
	Username   string `json:"username"`
	ChatID     int64  `json:"chat_id" validate:"required"`
	ContractID string `json:"contract_id" validate:"required"`
}

func (h *BotHandler) Start(w http.ResponseWriter, r *http.Request) {
	var body botStartBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.DeliverPending(r.Context(), body.Username, body.ChatID, body.ContractID); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "code delivered"})
}
