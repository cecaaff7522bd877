package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/relistco/relist-server/internal/entity"
	"github.com/relistco/relist-server/internal/infra/http/middleware"
	"github.com/relistco/relist-server/internal/usecase"
)

// WebhookHandler receives inbound SMS deliveries from the messaging gateway
// and answers with the reply body to send back.
type WebhookHandler struct {
	Machine *usecase.Machine
}

func NewWebhookHandler(machine *usecase.Machine) *WebhookHandler {
	return &WebhookHandler{Machine: machine}
}

func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var in usecase.Inbound
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "bad JSON", http.StatusBadRequest)
		return
	}
	if in.Phone == "" || in.MessageID == "" {
		http.Error(w, "from and message_id are required", http.StatusBadRequest)
		return
	}

	out, err := h.Machine.Handle(r.Context(), in)
	if err != nil {
		if errors.Is(err, entity.ErrConversationConflict) {
			// Another handler owns the row right now; the gateway's
			// redelivery will land on the dedup log.
			log.Printf("conflict on %s, leaving it to redelivery", in.Phone)
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(usecase.Outcome{})
			return
		}
		log.Printf("webhook handling failed for %s: %v", in.Phone, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	middleware.RecordInboundMessage(stateLabel(out))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func stateLabel(out usecase.Outcome) string {
	if out.Reply == "" {
		return "duplicate"
	}
	return "handled"
}
