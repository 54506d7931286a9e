package httphandler

import (
	"log/slog"
	"net/http"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

// POST v1/newsletter JSON {"email": string} (201 Created, 400 Bad request, 409 Conflict)
// POST v1/contact JSON {"name", "email", "message"} (202 Accepted, 400 Bad request)

type FormsHandler struct {
	subs port.Subscriptions
}

func RegisterForms(mux *http.ServeMux, subs port.Subscriptions) {
	h := FormsHandler{subs}
	mux.HandleFunc("POST /v1/newsletter", h.PostNewsletter)
	mux.HandleFunc("POST /v1/contact", h.PostContact)
}

func (h FormsHandler) PostNewsletter(w http.ResponseWriter, r *http.Request) {
	const op = "FormsHandler.PostNewsletter"
	log := slog.With("op", op)

	var s Subscription
	if err := decodeJSON(w, r, &s); err != nil {
		writeError(w, err, log)
		return
	}

	if err := h.subs.Subscribe(r.Context(), s.Email); err != nil {
		writeError(w, err, log)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

func (h FormsHandler) PostContact(w http.ResponseWriter, r *http.Request) {
	const op = "FormsHandler.PostContact"
	log := slog.With("op", op)

	var m ContactMessage
	if err := decodeJSON(w, r, &m); err != nil {
		writeError(w, err, log)
		return
	}

	err := h.subs.SendMessage(r.Context(), domain.ContactMessage{
		Name:    m.Name,
		Email:   m.Email,
		Message: m.Message,
	})
	if err != nil {
		writeError(w, err, log)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	if _, err = w.Write([]byte("Accepted")); err != nil {
		log.Error("failed to write response body", "err", err)
	}
}
