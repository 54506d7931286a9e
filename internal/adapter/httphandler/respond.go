package httphandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/niksmo/storefront/internal/core/domain"
)

const maxBodySize = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(domain.ErrInvalidInput, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any, log *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to write response body", "err", err)
	}
}

// writeError maps core errors to statuses. Unexpected errors are logged
// and never shown to the client.
func writeError(w http.ResponseWriter, err error, log *slog.Logger) {
	status, msg := errorStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "status", status, "err", err)
	} else {
		log.Warn("request rejected", "status", status, "err", err)
	}
	writeJSON(w, status, ErrorResponse{Error: msg}, log)
}

func errorStatus(err error) (int, string) {
	var missingPrice *domain.MissingPriceError

	switch {
	case errors.As(err, &missingPrice):
		return http.StatusUnprocessableEntity, missingPrice.Error()
	case errors.Is(err, domain.ErrMissingPrice):
		return http.StatusUnprocessableEntity, domain.ErrMissingPrice.Error()
	case errors.Is(err, domain.ErrEmptyCart):
		return http.StatusBadRequest, domain.ErrEmptyCart.Error()
	case errors.Is(err, domain.ErrNoAddressSelected):
		return http.StatusBadRequest, domain.ErrNoAddressSelected.Error()
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, invalidInputMessage(err)
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, domain.ErrNotFound.Error()
	case errors.Is(err, domain.ErrAlreadySubscribed):
		return http.StatusConflict, "this email is already subscribed"
	case errors.Is(err, domain.ErrCheckoutInProgress):
		return http.StatusConflict, domain.ErrCheckoutInProgress.Error()
	case errors.Is(err, domain.ErrCheckoutSession):
		return http.StatusBadGateway, "failed to create checkout session, please try again"
	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "request canceled"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// invalidInputMessage drops the operation prefixes before the sentinel.
func invalidInputMessage(err error) string {
	text := err.Error()
	sentinel := domain.ErrInvalidInput.Error()
	if i := strings.Index(text, sentinel); i != -1 {
		text = text[i:]
	}
	if j := strings.IndexByte(text, '\n'); j != -1 {
		text = text[:j]
	}
	return text
}
