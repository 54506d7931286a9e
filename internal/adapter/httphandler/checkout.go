package httphandler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

// POST v1/checkout JSON {"address_id": string} is opt, Authorization Bearer
// (200 OK, 400 Bad request, 401 Unauthorized, 409 Conflict, 422 Unprocessable entity, 502 Bad gateway)
// GET v1/checkouts/{orderNumber} Authorization Bearer (200 OK, 401 Unauthorized, 404 Not found)

type CheckoutHandler struct {
	carts     port.CartSessions
	submitter port.CheckoutSubmitter
	addresses port.AddressBook
	lookup    port.CheckoutLookup
}

// RegisterCheckout registers the status route only when lookup is not nil.
func RegisterCheckout(
	mux *http.ServeMux,
	carts port.CartSessions,
	submitter port.CheckoutSubmitter,
	addresses port.AddressBook,
	lookup port.CheckoutLookup,
) {
	h := CheckoutHandler{carts, submitter, addresses, lookup}
	mux.Handle("POST /v1/checkout", withCartSession(http.HandlerFunc(h.PostCheckout)))
	if lookup != nil {
		mux.HandleFunc("GET /v1/checkouts/{orderNumber}", h.GetCheckout)
	}
}

func (h CheckoutHandler) PostCheckout(w http.ResponseWriter, r *http.Request) {
	const op = "CheckoutHandler.PostCheckout"
	log := slog.With("op", op)

	var req CheckoutRequest
	err := decodeJSON(w, r, &req)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, err, log)
		return
	}

	ctx := r.Context()
	key := cartKeyFrom(ctx)

	release, ok := h.carts.BeginCheckout(key)
	if !ok {
		writeError(w, domain.ErrCheckoutInProgress, log)
		return
	}
	defer release()

	items := h.carts.Cart(ctx, key).GroupedItems()

	// the address lookup only matters once the items pass,
	// so cart errors are reported first
	buyer := buyerFrom(ctx)
	var address *domain.Address
	if buyer != nil && domain.CheckItems(items) == nil {
		a, err := h.addresses.SelectedAddress(ctx, *buyer, req.AddressID)
		if err != nil {
			writeError(w, err, log)
			return
		}
		address = a
	}

	url, err := h.submitter.BuildAndSubmit(ctx, items, buyer, address)
	if err != nil {
		writeError(w, err, log)
		return
	}

	writeJSON(w, http.StatusOK, CheckoutResponse{URL: url}, log)
}

func (h CheckoutHandler) GetCheckout(w http.ResponseWriter, r *http.Request) {
	const op = "CheckoutHandler.GetCheckout"
	log := slog.With("op", op)

	buyer, err := requireBuyer(r.Context())
	if err != nil {
		writeError(w, err, log)
		return
	}

	attempt, err := h.lookup.LookupCheckout(r.Context(), r.PathValue("orderNumber"))
	if err != nil {
		writeError(w, err, log)
		return
	}

	// Other buyers' orders are reported as missing.
	if attempt.BuyerID != buyer.ID {
		writeError(w, domain.ErrNotFound, log)
		return
	}

	writeJSON(w, http.StatusOK, checkoutStatusFromDomain(attempt), log)
}
