package httphandler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

// GET v1/addresses Authorization Bearer (200 OK, 401 Unauthorized)
// POST v1/addresses JSON Address, Authorization Bearer (201 Created, 400 Bad request)
// PUT v1/addresses/{id} JSON Address, Authorization Bearer (200 OK, 404 Not found)
// DELETE v1/addresses/{id} Authorization Bearer (200 OK, 404 Not found)
// Mutations answer with the refreshed address list.

type AddressHandler struct {
	book port.AddressBook
}

func RegisterAddresses(mux *http.ServeMux, book port.AddressBook) {
	h := AddressHandler{book}
	mux.HandleFunc("GET /v1/addresses", h.GetAddresses)
	mux.HandleFunc("POST /v1/addresses", h.PostAddress)
	mux.HandleFunc("PUT /v1/addresses/{id}", h.PutAddress)
	mux.HandleFunc("DELETE /v1/addresses/{id}", h.DeleteAddress)
}

func (h AddressHandler) GetAddresses(w http.ResponseWriter, r *http.Request) {
	const op = "AddressHandler.GetAddresses"
	h.serve(w, r, op, http.StatusOK,
		func(ctx context.Context, b domain.Buyer) ([]domain.Address, error) {
			return h.book.Addresses(ctx, b)
		})
}

func (h AddressHandler) PostAddress(w http.ResponseWriter, r *http.Request) {
	const op = "AddressHandler.PostAddress"

	var a Address
	if err := decodeJSON(w, r, &a); err != nil {
		writeError(w, err, slog.With("op", op))
		return
	}

	h.serve(w, r, op, http.StatusCreated,
		func(ctx context.Context, b domain.Buyer) ([]domain.Address, error) {
			return h.book.AddAddress(ctx, b, a.toDomain())
		})
}

func (h AddressHandler) PutAddress(w http.ResponseWriter, r *http.Request) {
	const op = "AddressHandler.PutAddress"

	var a Address
	if err := decodeJSON(w, r, &a); err != nil {
		writeError(w, err, slog.With("op", op))
		return
	}
	a.ID = r.PathValue("id")

	h.serve(w, r, op, http.StatusOK,
		func(ctx context.Context, b domain.Buyer) ([]domain.Address, error) {
			return h.book.EditAddress(ctx, b, a.toDomain())
		})
}

func (h AddressHandler) DeleteAddress(w http.ResponseWriter, r *http.Request) {
	const op = "AddressHandler.DeleteAddress"
	id := r.PathValue("id")

	h.serve(w, r, op, http.StatusOK,
		func(ctx context.Context, b domain.Buyer) ([]domain.Address, error) {
			return h.book.RemoveAddress(ctx, b, id)
		})
}

func (h AddressHandler) serve(
	w http.ResponseWriter, r *http.Request, op string, status int,
	fn func(context.Context, domain.Buyer) ([]domain.Address, error),
) {
	log := slog.With("op", op)

	buyer, err := requireBuyer(r.Context())
	if err != nil {
		writeError(w, err, log)
		return
	}

	addrs, err := fn(r.Context(), buyer)
	if err != nil {
		writeError(w, err, log)
		return
	}

	writeJSON(w, status, addressesFromDomain(addrs), log)
}
