package httphandler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

// GET v1/cart (200 OK)
// POST v1/cart/items JSON Product (200 OK, 400 Bad request)
// PATCH v1/cart/items/{productID} JSON {"delta": int} (200 OK, 400 Bad request)
// DELETE v1/cart/items/{productID} (200 OK)
// DELETE v1/cart (200 OK)
// Every route answers with the cart after the change.

type CartHandler struct {
	carts port.CartSessions
}

func RegisterCart(mux *http.ServeMux, carts port.CartSessions) {
	h := CartHandler{carts}
	mux.Handle("GET /v1/cart", withCartSession(http.HandlerFunc(h.GetCart)))
	mux.Handle("POST /v1/cart/items", withCartSession(http.HandlerFunc(h.PostItem)))
	mux.Handle("PATCH /v1/cart/items/{productID}", withCartSession(http.HandlerFunc(h.PatchItem)))
	mux.Handle("DELETE /v1/cart/items/{productID}", withCartSession(http.HandlerFunc(h.DeleteItem)))
	mux.Handle("DELETE /v1/cart", withCartSession(http.HandlerFunc(h.DeleteCart)))
}

func (h CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.GetCart"
	log := slog.With("op", op)

	cart := h.carts.Cart(r.Context(), cartKeyFrom(r.Context()))
	writeJSON(w, http.StatusOK, cartView(cart), log)
}

func (h CartHandler) PostItem(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.PostItem"
	log := slog.With("op", op)

	var p Product
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, err, log)
		return
	}
	if strings.TrimSpace(p.ID) == "" {
		writeError(w, fmt.Errorf("%w: product id", domain.ErrInvalidInput), log)
		return
	}

	cart := h.carts.Cart(r.Context(), cartKeyFrom(r.Context()))
	cart.AddItem(r.Context(), p.toDomain())

	log.Info("item added", "productID", p.ID)
	writeJSON(w, http.StatusOK, cartView(cart), log)
}

func (h CartHandler) PatchItem(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.PatchItem"
	log := slog.With("op", op)

	var d QuantityDelta
	if err := decodeJSON(w, r, &d); err != nil {
		writeError(w, err, log)
		return
	}

	productID := r.PathValue("productID")
	cart := h.carts.Cart(r.Context(), cartKeyFrom(r.Context()))
	cart.UpdateQuantity(r.Context(), productID, d.Delta)

	writeJSON(w, http.StatusOK, cartView(cart), log)
}

func (h CartHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.DeleteItem"
	log := slog.With("op", op)

	cart := h.carts.Cart(r.Context(), cartKeyFrom(r.Context()))
	cart.RemoveItem(r.Context(), r.PathValue("productID"))

	writeJSON(w, http.StatusOK, cartView(cart), log)
}

func (h CartHandler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	const op = "CartHandler.DeleteCart"
	log := slog.With("op", op)

	cart := h.carts.Cart(r.Context(), cartKeyFrom(r.Context()))
	cart.Reset(r.Context())

	writeJSON(w, http.StatusOK, cartView(cart), log)
}

func cartView(cart port.CartStore) Cart {
	items := cart.GroupedItems()
	c := Cart{
		Lines:    make([]CartLine, len(items)),
		SubTotal: cart.SubTotalPrice(),
		Discount: cart.Discount(),
		Total:    cart.TotalPrice(),
	}
	for i, it := range items {
		c.Lines[i] = CartLine{
			Product:  productFromDomain(it.Product),
			Quantity: it.Quantity,
		}
		c.ItemCount += it.Quantity
	}
	return c
}
