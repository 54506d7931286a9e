package httphandler

import (
	"net/http"

	"github.com/niksmo/storefront/internal/core/port"
)

type RouterConfig struct {
	AllowedOrigins []string
	Carts          port.CartSessions
	Submitter      port.CheckoutSubmitter
	Addresses      port.AddressBook
	Subscriptions  port.Subscriptions
	Buyers         port.BuyerResolver

	// Lookup is optional, the checkout status route is off without it.
	Lookup port.CheckoutLookup
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Carts == nil || cfg.Submitter == nil || cfg.Addresses == nil ||
		cfg.Subscriptions == nil || cfg.Buyers == nil {
		panic("NewRouter: missing dependency") // develop mistake
	}

	mux := http.NewServeMux()
	RegisterCart(mux, cfg.Carts)
	RegisterCheckout(mux, cfg.Carts, cfg.Submitter, cfg.Addresses, cfg.Lookup)
	RegisterAddresses(mux, cfg.Addresses)
	RegisterForms(mux, cfg.Subscriptions)

	var h http.Handler = mux
	h = AllowJSON(h)
	h = Authenticate(cfg.Buyers, h)
	h = CORS(cfg.AllowedOrigins, h)
	return h
}
