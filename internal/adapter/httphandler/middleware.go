package httphandler

import (
	"context"
	"log/slog"
	"mime"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

const (
	cartCookieName = "cart_session"
	cartHeaderName = "X-Cart-Session"
	cartCookieAge  = 30 * 24 * time.Hour
)

type ctxKey int

const (
	buyerKey ctxKey = iota
	cartKey
)

func AllowJSON(next http.Handler) http.Handler {
	hf := func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength == 0 {
			next.ServeHTTP(w, r)
			return
		}

		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "application/json" {
			http.Error(w, "invalid media type", http.StatusUnsupportedMediaType)
			return
		}

		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(hf)
}

// CORS answers preflight requests and marks responses for the allowed
// origins. A "*" entry allows any origin.
func CORS(allowedOrigins []string, next http.Handler) http.Handler {
	allowAny := slices.Contains(allowedOrigins, "*")

	hf := func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed := origin != "" &&
			(allowAny || slices.Contains(allowedOrigins, origin))

		if allowed {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Expose-Headers", cartHeaderName)
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions &&
			r.Header.Get("Access-Control-Request-Method") != "" {
			if allowed {
				h := w.Header()
				h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+cartHeaderName)
				h.Set("Access-Control-Max-Age", "600")
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(hf)
}

// Authenticate resolves the bearer token into a buyer.
// Requests without a token pass through anonymously,
// an invalid token is rejected.
func Authenticate(resolver port.BuyerResolver, next http.Handler) http.Handler {
	hf := func(w http.ResponseWriter, r *http.Request) {
		const op = "Authenticate"

		header := r.Header.Get("Authorization")
		if header == "" {
			next.ServeHTTP(w, r)
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			writeError(w, domain.ErrUnauthenticated, slog.With("op", op))
			return
		}

		buyer, err := resolver.ResolveBuyer(r.Context(), token)
		if err != nil {
			writeError(w, err, slog.With("op", op))
			return
		}

		ctx := context.WithValue(r.Context(), buyerKey, buyer)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
	return http.HandlerFunc(hf)
}

// buyerFrom returns nil for anonymous requests.
func buyerFrom(ctx context.Context) *domain.Buyer {
	b, ok := ctx.Value(buyerKey).(domain.Buyer)
	if !ok {
		return nil
	}
	return &b
}

func requireBuyer(ctx context.Context) (domain.Buyer, error) {
	b := buyerFrom(ctx)
	if b == nil {
		return domain.Buyer{}, domain.ErrUnauthenticated
	}
	return *b, nil
}

// withCartSession finds the cart session key in the header or the cookie,
// a new key is issued when both are missing or malformed.
func withCartSession(next http.Handler) http.Handler {
	hf := func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(cartHeaderName)
		if key == "" {
			if c, err := r.Cookie(cartCookieName); err == nil {
				key = c.Value
			}
		}

		if uuid.Validate(key) != nil {
			key = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     cartCookieName,
				Value:    key,
				Path:     "/",
				MaxAge:   int(cartCookieAge / time.Second),
				HttpOnly: true,
				Secure:   r.TLS != nil,
				SameSite: http.SameSiteLaxMode,
			})
		}
		w.Header().Set(cartHeaderName, key)

		ctx := context.WithValue(r.Context(), cartKey, key)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
	return http.HandlerFunc(hf)
}

func cartKeyFrom(ctx context.Context) string {
	key, _ := ctx.Value(cartKey).(string)
	return key
}
