package httphandler_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/adapter/httphandler"
	"github.com/niksmo/storefront/internal/adapter/storage"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	validToken = "valid-token"
	teeJSON    = `{"id":"p1","name":"Tee","price":20,"effective_price":15}`
)

var testBuyer = domain.Buyer{ID: "u1", DisplayName: "Ann", Email: "ann@example.com"}

type testEnv struct {
	handler   http.Handler
	carts     *service.CartRegistry
	submitter *MockSubmitter
	addresses *MockAddressBook
	subs      *MockSubscriptions
	lookup    *MockCheckoutLookup
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	buyers := &MockBuyerResolver{}
	buyers.On("ResolveBuyer", mock.Anything, validToken).Return(testBuyer, nil)
	buyers.On("ResolveBuyer", mock.Anything, mock.Anything).
		Return(domain.Buyer{}, domain.ErrUnauthenticated)

	env := testEnv{
		carts:     service.NewCartRegistry(storage.NewMemoryCarts()),
		submitter: &MockSubmitter{},
		addresses: &MockAddressBook{},
		subs:      &MockSubscriptions{},
		lookup:    &MockCheckoutLookup{},
	}
	env.handler = httphandler.NewRouter(httphandler.RouterConfig{
		AllowedOrigins: []string{"https://shop.example.com"},
		Carts:          env.carts,
		Submitter:      env.submitter,
		Addresses:      env.addresses,
		Subscriptions:  env.subs,
		Buyers:         buyers,
		Lookup:         env.lookup,
	})
	return env
}

type reqOpt func(*http.Request)

func withSession(key string) reqOpt {
	return func(r *http.Request) { r.Header.Set("X-Cart-Session", key) }
}

func withToken(token string) reqOpt {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func (env testEnv) do(
	t *testing.T, method, target, body string, opts ...reqOpt,
) *httptest.ResponseRecorder {
	t.Helper()
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
		r.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(r)
	}
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, r)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func TestCartRoutes(t *testing.T) {
	t.Run("IssueSessionOnFirstRequest", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, http.MethodGet, "/v1/cart", "")
		require.Equal(t, http.StatusOK, w.Code)

		key := w.Header().Get("X-Cart-Session")
		require.NoError(t, uuid.Validate(key))

		res := w.Result()
		defer res.Body.Close()
		var cookie *http.Cookie
		for _, c := range res.Cookies() {
			if c.Name == "cart_session" {
				cookie = c
			}
		}
		require.NotNil(t, cookie)
		assert.Equal(t, key, cookie.Value)
		assert.True(t, cookie.HttpOnly)

		cart := decodeBody[httphandler.Cart](t, w)
		assert.Empty(t, cart.Lines)
	})

	t.Run("ReplaceMalformedSession", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, http.MethodGet, "/v1/cart", "", withSession("not-a-uuid"))
		require.Equal(t, http.StatusOK, w.Code)

		key := w.Header().Get("X-Cart-Session")
		assert.NotEqual(t, "not-a-uuid", key)
		assert.NoError(t, uuid.Validate(key))
	})

	t.Run("AddItemTwice", func(t *testing.T) {
		env := newTestEnv(t)
		key := uuid.NewString()

		w := env.do(t, http.MethodPost, "/v1/cart/items", teeJSON, withSession(key))
		require.Equal(t, http.StatusOK, w.Code)
		w = env.do(t, http.MethodPost, "/v1/cart/items", teeJSON, withSession(key))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, key, w.Header().Get("X-Cart-Session"))

		cart := decodeBody[httphandler.Cart](t, w)
		require.Len(t, cart.Lines, 1)
		assert.Equal(t, 2, cart.Lines[0].Quantity)
		assert.Equal(t, 2, cart.ItemCount)
		assert.InDelta(t, 40.0, cart.SubTotal, 1e-9)
		assert.InDelta(t, 30.0, cart.Total, 1e-9)
		assert.InDelta(t, 10.0, cart.Discount, 1e-9)
	})

	t.Run("UpdateQuantityToZeroRemovesLine", func(t *testing.T) {
		env := newTestEnv(t)
		key := uuid.NewString()

		env.do(t, http.MethodPost, "/v1/cart/items", teeJSON, withSession(key))
		w := env.do(t, http.MethodPatch, "/v1/cart/items/p1", `{"delta":-1}`, withSession(key))
		require.Equal(t, http.StatusOK, w.Code)

		cart := decodeBody[httphandler.Cart](t, w)
		assert.Empty(t, cart.Lines)
		assert.Zero(t, cart.Total)
	})

	t.Run("RemoveAndReset", func(t *testing.T) {
		env := newTestEnv(t)
		key := uuid.NewString()

		env.do(t, http.MethodPost, "/v1/cart/items", teeJSON, withSession(key))
		env.do(t, http.MethodPost, "/v1/cart/items", `{"id":"p2","name":"Cap","price":5}`, withSession(key))

		w := env.do(t, http.MethodDelete, "/v1/cart/items/p1", "", withSession(key))
		require.Equal(t, http.StatusOK, w.Code)
		cart := decodeBody[httphandler.Cart](t, w)
		require.Len(t, cart.Lines, 1)
		assert.Equal(t, "p2", cart.Lines[0].Product.ID)

		w = env.do(t, http.MethodDelete, "/v1/cart", "", withSession(key))
		require.Equal(t, http.StatusOK, w.Code)
		cart = decodeBody[httphandler.Cart](t, w)
		assert.Empty(t, cart.Lines)
	})

	t.Run("RejectProductWithoutID", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, http.MethodPost, "/v1/cart/items", `{"name":"Tee","price":20}`)
		require.Equal(t, http.StatusBadRequest, w.Code)

		res := decodeBody[httphandler.ErrorResponse](t, w)
		assert.Equal(t, "invalid input: product id", res.Error)
	})

	t.Run("RejectUnknownFields", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, http.MethodPatch, "/v1/cart/items/p1", `{"qty":1}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("RejectNonJSONBody", func(t *testing.T) {
		env := newTestEnv(t)

		r := httptest.NewRequest(http.MethodPost, "/v1/cart/items", strings.NewReader(teeJSON))
		r.Header.Set("Content-Type", "text/plain")
		w := httptest.NewRecorder()
		env.handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})
}

func TestCheckoutRoutes(t *testing.T) {
	address := &domain.Address{ID: "a1", Name: "Ann", Line: "1 Main St", City: "Austin"}

	t.Run("Redirect", func(t *testing.T) {
		env := newTestEnv(t)
		key := uuid.NewString()
		env.do(t, http.MethodPost, "/v1/cart/items", teeJSON, withSession(key))

		env.addresses.On("SelectedAddress", mock.Anything, testBuyer, "a1").
			Return(address, nil)
		env.submitter.On("BuildAndSubmit",
			mock.Anything,
			mock.MatchedBy(func(items []domain.CartItem) bool {
				return len(items) == 1 && items[0].Quantity == 1
			}),
			&testBuyer,
			address,
		).Return("https://pay.example.com/s/1", nil)

		w := env.do(t, http.MethodPost, "/v1/checkout", `{"address_id":"a1"}`,
			withSession(key), withToken(validToken))
		require.Equal(t, http.StatusOK, w.Code)

		res := decodeBody[httphandler.CheckoutResponse](t, w)
		assert.Equal(t, "https://pay.example.com/s/1", res.URL)
		env.submitter.AssertExpectations(t)

		release, ok := env.carts.BeginCheckout(key)
		assert.True(t, ok, "guard must be released after the request")
		release()
	})

	t.Run("AnonymousWithoutBody", func(t *testing.T) {
		env := newTestEnv(t)
		key := uuid.NewString()
		env.do(t, http.MethodPost, "/v1/cart/items", teeJSON, withSession(key))

		env.submitter.On("BuildAndSubmit",
			mock.Anything, mock.Anything,
			(*domain.Buyer)(nil), (*domain.Address)(nil),
		).Return("", domain.ErrNoAddressSelected)

		w := env.do(t, http.MethodPost, "/v1/checkout", "", withSession(key))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		env.addresses.AssertNotCalled(t, "SelectedAddress",
			mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("AlreadyInProgress", func(t *testing.T) {
		env := newTestEnv(t)
		key := uuid.NewString()

		release, ok := env.carts.BeginCheckout(key)
		require.True(t, ok)
		defer release()

		w := env.do(t, http.MethodPost, "/v1/checkout", "", withSession(key))
		assert.Equal(t, http.StatusConflict, w.Code)
		env.submitter.AssertNotCalled(t, "BuildAndSubmit",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	errCases := []struct {
		name   string
		err    error
		status int
	}{
		{"EmptyCart", domain.ErrEmptyCart, http.StatusBadRequest},
		{"MissingPrice", &domain.MissingPriceError{ProductID: "p1", ProductName: "Tee"},
			http.StatusUnprocessableEntity},
		{"SessionFailure", &domain.CheckoutSessionError{Err: fmt.Errorf("boom")},
			http.StatusBadGateway},
		{"Unexpected", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range errCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)

			env.addresses.On("SelectedAddress", mock.Anything, testBuyer, "").
				Return(address, nil)
			env.submitter.On("BuildAndSubmit",
				mock.Anything, mock.Anything, mock.Anything, mock.Anything,
			).Return("", tc.err)

			w := env.do(t, http.MethodPost, "/v1/checkout", "", withToken(validToken))
			assert.Equal(t, tc.status, w.Code)
		})
	}

	cartFirstCases := []struct {
		name   string
		items  []string
		err    error
		status int
	}{
		{"EmptyCartBeforeAddressLookup", nil, domain.ErrEmptyCart,
			http.StatusBadRequest},
		{"MissingPriceBeforeAddressLookup", []string{`{"id":"p9","name":"Mystery"}`},
			&domain.MissingPriceError{ProductID: "p9", ProductName: "Mystery"},
			http.StatusUnprocessableEntity},
	}
	for _, tc := range cartFirstCases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t)
			key := uuid.NewString()
			for _, item := range tc.items {
				env.do(t, http.MethodPost, "/v1/cart/items", item, withSession(key))
			}

			env.addresses.On("SelectedAddress", mock.Anything, mock.Anything, mock.Anything).
				Return(nil, errors.New("cms unavailable"))
			env.submitter.On("BuildAndSubmit",
				mock.Anything, mock.Anything, &testBuyer, (*domain.Address)(nil),
			).Return("", tc.err)

			w := env.do(t, http.MethodPost, "/v1/checkout", "",
				withSession(key), withToken(validToken))
			assert.Equal(t, tc.status, w.Code)
			env.addresses.AssertNotCalled(t, "SelectedAddress",
				mock.Anything, mock.Anything, mock.Anything)
			env.submitter.AssertNumberOfCalls(t, "BuildAndSubmit", 1)
		})
	}

	t.Run("AddressLookupFailureOnValidCart", func(t *testing.T) {
		env := newTestEnv(t)
		key := uuid.NewString()
		env.do(t, http.MethodPost, "/v1/cart/items", teeJSON, withSession(key))

		env.addresses.On("SelectedAddress", mock.Anything, testBuyer, "").
			Return(nil, errors.New("cms unavailable"))

		w := env.do(t, http.MethodPost, "/v1/checkout", "",
			withSession(key), withToken(validToken))
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		env.submitter.AssertNotCalled(t, "BuildAndSubmit",
			mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("InvalidToken", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, http.MethodPost, "/v1/checkout", "", withToken("forged"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("StatusOfOwnOrder", func(t *testing.T) {
		env := newTestEnv(t)
		env.lookup.On("LookupCheckout", mock.Anything, "o1").Return(
			domain.CheckoutAttempt{
				OrderNumber: "o1",
				BuyerID:     testBuyer.ID,
				Phase:       domain.PhaseRedirected,
				ItemCount:   2,
			}, nil)

		w := env.do(t, http.MethodGet, "/v1/checkouts/o1", "", withToken(validToken))
		require.Equal(t, http.StatusOK, w.Code)

		res := decodeBody[httphandler.CheckoutStatus](t, w)
		assert.Equal(t, "redirected", res.Phase)
		assert.Equal(t, 2, res.ItemCount)
	})

	t.Run("StatusOfForeignOrder", func(t *testing.T) {
		env := newTestEnv(t)
		env.lookup.On("LookupCheckout", mock.Anything, "o2").Return(
			domain.CheckoutAttempt{OrderNumber: "o2", BuyerID: "someone-else"}, nil)

		w := env.do(t, http.MethodGet, "/v1/checkouts/o2", "", withToken(validToken))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("StatusNeedsBuyer", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, http.MethodGet, "/v1/checkouts/o1", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		env.lookup.AssertNotCalled(t, "LookupCheckout", mock.Anything, mock.Anything)
	})
}

func TestAddressRoutes(t *testing.T) {
	stored := []domain.Address{{ID: "a1", Name: "Ann", Line: "1 Main St", City: "Austin", Default: true}}

	t.Run("NeedsBuyer", func(t *testing.T) {
		env := newTestEnv(t)

		w := env.do(t, http.MethodGet, "/v1/addresses", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("List", func(t *testing.T) {
		env := newTestEnv(t)
		env.addresses.On("Addresses", mock.Anything, testBuyer).Return(stored, nil)

		w := env.do(t, http.MethodGet, "/v1/addresses", "", withToken(validToken))
		require.Equal(t, http.StatusOK, w.Code)

		res := decodeBody[[]httphandler.Address](t, w)
		require.Len(t, res, 1)
		assert.Equal(t, "1 Main St", res[0].Address)
		assert.True(t, res[0].Default)
	})

	t.Run("Create", func(t *testing.T) {
		env := newTestEnv(t)
		env.addresses.On("AddAddress", mock.Anything, testBuyer,
			mock.MatchedBy(func(a domain.Address) bool {
				return a.Line == "1 Main St" && a.City == "Austin"
			}),
		).Return(stored, nil)

		w := env.do(t, http.MethodPost, "/v1/addresses",
			`{"name":"Ann","address":"1 Main St","city":"Austin","default":true}`,
			withToken(validToken))
		assert.Equal(t, http.StatusCreated, w.Code)
		env.addresses.AssertExpectations(t)
	})

	t.Run("UpdateTakesIDFromPath", func(t *testing.T) {
		env := newTestEnv(t)
		env.addresses.On("EditAddress", mock.Anything, testBuyer,
			mock.MatchedBy(func(a domain.Address) bool { return a.ID == "a1" }),
		).Return(stored, nil)

		w := env.do(t, http.MethodPut, "/v1/addresses/a1",
			`{"id":"other","name":"Ann","address":"1 Main St","city":"Austin"}`,
			withToken(validToken))
		assert.Equal(t, http.StatusOK, w.Code)
		env.addresses.AssertExpectations(t)
	})

	t.Run("DeleteUnknown", func(t *testing.T) {
		env := newTestEnv(t)
		env.addresses.On("RemoveAddress", mock.Anything, testBuyer, "a9").
			Return(nil, fmt.Errorf("Service.RemoveAddress: %w", domain.ErrNotFound))

		w := env.do(t, http.MethodDelete, "/v1/addresses/a9", "", withToken(validToken))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestFormRoutes(t *testing.T) {
	t.Run("Subscribe", func(t *testing.T) {
		env := newTestEnv(t)
		env.subs.On("Subscribe", mock.Anything, "ann@example.com").Return(nil)

		w := env.do(t, http.MethodPost, "/v1/newsletter", `{"email":"ann@example.com"}`)
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("SubscribeTwice", func(t *testing.T) {
		env := newTestEnv(t)
		env.subs.On("Subscribe", mock.Anything, mock.Anything).
			Return(fmt.Errorf("Service.Subscribe: %w", domain.ErrAlreadySubscribed))

		w := env.do(t, http.MethodPost, "/v1/newsletter", `{"email":"ann@example.com"}`)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("ContactInvalidEmail", func(t *testing.T) {
		env := newTestEnv(t)
		env.subs.On("SendMessage", mock.Anything, mock.Anything).
			Return(fmt.Errorf("Service.SendMessage: %w: email", domain.ErrInvalidInput))

		w := env.do(t, http.MethodPost, "/v1/contact",
			`{"name":"Ann","email":"nope","message":"hi"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)

		res := decodeBody[httphandler.ErrorResponse](t, w)
		assert.Equal(t, "invalid input: email", res.Error)
	})

	t.Run("Contact", func(t *testing.T) {
		env := newTestEnv(t)
		env.subs.On("SendMessage", mock.Anything, domain.ContactMessage{
			Name: "Ann", Email: "ann@example.com", Message: "hi",
		}).Return(nil)

		w := env.do(t, http.MethodPost, "/v1/contact",
			`{"name":"Ann","email":"ann@example.com","message":"hi"}`)
		assert.Equal(t, http.StatusAccepted, w.Code)
	})
}

func TestCORS(t *testing.T) {
	t.Run("PreflightFromAllowedOrigin", func(t *testing.T) {
		env := newTestEnv(t)

		r := httptest.NewRequest(http.MethodOptions, "/v1/cart/items", nil)
		r.Header.Set("Origin", "https://shop.example.com")
		r.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		env.handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "https://shop.example.com", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Cart-Session")
	})

	t.Run("UnknownOrigin", func(t *testing.T) {
		env := newTestEnv(t)

		r := httptest.NewRequest(http.MethodGet, "/v1/cart", nil)
		r.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		env.handler.ServeHTTP(w, r)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}
