package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

var _ port.SessionCreator = (*StripeSessions)(nil)

var errNoPrice = errors.New("line without price")

// Currencies charged in whole units.
var zeroDecimalCurrencies = map[string]bool{
	"bif": true, "clp": true, "djf": true, "gnf": true, "jpy": true,
	"kmf": true, "krw": true, "mga": true, "pyg": true, "rwf": true,
	"ugx": true, "vnd": true, "vuv": true, "xaf": true, "xof": true,
	"xpf": true,
}

type sessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type customerFinder interface {
	FindCustomerID(ctx context.Context, email string) (string, error)
}

// A StripeSessions creates hosted Stripe Checkout sessions.
type StripeSessions struct {
	sessions  sessionAPI
	customers customerFinder
	baseURL   string
	currency  string
}

// NewStripeSessions uses baseURL for the success and cancel redirects.
func NewStripeSessions(
	secretKey, baseURL, currency string,
) (*StripeSessions, error) {
	const op = "NewStripeSessions"

	if secretKey == "" {
		return nil, fmt.Errorf("%s: secret key is empty", op)
	}

	sc := &client.API{}
	sc.Init(secretKey, nil)

	return newStripeSessions(
		sc.CheckoutSessions, stripeCustomers{sc}, baseURL, currency,
	)
}

func newStripeSessions(
	sessions sessionAPI,
	customers customerFinder,
	baseURL, currency string,
) (*StripeSessions, error) {
	const op = "newStripeSessions"

	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%s: invalid base url %q", op, baseURL)
	}

	currency = strings.ToLower(strings.TrimSpace(currency))
	if currency == "" {
		currency = "usd"
	}

	return &StripeSessions{
		sessions:  sessions,
		customers: customers,
		baseURL:   strings.TrimRight(baseURL, "/"),
		currency:  currency,
	}, nil
}

func (s *StripeSessions) CreateSession(
	ctx context.Context, req domain.CheckoutRequest,
) (domain.CheckoutSession, error) {
	const op = "StripeSessions.CreateSession"
	log := slog.With("op", op, "orderNumber", req.Metadata.OrderNumber)

	if err := ctx.Err(); err != nil {
		return domain.CheckoutSession{}, fmt.Errorf("%s: %w", op, err)
	}

	params, err := s.sessionParams(req)
	if err != nil {
		return domain.CheckoutSession{}, fmt.Errorf("%s: %w", op, err)
	}
	params.Context = ctx

	email := req.Metadata.CustomerEmail
	customerID, err := s.customers.FindCustomerID(ctx, email)
	if err != nil {
		log.Warn("customer lookup failed", "err", err)
	}
	if customerID != "" {
		params.Customer = stripe.String(customerID)
	} else if email != "" && email != domain.UnknownCustomer {
		params.CustomerEmail = stripe.String(email)
	}

	cs, err := s.sessions.New(params)
	if err != nil {
		return domain.CheckoutSession{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("checkout session created", "sessionID", cs.ID)
	return domain.CheckoutSession{ID: cs.ID, URL: cs.URL}, nil
}

func (s *StripeSessions) sessionParams(
	req domain.CheckoutRequest,
) (*stripe.CheckoutSessionParams, error) {
	md := req.Metadata

	address, err := json.Marshal(addressMetadata(md.Address))
	if err != nil {
		return nil, err
	}

	params := &stripe.CheckoutSessionParams{
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		SuccessURL: stripe.String(fmt.Sprintf(
			"%s/success?session_id={CHECKOUT_SESSION_ID}&orderNumber=%s",
			s.baseURL, url.QueryEscape(md.OrderNumber),
		)),
		CancelURL: stripe.String(s.baseURL + "/cart"),
	}

	for _, item := range req.LineItems {
		li, err := s.lineItem(item)
		if err != nil {
			return nil, err
		}
		params.LineItems = append(params.LineItems, li)
	}

	params.AddMetadata("orderNumber", md.OrderNumber)
	params.AddMetadata("customerName", md.CustomerName)
	params.AddMetadata("customerEmail", md.CustomerEmail)
	params.AddMetadata("buyerId", md.BuyerID)
	params.AddMetadata("address", string(address))

	return params, nil
}

// lineItem charges the effective price, the list price without a discount.
func (s *StripeSessions) lineItem(
	item domain.CartItem,
) (*stripe.CheckoutSessionLineItemParams, error) {
	p := item.Product

	if !p.HasPrice() {
		return nil, fmt.Errorf("%w: %s", errNoPrice, p.ID)
	}
	price := p.SalePrice()

	product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name:     stripe.String(p.Name),
		Metadata: map[string]string{"id": p.ID},
	}
	if p.Description != "" {
		product.Description = stripe.String(p.Description)
	}
	if len(p.Images) != 0 {
		product.Images = stripe.StringSlice(p.Images[:1])
	}

	return &stripe.CheckoutSessionLineItemParams{
		PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
			Currency:    stripe.String(s.currency),
			UnitAmount:  stripe.Int64(MinorUnits(price, s.currency)),
			ProductData: product,
		},
		Quantity: stripe.Int64(int64(item.Quantity)),
	}, nil
}

// MinorUnits converts a price to the smallest currency unit,
// rounding half away from zero.
func MinorUnits(price float64, currency string) int64 {
	d := decimal.NewFromFloat(price)
	if !zeroDecimalCurrencies[strings.ToLower(currency)] {
		d = d.Shift(2)
	}
	return d.Round(0).IntPart()
}

type addressJSON struct {
	ID      string `json:"_id,omitempty"`
	Name    string `json:"name"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
}

func addressMetadata(a domain.Address) addressJSON {
	return addressJSON{
		ID:      a.ID,
		Name:    a.Name,
		Email:   a.Email,
		Address: a.Line,
		City:    a.City,
		State:   a.State,
		Zip:     a.Zip,
	}
}

type stripeCustomers struct {
	sc *client.API
}

func (c stripeCustomers) FindCustomerID(
	ctx context.Context, email string,
) (string, error) {
	if email == "" || email == domain.UnknownCustomer {
		return "", nil
	}

	params := &stripe.CustomerListParams{Email: stripe.String(email)}
	params.Limit = stripe.Int64(1)
	params.Context = ctx

	it := c.sc.Customers.List(params)
	if it.Next() {
		return it.Customer().ID, nil
	}
	return "", it.Err()
}
