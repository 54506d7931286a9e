package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.CheckoutSubmitter = (*CheckoutIntentBuilder)(nil)

var errNoRedirectURL = errors.New("no checkout url returned")

type CheckoutOpt func(*CheckoutIntentBuilder)

// WithCheckoutNotifier reports finished attempts to n.
func WithCheckoutNotifier(n port.CheckoutNotifier) CheckoutOpt {
	return func(b *CheckoutIntentBuilder) {
		b.notifier = n
	}
}

func WithOrderNumberFunc(fn func() string) CheckoutOpt {
	return func(b *CheckoutIntentBuilder) {
		b.newOrderNumber = fn
	}
}

func WithClock(now func() time.Time) CheckoutOpt {
	return func(b *CheckoutIntentBuilder) {
		b.now = now
	}
}

// A CheckoutIntentBuilder validates a cart snapshot with the buyer
// and the delivery address and submits it to the payment session creator.
//
// It never reads or mutates a cart: callers pass the grouped items.
type CheckoutIntentBuilder struct {
	sessions       port.SessionCreator
	notifier       port.CheckoutNotifier
	newOrderNumber func() string
	now            func() time.Time
}

func NewCheckoutIntentBuilder(
	sessions port.SessionCreator, opts ...CheckoutOpt,
) *CheckoutIntentBuilder {
	if sessions == nil {
		panic("NewCheckoutIntentBuilder: session creator is nil") // develop mistake
	}

	b := &CheckoutIntentBuilder{
		sessions:       sessions,
		newOrderNumber: uuid.NewString,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// BuildAndSubmit returns the payment redirect url.
//
// Preconditions are checked in order and the first failure is returned:
// [domain.ErrEmptyCart], [domain.ErrMissingPrice],
// [domain.ErrNoAddressSelected], [domain.ErrUnauthenticated].
// A session creator failure is returned as [*domain.CheckoutSessionError].
func (b *CheckoutIntentBuilder) BuildAndSubmit(
	ctx context.Context,
	items []domain.CartItem,
	buyer *domain.Buyer,
	address *domain.Address,
) (string, error) {
	const op = "CheckoutIntentBuilder.BuildAndSubmit"
	log := slog.With("op", op)

	snapshot := domain.CloneItems(items)

	if err := validateCheckout(snapshot, buyer, address); err != nil {
		log.Info(
			"checkout rejected",
			"phase", domain.PhaseRejected, "reason", err,
		)
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	req := domain.CheckoutRequest{
		LineItems: snapshot,
		Metadata:  b.metadata(*buyer, *address),
	}
	orderNumber := req.Metadata.OrderNumber
	log = log.With("orderNumber", orderNumber)
	log.Info("submitting checkout", "phase", domain.PhaseSubmitting)

	session, err := b.sessions.CreateSession(ctx, req)
	if err == nil && session.URL == "" {
		err = errNoRedirectURL
	}
	if err != nil {
		sessionErr := &domain.CheckoutSessionError{
			OrderNumber: orderNumber,
			Err:         err,
		}
		log.Error(
			"checkout failed", "phase", domain.PhaseFailed, "err", err,
		)
		b.notify(ctx, b.attempt(req, domain.PhaseFailed, err.Error(), ""))
		return "", fmt.Errorf("%s: %w", op, sessionErr)
	}

	log.Info("checkout redirected", "phase", domain.PhaseRedirected)
	b.notify(ctx, b.attempt(req, domain.PhaseRedirected, "", session.ID))
	return session.URL, nil
}

func validateCheckout(
	items []domain.CartItem, buyer *domain.Buyer, address *domain.Address,
) error {
	if err := domain.CheckItems(items); err != nil {
		return err
	}

	if address == nil {
		return domain.ErrNoAddressSelected
	}

	if buyer == nil || buyer.ID == "" {
		return domain.ErrUnauthenticated
	}

	return nil
}

func (b *CheckoutIntentBuilder) metadata(
	buyer domain.Buyer, address domain.Address,
) domain.CheckoutMetadata {
	name := buyer.DisplayName
	if name == "" {
		name = domain.UnknownCustomer
	}
	email := buyer.Email
	if email == "" {
		email = domain.UnknownCustomer
	}
	return domain.CheckoutMetadata{
		OrderNumber:   b.newOrderNumber(),
		CustomerName:  name,
		CustomerEmail: email,
		BuyerID:       buyer.ID,
		Address:       address,
	}
}

func (b *CheckoutIntentBuilder) attempt(
	req domain.CheckoutRequest,
	phase domain.CheckoutPhase,
	reason string,
	sessionID string,
) domain.CheckoutAttempt {
	return domain.CheckoutAttempt{
		OrderNumber:   req.Metadata.OrderNumber,
		BuyerID:       req.Metadata.BuyerID,
		CustomerEmail: req.Metadata.CustomerEmail,
		Phase:         phase,
		Reason:        reason,
		SessionID:     sessionID,
		ItemCount:     quantityOf(req.LineItems),
		SubTotal:      subTotalOf(req.LineItems),
		Total:         totalOf(req.LineItems),
		OccurredAt:    b.now(),
	}
}

func (b *CheckoutIntentBuilder) notify(
	ctx context.Context, a domain.CheckoutAttempt,
) {
	const op = "CheckoutIntentBuilder.notify"

	if b.notifier == nil {
		return
	}

	// the attempt is over, a cancelled request must not drop the report
	ctx = context.WithoutCancel(ctx)
	if err := b.notifier.NotifyCheckout(ctx, a); err != nil {
		slog.Warn(
			"failed to report checkout attempt",
			"op", op, "orderNumber", a.OrderNumber, "err", err,
		)
	}
}
