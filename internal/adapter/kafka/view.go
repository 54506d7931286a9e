package kafka

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/lovoo/goka"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/niksmo/storefront/pkg/schema"
)

var _ port.CheckoutLookup = (*CheckoutView)(nil)

// A CheckoutViewConfig used for setup [CheckoutView].
type CheckoutViewConfig struct {
	SeedBrokers []string
	Group       string
	TLSConfig   *tls.Config
	Opts        []goka.ViewOption
}

// A CheckoutView reads the checkout tracker group table.
type CheckoutView struct {
	gv *goka.View
}

func NewCheckoutView(config CheckoutViewConfig) (*CheckoutView, error) {
	const op = "NewCheckoutView"

	ConfigureTLS(config.TLSConfig)

	opts := append([]goka.ViewOption{withNonlogViewOpt()}, config.Opts...)
	gv, err := goka.NewView(
		config.SeedBrokers,
		goka.GroupTable(goka.Group(config.Group)),
		newCheckoutStatusCodec(),
		opts...,
	)
	if err != nil {
		return nil, opErr(err, op)
	}

	return &CheckoutView{gv}, nil
}

func (v *CheckoutView) Run(ctx context.Context) {
	const op = "CheckoutView.Run"
	log := slog.With("op", op)

	err := v.gv.Run(ctx)
	if err != nil {
		log.Error("unexpected fail on run", "err", err)
	}
}

func (v *CheckoutView) LookupCheckout(
	ctx context.Context, orderNumber string,
) (domain.CheckoutAttempt, error) {
	const op = "CheckoutView.LookupCheckout"

	if err := ctx.Err(); err != nil {
		return domain.CheckoutAttempt{}, opErr(err, op)
	}

	value, err := v.gv.Get(orderNumber)
	if err != nil {
		return domain.CheckoutAttempt{}, opErr(err, op)
	}

	if value == nil {
		return domain.CheckoutAttempt{}, opErr(domain.ErrNotFound, op)
	}

	event, ok := value.(schema.CheckoutEventV1)
	if !ok {
		err := fmt.Errorf("%w: %T", ErrInvalidValueType, value)
		return domain.CheckoutAttempt{}, opErr(err, op)
	}

	return schemaV1ToAttempt(event), nil
}
