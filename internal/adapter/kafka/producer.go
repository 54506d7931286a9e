package kafka

import (
	"context"
	"log/slog"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/niksmo/storefront/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

var _ port.CheckoutNotifier = CheckoutEventsProducer{}

// A producer is used for composition.
//
// Producing records to kafka broker and closing underlying [kgo.Client].
type producer struct {
	opPrefix string
	cl       ProducerClient
}

func (p producer) close() {
	const op = "close"
	log := slog.With("op", makeOp(p.opPrefix, op))
	log.Info("closing producer...")
	p.cl.Close()
	log.Info("producer is closed")
}

func (p producer) produce(
	ctx context.Context, rs ...*kgo.Record,
) error {
	const op = "produce"
	res := p.cl.ProduceSync(ctx, rs...)
	if err := res.FirstErr(); err != nil {
		return opErr(err, p.opPrefix, op)
	}
	return nil
}

// A CheckoutEventsProducer reports finished checkout attempts
// keyed by order number.
type CheckoutEventsProducer struct {
	producer producer
	encoder  Encoder
	opPrefix string
}

func NewCheckoutEventsProducer(
	opts ...ProducerOpt,
) (CheckoutEventsProducer, error) {
	const op = "NewCheckoutEventsProducer"

	var options producerOpts
	for _, opt := range opts {
		if err := opt(&options); err != nil {
			return CheckoutEventsProducer{}, opErr(err, op)
		}
	}

	if options.cl == nil || options.encoder == nil {
		panic(opErr(ErrTooFewOpts, op)) // develop mistake
	}

	opPrefix := "CheckoutEventsProducer"
	p := producer{
		opPrefix: opPrefix,
		cl:       options.cl,
	}

	return CheckoutEventsProducer{
		producer: p,
		encoder:  options.encoder,
		opPrefix: opPrefix,
	}, nil
}

func (p CheckoutEventsProducer) Close() {
	p.producer.close()
}

func (p CheckoutEventsProducer) NotifyCheckout(
	ctx context.Context, a domain.CheckoutAttempt,
) error {
	const op = "NotifyCheckout"

	if err := ctx.Err(); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	r, err := p.createRecord(a)
	if err != nil {
		return opErr(err, p.opPrefix, op)
	}

	if err := p.producer.produce(ctx, r); err != nil {
		return opErr(err, p.opPrefix, op)
	}

	slog.Debug(
		"checkout event produced",
		"op", makeOp(p.opPrefix, op),
		"orderNumber", a.OrderNumber,
		"phase", a.Phase,
	)
	return nil
}

func (p CheckoutEventsProducer) createRecord(
	a domain.CheckoutAttempt,
) (*kgo.Record, error) {
	const op = "createRecord"

	s := p.toSchema(a)
	b, err := p.encoder.Encode(s)
	if err != nil {
		return nil, opErr(err, p.opPrefix, op)
	}
	return &kgo.Record{Key: []byte(s.OrderNumber), Value: b}, nil
}

func (CheckoutEventsProducer) toSchema(
	a domain.CheckoutAttempt,
) schema.CheckoutEventV1 {
	return attemptToSchemaV1(a)
}
