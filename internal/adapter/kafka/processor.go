package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/lovoo/goka"
	"github.com/niksmo/storefront/pkg/schema"
)

// A processor is used for composition.
//
// Running and closing the underlying [goka.Processor]
type processor struct {
	opPrefix string
	gp       *goka.Processor
}

func (p *processor) run(
	ctx context.Context, stopFn context.CancelFunc, wg *sync.WaitGroup,
) {
	const op = "run"
	log := slog.With("op", makeOp(p.opPrefix, op))

	defer wg.Done()

	go p.runProc(ctx, stopFn)

	log.Info("preparing...")
	p.waitForReady(ctx)
	log.Info("running")
}

func (p *processor) runProc(ctx context.Context, stopFn context.CancelFunc) {
	const op = "run"
	log := slog.With("op", makeOp(p.opPrefix, op))

	defer stopFn()

	err := p.gp.Run(ctx)
	if err != nil {
		log.Error("stopped", "err", err)
		return
	}
	log.Info("stopped")
}

func (p *processor) waitForReady(ctx context.Context) {
	const op = "waitForReady"
	log := slog.With("op", makeOp(p.opPrefix, op))

	err := p.gp.WaitForReadyContext(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Error("fall down while preparing", "err", err)
		return
	}
}

func (p *processor) close() {
	const op = "close"
	log := slog.With("op", makeOp(p.opPrefix, op))

	log.Info("closing processor...")
	p.gp.Stop()
	log.Info("processor is closed")
}

// A checkoutEventCodec used for serde registry framed [schema.CheckoutEventV1]
type checkoutEventCodec struct {
	serde Serde
}

func newCheckoutEventCodec(s Serde) checkoutEventCodec {
	return checkoutEventCodec{s}
}

func (c checkoutEventCodec) Encode(v any) ([]byte, error) {
	const op = "checkoutEventCodec.Encode"
	if _, ok := v.(schema.CheckoutEventV1); !ok {
		return nil, opErr(ErrInvalidValueType, op)
	}
	return c.serde.Encode(v)
}

func (c checkoutEventCodec) Decode(data []byte) (any, error) {
	const op = "checkoutEventCodec.Decode"
	var s schema.CheckoutEventV1
	err := c.serde.Decode(data, &s)
	if err != nil {
		return nil, opErr(err, op)
	}
	return s, nil
}

// A checkoutStatusCodec used for serde group table values.
//
// Table values are plain avro, the table is private to the group.
type checkoutStatusCodec struct {
	encodeFn func(any) ([]byte, error)
	decodeFn func([]byte, any) error
}

func newCheckoutStatusCodec() checkoutStatusCodec {
	s := schema.CheckoutEventV1Avro()
	return checkoutStatusCodec{
		encodeFn: schema.AvroEncodeFn(s),
		decodeFn: schema.AvroDecodeFn(s),
	}
}

func (c checkoutStatusCodec) Encode(v any) ([]byte, error) {
	const op = "checkoutStatusCodec.Encode"
	if _, ok := v.(schema.CheckoutEventV1); !ok {
		return nil, opErr(ErrInvalidValueType, op)
	}
	b, err := c.encodeFn(v)
	if err != nil {
		return nil, opErr(err, op)
	}
	return b, nil
}

func (c checkoutStatusCodec) Decode(data []byte) (any, error) {
	const op = "checkoutStatusCodec.Decode"
	var s schema.CheckoutEventV1
	if err := c.decodeFn(data, &s); err != nil {
		return nil, opErr(err, op)
	}
	return s, nil
}

// A CheckoutTrackerProcessor keeps the latest checkout event
// per order number in its group table.
type CheckoutTrackerProcessor struct {
	opPrefix string
	proc     processor
}

func NewCheckoutTrackerProc(
	seedBrokers []string,
	inputStream string,
	group string,
	checkoutEventSerde Serde,
	opts ...goka.ProcessorOption,
) (*CheckoutTrackerProcessor, error) {
	const op = "NewCheckoutTrackerProc"

	if checkoutEventSerde == nil {
		panic(opErr(errors.New("serde is nil"), op)) // develop mistake
	}

	var p CheckoutTrackerProcessor
	p.opPrefix = "CheckoutTrackerProcessor"

	gg := goka.DefineGroup(goka.Group(group),
		goka.Input(
			goka.Stream(inputStream),
			newCheckoutEventCodec(checkoutEventSerde),
			p.processFn,
		),
		goka.Persist(newCheckoutStatusCodec()),
	)

	opts = append([]goka.ProcessorOption{withNonlogProcOpt()}, opts...)
	gp, err := goka.NewProcessor(seedBrokers, gg, opts...)
	if err != nil {
		return nil, opErr(err, op)
	}

	p.proc = processor{
		opPrefix: p.opPrefix,
		gp:       gp,
	}

	return &p, nil
}

func (p *CheckoutTrackerProcessor) Run(
	ctx context.Context, stopFn context.CancelFunc, wg *sync.WaitGroup,
) {
	p.proc.run(ctx, stopFn, wg)
}

func (p *CheckoutTrackerProcessor) Close() {
	p.proc.close()
}

func (p *CheckoutTrackerProcessor) processFn(ctx goka.Context, msg any) {
	const op = "processFn"

	event, ok := msg.(schema.CheckoutEventV1)
	if !ok {
		return
	}
	log := slog.With(
		"op", makeOp(p.opPrefix, op), "orderNumber", event.OrderNumber,
	)

	if stored, ok := ctx.Value().(schema.CheckoutEventV1); ok &&
		stored.OccurredAt.After(event.OccurredAt) {
		log.Warn("stale checkout event skipped", "phase", event.Phase)
		return
	}

	ctx.SetValue(event)
	log.Info("checkout status stored", "phase", event.Phase)
}
