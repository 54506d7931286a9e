package schema

import (
	"time"

	"github.com/hamba/avro/v2"
)

const CheckoutEventSchemaTextV1 = `{
	"type": "record",
	"namespace": "storefront.checkout",
	"name": "checkout_event",
	"fields": [
		{"name": "order_number", "type": "string"},
		{"name": "buyer_id", "type": "string"},
		{"name": "customer_email", "type": "string"},
		{"name": "phase", "type": "string"},
		{"name": "reason", "type": "string", "default": ""},
		{"name": "session_id", "type": "string", "default": ""},
		{"name": "item_count", "type": "long"},
		{"name": "subtotal", "type": "double"},
		{"name": "total", "type": "double"},
		{"name": "occurred_at", "type": {"type": "long", "logicalType": "timestamp-millis"}}
	]
}`

// A CheckoutEventV1 reports the terminal state of one checkout attempt.
type CheckoutEventV1 struct {
	OrderNumber   string    `avro:"order_number"`
	BuyerID       string    `avro:"buyer_id"`
	CustomerEmail string    `avro:"customer_email"`
	Phase         string    `avro:"phase"`
	Reason        string    `avro:"reason"`
	SessionID     string    `avro:"session_id"`
	ItemCount     int64     `avro:"item_count"`
	SubTotal      float64   `avro:"subtotal"`
	Total         float64   `avro:"total"`
	OccurredAt    time.Time `avro:"occurred_at"`
}

// CheckoutEventV1Avro panics if the schema text is broken.
func CheckoutEventV1Avro() avro.Schema {
	return avro.MustParse(CheckoutEventSchemaTextV1)
}
