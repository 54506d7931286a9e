package schema

import (
	"testing"
	"time"

	"github.com/hamba/avro/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutEventV1(t *testing.T) {
	t.Run("Regular", func(t *testing.T) {
		vMarshal := CheckoutEventV1{
			OrderNumber:   "order-1",
			BuyerID:       "user_1",
			CustomerEmail: "jane@example.com",
			Phase:         "redirected",
			SessionID:     "cs_test_1",
			ItemCount:     3,
			SubTotal:      25,
			Total:         23.5,
			OccurredAt:    time.UnixMilli(1700000000123).UTC(),
		}

		var eventSchema avro.Schema

		require.NotPanics(t, func() {
			eventSchema = CheckoutEventV1Avro()
		})

		data, err := avro.Marshal(eventSchema, vMarshal)
		require.NoError(t, err)

		var vUnmarshal CheckoutEventV1
		err = avro.Unmarshal(eventSchema, data, &vUnmarshal)
		require.NoError(t, err)

		assert.True(t, vMarshal.OccurredAt.Equal(vUnmarshal.OccurredAt))
		vUnmarshal.OccurredAt = vMarshal.OccurredAt
		assert.Equal(t, vMarshal, vUnmarshal)
	})

	t.Run("SubMillisecondsDropped", func(t *testing.T) {
		at := time.UnixMilli(1700000000123).Add(456 * time.Microsecond)
		data, err := avro.Marshal(
			CheckoutEventV1Avro(), CheckoutEventV1{OccurredAt: at},
		)
		require.NoError(t, err)

		var v CheckoutEventV1
		require.NoError(t, avro.Unmarshal(CheckoutEventV1Avro(), data, &v))
		assert.Equal(t, int64(1700000000123), v.OccurredAt.UnixMilli())
	})
}
