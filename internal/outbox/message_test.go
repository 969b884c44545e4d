package outbox_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maumercado/orderflow/internal/outbox"
)

func TestMessage_MarshalUnmarshalRoundTrip(t *testing.T) {
	original := outbox.Message{
		EventID:     "11111111-1111-1111-1111-111111111111",
		AggregateID: "22222222-2222-2222-2222-222222222222",
		EventType:   "OrderSubmitted",
		Data:        json.RawMessage(`{"total_amount":"19.99","item_count":3}`),
	}

	raw, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded outbox.Message
	require.NoError(t, json.Unmarshal(raw, &decoded))

	assert.Equal(t, original.EventID, decoded.EventID)
	assert.Equal(t, original.AggregateID, decoded.AggregateID)
	assert.Equal(t, original.EventType, decoded.EventType)
	assert.JSONEq(t, string(original.Data), string(decoded.Data))
}
