package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"maintenance-ledger/internal/core"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProducer struct {
	messages []kafka.Message
	failOn   int
	closed   bool
}

func (f *fakeProducer) WriteMessage(_ context.Context, msg kafka.Message) error {
	if f.failOn > 0 && len(f.messages)+1 == f.failOn {
		return errors.New("broker unavailable")
	}
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeProducer) Close() error {
	f.closed = true
	return nil
}

func sampleMovement(id string, kind core.MovementType) core.Movement {
	return core.Movement{
		ID:            id,
		Sequence:      7,
		TenantID:      "t1",
		WorkOrderID:   "wo1",
		PartID:        "p1",
		StockRecordID: "s1",
		LineItemID:    "li1",
		Type:          kind,
		Quantity:      3,
		OnHandAfter:   2,
		ReservedAfter: 3,
		UnitCost:      decimal.RequireFromString("4.25"),
		CreatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEncodeMovement(t *testing.T) {
	msg, err := EncodeMovement(sampleMovement("m1", core.MovementReserve))
	require.NoError(t, err)

	assert.Equal(t, "s1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "parts_ledger.movement.reserve", string(msg.Headers[0].Value))

	var event MovementEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, "parts_ledger.movement.reserve", event.EventType)
	assert.Equal(t, int64(2), event.Movement.OnHandAfter)
	assert.True(t, event.Movement.UnitCost.Equal(decimal.RequireFromString("4.25")))
}

func TestKafkaPublisher_PublishesInOrder(t *testing.T) {
	producer := &fakeProducer{}
	pub := NewKafkaPublisher(producer)

	err := pub.Publish(context.Background(), []core.Movement{
		sampleMovement("m1", core.MovementReserve),
		sampleMovement("m2", core.MovementIssue),
	})
	require.NoError(t, err)
	require.Len(t, producer.messages, 2)
	assert.Equal(t, "parts_ledger.movement.issue", string(producer.messages[1].Headers[0].Value))

	require.NoError(t, pub.Close())
	assert.True(t, producer.closed)
}

func TestKafkaPublisher_StopsOnFailure(t *testing.T) {
	producer := &fakeProducer{failOn: 1}
	err := NewKafkaPublisher(producer).Publish(context.Background(), []core.Movement{
		sampleMovement("m1", core.MovementReserve),
		sampleMovement("m2", core.MovementIssue),
	})
	assert.ErrorContains(t, err, "m1")
	assert.Empty(t, producer.messages)
}
