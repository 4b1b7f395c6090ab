package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestPublishOrderCreated(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	p := &KafkaPublisher{w: w, timeout: time.Second}

	err := p.Publish(context.Background(), NewOrderCreated(OrderCreated{
		OrderID:     9,
		UserID:      3,
		TotalAmount: decimal.NewFromInt(25),
		Items: []OrderLine{
			{ProductID: 1, Quantity: 2, PriceAtPurchase: decimal.NewFromInt(10)},
		},
	}))
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "3", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, TypeOrderCreated, string(msg.Headers[0].Value))

	var decoded struct {
		Type    string `json:"type"`
		Payload struct {
			OrderID     int64  `json:"order_id"`
			TotalAmount string `json:"total_amount"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, TypeOrderCreated, decoded.Type)
	assert.Equal(t, int64(9), decoded.Payload.OrderID)
	assert.Equal(t, "25", decoded.Payload.TotalAmount)
}

func TestPublishWrapsWriterError(t *testing.T) {
	t.Parallel()

	boom := errors.New("broker down")
	p := &KafkaPublisher{w: &fakeWriter{err: boom}, timeout: time.Second}

	err := p.Publish(context.Background(), NewProductChanged(TypeProductDeleted, ProductChanged{ProductID: 1}))
	require.ErrorIs(t, err, boom)
}

func TestNopPublisher(t *testing.T) {
	t.Parallel()

	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), Event{Type: "anything"}))
}
