package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Jamarblack/Degen-Arena/config"
	"github.com/Jamarblack/Degen-Arena/internal/core/domain"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var testKafkaCfg = config.KafkaConfig{TopicPlaced: "wager_placed", TopicSettled: "wager_settled"}

func testEvent(t domain.WagerEventType) domain.WagerEvent {
	w := &domain.Wager{ID: uuid.New(), AssetSymbol: "BONK", Status: domain.WagerStatusWon}
	return domain.NewWagerEvent(t, w, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
}

func TestKafkaPublisher_RoutesByType(t *testing.T) {
	w := &fakeWriter{}
	p := NewKafkaPublisher(w, testKafkaCfg)

	placed := testEvent(domain.EventWagerPlaced)
	settled := testEvent(domain.EventWagerSettled)
	require.NoError(t, p.Publish(context.Background(), placed))
	require.NoError(t, p.Publish(context.Background(), settled))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, "wager_placed", w.msgs[0].Topic)
	assert.Equal(t, "wager_settled", w.msgs[1].Topic)
	assert.Equal(t, []byte(settled.Wager.ID.String()), w.msgs[1].Key)
	assert.Equal(t, settled.OccurredAt, w.msgs[1].Time)

	var decoded domain.WagerEvent
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &decoded))
	assert.Equal(t, settled.Wager.ID, decoded.Wager.ID)
	assert.Equal(t, domain.EventWagerSettled, decoded.Type)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestKafkaPublisher_Errors(t *testing.T) {
	p := NewKafkaPublisher(&fakeWriter{err: errors.New("broker down")}, testKafkaCfg)
	err := p.Publish(context.Background(), testEvent(domain.EventWagerPlaced))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wager_placed")

	err = NewKafkaPublisher(&fakeWriter{}, testKafkaCfg).Publish(context.Background(), testEvent("wager.unknown"))
	assert.Error(t, err)
}

func TestNewWriter_ParsesBrokers(t *testing.T) {
	w := NewWriter(" kafka-1:9092, ,kafka-2:9092 ")
	assert.Equal(t, "kafka-1:9092,kafka-2:9092", w.Addr.String())
	assert.Empty(t, w.Topic)
}

type recordingPublisher struct {
	got []domain.WagerEvent
	err error
}

func (r *recordingPublisher) Publish(_ context.Context, ev domain.WagerEvent) error {
	r.got = append(r.got, ev)
	return r.err
}

func TestFanout_DeliversToAllAndJoinsErrors(t *testing.T) {
	ok := &recordingPublisher{}
	failing := &recordingPublisher{err: errors.New("redis down")}
	f := NewFanout(failing, nil, ok)

	err := f.Publish(context.Background(), testEvent(domain.EventWagerSettled))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis down")
	assert.Len(t, ok.got, 1)
	assert.Len(t, failing.got, 1)

	assert.NoError(t, NewFanout().Publish(context.Background(), testEvent(domain.EventWagerPlaced)))
}
