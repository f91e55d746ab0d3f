package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	channel string
	message []byte
	err     error
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	f.channel = channel
	f.message, _ = message.([]byte)
	cmd := redis.NewIntCmd(ctx, "publish", channel, message)
	if f.err != nil {
		cmd.SetErr(f.err)
	} else {
		cmd.SetVal(1)
	}
	return cmd
}

func TestRedisPublisher_Publish(t *testing.T) {
	fake := &fakeRedis{}
	p := &RedisPublisher{client: fake, logger: zerolog.Nop()}

	evt := New(AppointmentCreated, "appt-1", map[string]interface{}{"slot": "10:00"})
	require.NoError(t, p.Publish(context.Background(), evt))

	assert.Equal(t, "kaga:appointment.created", fake.channel)

	var decoded Event
	require.NoError(t, json.Unmarshal(fake.message, &decoded))
	assert.Equal(t, evt.ID, decoded.ID)
	assert.Equal(t, "appt-1", decoded.AggregateID)
	assert.Equal(t, "10:00", decoded.Payload["slot"])
}

func TestRedisPublisher_Error(t *testing.T) {
	fake := &fakeRedis{err: errors.New("connection refused")}
	p := &RedisPublisher{client: fake, logger: zerolog.Nop()}

	err := p.Publish(context.Background(), New(BookingCreated, "b-1", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "booking.created")
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(zerolog.New(&buf))

	require.NoError(t, p.Publish(context.Background(), New(AppointmentReminder, "appt-9", nil)))
	assert.Contains(t, buf.String(), `"type":"appointment.reminder"`)
	assert.Contains(t, buf.String(), `"aggregate_id":"appt-9"`)
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, Event) error { return errors.New("broker down") }

func TestEmitter_SwallowsErrors(t *testing.T) {
	var buf bytes.Buffer
	em := NewEmitter(failingPublisher{}, zerolog.New(&buf))

	em.Emit(context.Background(), New(AppointmentStatusChanged, "appt-2", nil))
	assert.Contains(t, buf.String(), "broker down")

	var nilEmitter *Emitter
	nilEmitter.Emit(context.Background(), New(AppointmentCreated, "x", nil))
}

func TestMemoryPublisher_OfType(t *testing.T) {
	p := &MemoryPublisher{}
	ctx := context.Background()
	_ = p.Publish(ctx, New(AppointmentCreated, "a", nil))
	_ = p.Publish(ctx, New(BookingCreated, "b", nil))
	_ = p.Publish(ctx, New(AppointmentCreated, "c", nil))

	got := p.OfType(AppointmentCreated)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].AggregateID)
	assert.Equal(t, "c", got[1].AggregateID)
	assert.Len(t, p.Events(), 3)
}
