package events

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisPublisher_PublishesEnvelope(t *testing.T) {
	db, mock := redismock.NewClientMock()
	publisher := NewRedisPublisher(db, ProfileChannel)

	ev := ProfileSwitchedEvent{ProfileName: "strict"}
	eventJSON, err := json.Marshal(ev)
	require.NoError(t, err)
	envelope, err := json.Marshal(RedisMessage{Type: ProfileSwitchedEventType, Event: eventJSON})
	require.NoError(t, err)

	mock.ExpectPublish(string(ProfileChannel), envelope).SetVal(1)

	require.NoError(t, publisher.Publish(context.Background(), ev))
	require.NoError(t, mock.ExpectationsWereMet())
}

type capturingSubscriber struct {
	mu     sync.Mutex
	events []ProfileSwitchedEvent
}

func (s *capturingSubscriber) OnEvent(_ context.Context, ev ProfileSwitchedEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *capturingSubscriber) all() []ProfileSwitchedEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ProfileSwitchedEvent, len(s.events))
	copy(out, s.events)
	return out
}

func newTestListener(t *testing.T) (*redisListener, *capturingSubscriber) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	listener := NewRedisListener(logger, nil, Registry)
	subscriber := &capturingSubscriber{}
	RegisterSubscriber[ProfileSwitchedEvent](listener, subscriber)

	concrete, ok := listener.(*redisListener)
	require.True(t, ok)
	return concrete, subscriber
}

func TestListener_DispatchesRegisteredEvent(t *testing.T) {
	listener, subscriber := newTestListener(t)

	listener.handleMessage(context.Background(), `{"type":"ProfileSwitchedEvent","event":{"profile_name":"strict"}}`)

	events := subscriber.all()
	require.Len(t, events, 1)
	assert.Equal(t, "strict", events[0].ProfileName)
}

func TestListener_IgnoresUnknownEventType(t *testing.T) {
	listener, subscriber := newTestListener(t)

	listener.handleMessage(context.Background(), `{"type":"SomethingElse","event":{}}`)

	assert.Empty(t, subscriber.all())
}

func TestListener_IgnoresMalformedPayload(t *testing.T) {
	listener, subscriber := newTestListener(t)

	listener.handleMessage(context.Background(), `not json at all`)

	assert.Empty(t, subscriber.all())
}

func TestPublisherListener_RoundTripPayload(t *testing.T) {
	db, mock := redismock.NewClientMock()
	publisher := NewRedisPublisher(db, ProfileChannel)

	ev := ProfileSwitchedEvent{ProfileName: "default"}
	eventJSON, err := json.Marshal(ev)
	require.NoError(t, err)
	envelope, err := json.Marshal(RedisMessage{Type: ev.Type(), Event: eventJSON})
	require.NoError(t, err)
	mock.ExpectPublish(string(ProfileChannel), envelope).SetVal(1)
	require.NoError(t, publisher.Publish(context.Background(), ev))

	listener, subscriber := newTestListener(t)
	listener.handleMessage(context.Background(), string(envelope))

	events := subscriber.all()
	require.Len(t, events, 1)
	assert.Equal(t, "default", events[0].ProfileName)
}
