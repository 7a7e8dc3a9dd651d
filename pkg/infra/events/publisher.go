package events

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
)

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

type redisPublisher struct {
	client  *redis.Client
	channel Channel
}

func NewRedisPublisher(client *redis.Client, channel Channel) Publisher {
	return &redisPublisher{
		client:  client,
		channel: channel,
	}
}

func (p *redisPublisher) Publish(ctx context.Context, ev Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	envelope := RedisMessage{
		Type:  ev.Type(),
		Event: b,
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, string(p.channel), data).Err()
}
