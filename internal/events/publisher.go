package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aman-zulfiqar/redz-ledger/internal/constants"
	"github.com/aman-zulfiqar/redz-ledger/internal/models"
	"github.com/cenkalti/backoff/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Publisher fans ledger events out over Redis Pub/Sub and keeps a capped list
// of the most recent ones.
type Publisher struct {
	client redis.UniversalClient
	logger *logrus.Logger
	tries  uint
}

func NewPublisher(client redis.UniversalClient, logger *logrus.Logger) (*Publisher, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Publisher{client: client, logger: logger, tries: 3}, nil
}

// Channels lists every channel an event is published on.
func Channels(ev *models.LedgerEvent) []string {
	channels := []string{
		constants.ChannelAllEvents,
		constants.ChannelInstructionPrefix + ev.Instruction,
	}
	if ev.Subject != "" {
		channels = append(channels, constants.ChannelAccountPrefix+ev.Subject)
	}
	return channels
}

func (p *Publisher) Publish(ctx context.Context, events []models.LedgerEvent) error {
	if len(events) == 0 {
		return nil
	}

	payloads := make([][]byte, len(events))
	for i := range events {
		data, err := json.Marshal(&events[i])
		if err != nil {
			return err
		}
		payloads[i] = data
	}

	ctx, cancel := context.WithTimeout(ctx, constants.EventPublishTimeout)
	defer cancel()

	op := func() (struct{}, error) {
		pipe := p.client.Pipeline()
		for i := range events {
			for _, channel := range Channels(&events[i]) {
				pipe.Publish(ctx, channel, payloads[i])
			}
			pipe.LPush(ctx, constants.RedisKeyRecentEvents, payloads[i])
		}
		pipe.LTrim(ctx, constants.RedisKeyRecentEvents, 0, constants.MaxRecentEvents-1)
		_, err := pipe.Exec(ctx)
		return struct{}{}, err
	}
	notify := func(err error, d time.Duration) {
		p.logger.WithError(err).WithField("backoff", d).Warn("retrying event publish")
	}

	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(p.tries),
		backoff.WithNotify(notify))
	if err != nil {
		return fmt.Errorf("publish events: %w", err)
	}
	return nil
}

// Recent returns up to n of the latest events, newest first.
func (p *Publisher) Recent(ctx context.Context, n int64) ([]models.LedgerEvent, error) {
	if n <= 0 || n > constants.MaxRecentEvents {
		n = constants.MaxRecentEvents
	}
	vals, err := p.client.LRange(ctx, constants.RedisKeyRecentEvents, 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.LedgerEvent, 0, len(vals))
	for _, v := range vals {
		var ev models.LedgerEvent
		if err := json.Unmarshal([]byte(v), &ev); err != nil {
			p.logger.WithError(err).Warn("skipping malformed recent event")
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

// Subscribe delivers events from one channel until ctx is cancelled.
func (p *Publisher) Subscribe(ctx context.Context, channel string, handler func(*models.LedgerEvent)) error {
	return p.consume(ctx, p.client.Subscribe(ctx, channel), channel, handler)
}

// PSubscribe is Subscribe for a channel pattern such as "ledger:ix:*".
func (p *Publisher) PSubscribe(ctx context.Context, pattern string, handler func(*models.LedgerEvent)) error {
	return p.consume(ctx, p.client.PSubscribe(ctx, pattern), pattern, handler)
}

func (p *Publisher) consume(ctx context.Context, pubsub *redis.PubSub, name string, handler func(*models.LedgerEvent)) error {
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", name, err)
	}
	p.logger.WithField("channel", name).Info("subscribed")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var ev models.LedgerEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				p.logger.WithError(err).WithField("channel", msg.Channel).Warn("malformed event")
				continue
			}
			handler(&ev)
		}
	}
}
