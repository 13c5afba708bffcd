package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog/log"
)

// MessageHandler processes one job request payload. A message that is not
// marked is redelivered after a rebalance or restart.
type MessageHandler interface {
	HandleMessage(ctx context.Context, message []byte) (shouldMark bool, err error)
}

type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	Handler MessageHandler
	// FromOldest replays requests queued before the group first joined.
	FromOldest bool
}

// Consumer feeds job requests from one topic into a MessageHandler.
type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	topic   string
	groupID string
	done    chan struct{}
	started bool
}

// NewConsumer joins the consumer group described by cfg.
func NewConsumer(cfg ConsumerConfig) (*Consumer, error) {
	sc := sarama.NewConfig()
	sc.Version = sarama.V3_6_0_0
	sc.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	sc.Consumer.Return.Errors = true
	sc.Consumer.Offsets.Initial = sarama.OffsetNewest
	if cfg.FromOldest {
		sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	}

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, sc)
	if err != nil {
		return nil, err
	}
	return &Consumer{
		group:   group,
		handler: cfg.Handler,
		topic:   cfg.Topic,
		groupID: cfg.GroupID,
		done:    make(chan struct{}),
	}, nil
}

// Start joins the group and returns once the first session is assigned.
// Messages keep flowing in the background until ctx ends or Close is called.
func (c *Consumer) Start(ctx context.Context) error {
	c.started = true
	claims := &claimHandler{handler: c.handler, assigned: make(chan struct{})}

	go c.logErrors()
	go func() {
		defer close(c.done)
		for {
			err := c.group.Consume(ctx, []string{c.topic}, claims)
			switch {
			case errors.Is(err, sarama.ErrClosedConsumerGroup), errors.Is(err, context.Canceled):
				return
			case err != nil:
				log.Error().Err(err).Str("topic", c.topic).Msg("kafka session ended")
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	select {
	case <-claims.assigned:
		log.Info().Str("group", c.groupID).Str("topic", c.topic).Msg("listening for job requests")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Consumer) logErrors() {
	for err := range c.group.Errors() {
		log.Error().Err(err).Str("topic", c.topic).Msg("kafka consumer error")
	}
}

func (c *Consumer) Close() error {
	err := c.group.Close()
	if c.started {
		<-c.done
	}
	log.Info().Str("group", c.groupID).Msg("kafka consumer closed")
	return err
}

type claimHandler struct {
	handler  MessageHandler
	assigned chan struct{}
	once     sync.Once
}

func (h *claimHandler) Setup(sarama.ConsumerGroupSession) error {
	h.once.Do(func() { close(h.assigned) })
	return nil
}

func (h *claimHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

// ConsumeClaim handles one message at a time so a partition never runs two
// jobs concurrently.
func (h *claimHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	ctx := session.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			logger := log.With().
				Str("topic", msg.Topic).
				Int32("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Logger()
			logger.Debug().Str("key", string(msg.Key)).Msg("job request received")

			mark, err := h.handler.HandleMessage(ctx, msg.Value)
			if err != nil {
				logger.Error().Err(err).Bool("marked", mark).Msg("job request failed")
			}
			if mark {
				session.MarkMessage(msg, "")
			}
		}
	}
}

// TypedMessageHandler decodes a JSON payload into T and hands it to Process.
type TypedMessageHandler[T any] struct {
	Validate func(msg *T) bool
	Process  func(ctx context.Context, msg *T) error
	// AlwaysMark skips payloads that fail to decode or validate instead of
	// leaving them for redelivery.
	AlwaysMark bool
}

func (h *TypedMessageHandler[T]) HandleMessage(ctx context.Context, message []byte) (bool, error) {
	var msg T
	if err := json.Unmarshal(message, &msg); err != nil {
		log.Warn().Err(err).Int("bytes", len(message)).Msg("undecodable job request")
		return h.AlwaysMark, nil
	}
	if h.Validate != nil && !h.Validate(&msg) {
		return h.AlwaysMark, nil
	}
	if err := h.Process(ctx, &msg); err != nil {
		return false, err
	}
	return true, nil
}
