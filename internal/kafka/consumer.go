package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/rzzdr/swap-aad-risk/pkg/utils/errors"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/logger"
)

// MessageReader is the part of *kafka.Reader the consumer needs
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageHandler processes one message
type MessageHandler func(ctx context.Context, msg kafka.Message) error

// Consumer fetches messages one at a time and commits each once it is handled
type Consumer struct {
	reader   MessageReader
	topic    string
	recorder MessageRecorder
	log      *logger.Logger
}

// NewConsumer creates a consumer. recorder may be nil.
func NewConsumer(reader MessageReader, topic string, recorder MessageRecorder) *Consumer {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Consumer{
		reader:   reader,
		topic:    topic,
		recorder: recorder,
		log:      logger.GetLogger("kafka.consumer"),
	}
}

// Run consumes until ctx is cancelled. A message whose handler fails is
// logged and committed, except when the failure is Unavailable: then Run
// stops without committing so the message is redelivered after a restart.
func (c *Consumer) Run(ctx context.Context, handler MessageHandler) error {
	c.log.Infof("Starting consumer for topic: %s", c.topic)
	defer c.log.Infof("Stopped consumer for topic: %s", c.topic)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Errorf("Failed to fetch message from %s: %v", c.topic, err)
			return errors.Unavailable("fetch from "+c.topic, err)
		}

		if err := handler(ctx, msg); err != nil {
			if errors.TypeOf(err) == errors.ErrorTypeUnavailable {
				c.recorder.RecordKafkaMessage(c.topic, "retry")
				return err
			}
			c.recorder.RecordKafkaMessage(c.topic, "failed")
			c.log.Warnf("Dropping message at offset %d of %s: %v", msg.Offset, c.topic, err)
		} else {
			c.recorder.RecordKafkaMessage(c.topic, "consumed")
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Unavailable("commit to "+c.topic, err)
		}
	}
}

// Close closes the reader
func (c *Consumer) Close() error {
	return c.reader.Close()
}
