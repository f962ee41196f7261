package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/rzzdr/swap-aad-risk/pkg/utils/circuit"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/errors"
	"github.com/rzzdr/swap-aad-risk/pkg/utils/logger"
)

// MessageWriter is the part of *kafka.Writer the producer needs
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// MessageRecorder counts handled messages
type MessageRecorder interface {
	RecordKafkaMessage(topic, outcome string)
}

// Producer encodes values and writes them to one topic behind a circuit breaker
type Producer struct {
	writer   MessageWriter
	topic    string
	codec    Codec
	breaker  *circuit.Breaker
	recorder MessageRecorder
	log      *logger.Logger
}

// NewProducer creates a producer. breaker and recorder may be nil.
func NewProducer(writer MessageWriter, topic string, codec Codec, breaker *circuit.Breaker, recorder MessageRecorder) *Producer {
	if codec == nil {
		codec = JSONCodec{}
	}
	if breaker == nil {
		breaker = circuit.New("kafka."+topic, circuit.DefaultConfig())
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Producer{
		writer:   writer,
		topic:    topic,
		codec:    codec,
		breaker:  breaker,
		recorder: recorder,
		log:      logger.GetLogger("kafka.producer"),
	}
}

// Publish encodes v and writes it keyed by key
func (p *Producer) Publish(ctx context.Context, key string, v interface{}) error {
	payload, err := p.codec.Marshal(v)
	if err != nil {
		p.recorder.RecordKafkaMessage(p.topic, "encode_error")
		return errors.Wrapf(err, "encode message for %s", p.topic)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: HeaderContentType, Value: []byte(p.codec.ContentType())},
		},
	}

	err = p.breaker.Execute(ctx, func(ctx context.Context) error {
		return p.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		p.recorder.RecordKafkaMessage(p.topic, "publish_error")
		p.log.Errorf("Failed to publish message %s to %s: %v", key, p.topic, err)
		return errors.Unavailable("publish to "+p.topic, err)
	}

	p.recorder.RecordKafkaMessage(p.topic, "published")
	return nil
}

// Close flushes and closes the writer
func (p *Producer) Close() error {
	return p.writer.Close()
}

type nopRecorder struct{}

func (nopRecorder) RecordKafkaMessage(string, string) {}
