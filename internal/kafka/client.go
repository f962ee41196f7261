package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rzzdr/swap-aad-risk/pkg/utils/logger"
)

// Config contains connection settings shared by readers and writers
type Config struct {
	Brokers        []string
	ClientID       string
	GroupID        string
	StartOffset    string // "earliest" or "latest"
	MinBytes       int
	MaxBytes       int
	CommitInterval time.Duration
	BatchTimeout   time.Duration
	DialTimeout    time.Duration
	RequiredAcks   int // -1 all, 0 none, 1 leader
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Brokers:        []string{"localhost:9092"},
		ClientID:       "swaprisk",
		GroupID:        "swaprisk-engine",
		StartOffset:    "earliest",
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // commit synchronously after each handled message
		BatchTimeout:   10 * time.Millisecond,
		DialTimeout:    10 * time.Second,
		RequiredAcks:   -1,
	}
}

// Client builds kafka-go readers and writers from one Config
type Client struct {
	config *Config
	log    *logger.Logger
}

// NewClient creates a new Kafka client
func NewClient(config *Config) (*Client, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker is required")
	}

	return &Client{
		config: config,
		log:    logger.GetLogger("kafka.client"),
	}, nil
}

func (c *Client) dialer() *kafka.Dialer {
	return &kafka.Dialer{
		ClientID:  c.config.ClientID,
		Timeout:   c.config.DialTimeout,
		DualStack: true,
	}
}

// NewReader creates a consumer-group reader for topic
func (c *Client) NewReader(topic string) *kafka.Reader {
	startOffset := kafka.FirstOffset
	if c.config.StartOffset == "latest" {
		startOffset = kafka.LastOffset
	}

	c.log.Infof("Creating reader for topic %s (group %s)", topic, c.config.GroupID)
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        c.config.Brokers,
		GroupID:        c.config.GroupID,
		Topic:          topic,
		Dialer:         c.dialer(),
		MinBytes:       c.config.MinBytes,
		MaxBytes:       c.config.MaxBytes,
		CommitInterval: c.config.CommitInterval,
		StartOffset:    startOffset,
	})
}

// NewWriter creates a writer for topic. Messages with the same key land on
// the same partition, so results for one swap stay ordered.
func (c *Client) NewWriter(topic string) *kafka.Writer {
	c.log.Infof("Creating writer for topic %s", topic)
	return &kafka.Writer{
		Addr:         kafka.TCP(c.config.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: c.config.BatchTimeout,
		RequiredAcks: kafka.RequiredAcks(c.config.RequiredAcks),
		Transport: &kafka.Transport{
			ClientID:    c.config.ClientID,
			DialTimeout: c.config.DialTimeout,
		},
	}
}

// CreateTopic creates topic on the cluster controller. An existing topic is not an error.
func (c *Client) CreateTopic(ctx context.Context, topic string, partitions, replicationFactor int) error {
	conn, err := c.dialer().DialContext(ctx, "tcp", c.config.Brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial broker: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to find controller: %w", err)
	}

	addr := net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port))
	ctrlConn, err := c.dialer().DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to dial controller %s: %w", addr, err)
	}
	defer ctrlConn.Close()

	err = ctrlConn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: replicationFactor,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("failed to create topic %s: %w", topic, err)
	}

	c.log.Infof("Topic %s ready (%d partitions)", topic, partitions)
	return nil
}
