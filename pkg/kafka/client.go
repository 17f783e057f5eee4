package kafka

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/wixandwax/storefront-backend/pkg/config"
	"github.com/wixandwax/storefront-backend/pkg/logger"
)

var ErrNoBrokers = errors.New("kafka brokers are required")

const dialTimeout = 5 * time.Second

// Client hands out one writer per topic. Messages keyed by aggregate id land
// on the same partition, so per-order ordering holds.
type Client struct {
	brokers []string

	mu      sync.Mutex
	writers map[string]*kafka.Writer
}

func NewClient(cfg config.KafkaConfig, logg *logger.Logger) (*Client, error) {
	brokers := cfg.BrokerList()
	if len(brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if logg != nil {
		logg.Info(logg.WithField(context.Background(), "brokers", brokers), "kafka client initialized")
	}
	return &Client{brokers: brokers, writers: map[string]*kafka.Writer{}}, nil
}

// Writer returns the cached writer for topic.
func (c *Client) Writer(topic string) *kafka.Writer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if w, ok := c.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(c.brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}
	c.writers[topic] = w
	return w
}

// Publish writes one message synchronously.
func (c *Client) Publish(ctx context.Context, topic, key string, value []byte, headers map[string]string) error {
	if c == nil {
		return errors.New("kafka client not initialized")
	}
	if topic == "" {
		return errors.New("kafka topic is required")
	}
	return c.Writer(topic).WriteMessages(ctx, NewMessage(key, value, headers))
}

// NewMessage builds a message with headers in a stable order.
func NewMessage(key string, value []byte, headers map[string]string) kafka.Message {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)
	hdrs := make([]kafka.Header, 0, len(names))
	for _, name := range names {
		hdrs = append(hdrs, kafka.Header{Key: name, Value: []byte(headers[name])})
	}
	return kafka.Message{
		Key:     []byte(key),
		Value:   value,
		Headers: hdrs,
		Time:    time.Now().UTC(),
	}
}

// Ping dials the first reachable broker.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil {
		return errors.New("kafka client not initialized")
	}
	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()
	var lastErr error
	for _, broker := range c.brokers {
		conn, err := kafka.DialContext(dialCtx, "tcp", broker)
		if err != nil {
			lastErr = err
			continue
		}
		return conn.Close()
	}
	return fmt.Errorf("no kafka broker reachable: %w", lastErr)
}

func (c *Client) Close() error {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var errs []error
	for topic, w := range c.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close writer %s: %w", topic, err))
		}
	}
	c.writers = map[string]*kafka.Writer{}
	return errors.Join(errs...)
}
