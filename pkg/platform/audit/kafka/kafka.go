// Package kafka ships audit events to a Kafka-compatible broker.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "safeballot/pkg/platform/audit"
)

const DefaultTopic = "safeballot.audit"

// Store implements audit.Store by producing one JSON record per event,
// keyed by profile ID so a profile's events stay ordered in one partition.
type Store struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

type Option func(*options)

type options struct {
	logger *slog.Logger
	linger time.Duration
}

func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithLinger(d time.Duration) Option {
	return func(o *options) {
		o.linger = d
	}
}

func New(brokers []string, topic string, opts ...Option) (*Store, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	o := options{logger: slog.Default(), linger: 5 * time.Millisecond}
	for _, opt := range opts {
		opt(&o)
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(o.linger),
		kgo.RequiredAcks(kgo.AllISRAcks()),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return &Store{client: client, topic: topic, logger: o.logger}, nil
}

// EnsureTopic creates the audit topic if it does not exist yet.
func (s *Store) EnsureTopic(ctx context.Context, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(s.client)
	resp, err := adm.CreateTopics(ctx, partitions, replicationFactor, nil, s.topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", s.topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", r.Topic, r.Err)
		}
	}
	return nil
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	record := &kgo.Record{
		Topic: s.topic,
		Key:   []byte(event.ProfileID),
		Value: value,
	}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		s.logger.WarnContext(ctx, "failed to produce audit event",
			"action", event.Action,
			"request_id", event.RequestID,
			"error", err,
		)
		return fmt.Errorf("produce audit event: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

func (s *Store) Close() {
	s.client.Close()
}
