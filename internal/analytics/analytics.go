// Package analytics publishes completed rounds to Kafka for whatever
// wants them downstream. Publishing is fire and forget: a broker
// outage costs events, never gameplay.
package analytics

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/charmbracelet/log"

	"github.com/trickwire/twentyeight/internal/game"
)

// RoundEvent is the wire shape of one published round.
type RoundEvent struct {
	SessionID string           `json:"session_id"`
	Round     game.RoundRecord `json:"round"`
}

// Kafka publishes round events through an async producer. Input never
// blocks the caller; when the producer backs up the event drops and a
// warning says so.
type Kafka struct {
	producer sarama.AsyncProducer
	topic    string
	logger   *log.Logger
	wg       sync.WaitGroup
}

// NewKafka connects to the brokers and starts the error drain.
func NewKafka(brokers []string, topic string, logger *log.Logger) (*Kafka, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Flush.Frequency = 500 * time.Millisecond
	config.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to start kafka producer: %w", err)
	}
	return newKafka(producer, topic, logger), nil
}

func newKafka(producer sarama.AsyncProducer, topic string, logger *log.Logger) *Kafka {
	k := &Kafka{
		producer: producer,
		topic:    topic,
		logger:   logger.WithPrefix("analytics"),
	}
	k.wg.Add(1)
	go k.drainErrors()
	return k
}

func (k *Kafka) drainErrors() {
	defer k.wg.Done()
	for err := range k.producer.Errors() {
		k.logger.Warn("round publish failed", "error", err)
	}
}

// PublishRound queues one round event. Events key on the session ID so
// a session's rounds land on one partition in order.
func (k *Kafka) PublishRound(sessionID string, rec game.RoundRecord) {
	payload, err := json.Marshal(RoundEvent{SessionID: sessionID, Round: rec})
	if err != nil {
		k.logger.Error("failed to encode round event", "session", sessionID, "error", err)
		return
	}
	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(sessionID),
		Value: sarama.ByteEncoder(payload),
	}
	select {
	case k.producer.Input() <- msg:
	default:
		k.logger.Warn("dropping round event, producer backed up", "session", sessionID)
	}
}

// Close flushes in-flight events and waits for the error drain.
func (k *Kafka) Close() error {
	k.producer.AsyncClose()
	k.wg.Wait()
	return nil
}

// Noop discards events. Used when analytics is disabled.
type Noop struct{}

func (Noop) PublishRound(string, game.RoundRecord) {}

func (Noop) Close() error { return nil }
