package kafka

import (
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	log "github.com/sirupsen/logrus"
)

const clientID = "restaurant-api"

// headerEventType — заголовок сообщения с типом события.
const headerEventType = "event_type"

// Producer публикует события позиций в один topic.
type Producer struct {
	sync   sarama.SyncProducer
	topic  string
	logger *log.Entry
}

// NewProducer подключается к brokers. Пустой topic заменяется на TopicItemEvents.
func NewProducer(brokers []string, topic string, logger *log.Entry) (*Producer, error) {
	syncProducer, err := sarama.NewSyncProducer(brokers, producerConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return newProducer(syncProducer, topic, logger), nil
}

func newProducer(syncProducer sarama.SyncProducer, topic string, logger *log.Entry) *Producer {
	if topic == "" {
		topic = TopicItemEvents
	}
	if logger == nil {
		logger = log.WithField("component", "kafka-producer")
	}
	return &Producer{sync: syncProducer, topic: topic, logger: logger}
}

// producerConfig: подтверждение от всех реплик, идемпотентная отправка.
func producerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.ClientID = clientID
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	config.Producer.Return.Successes = true
	config.Producer.Compression = sarama.CompressionSnappy
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1
	return config
}

// PublishItemEvent отправляет событие и ждёт подтверждения брокера.
func (p *Producer) PublishItemEvent(event *ItemEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.EventType, err)
	}

	fields := log.Fields{
		"topic":      p.topic,
		"key":        event.Key(),
		"event_type": event.EventType,
	}
	partition, offset, err := p.sync.SendMessage(&sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(event.Key()),
		Value:     sarama.ByteEncoder(payload),
		Timestamp: event.Timestamp,
		Headers: []sarama.RecordHeader{
			{Key: []byte(headerEventType), Value: []byte(event.EventType)},
		},
	})
	if err != nil {
		p.logger.WithError(err).WithFields(fields).Error("item event was not delivered")
		return fmt.Errorf("send %s event: %w", event.EventType, err)
	}

	fields["partition"] = partition
	fields["offset"] = offset
	p.logger.WithFields(fields).Debug("item event delivered")
	return nil
}

// Close дожидается отправки буферизованных сообщений и закрывает соединения.
func (p *Producer) Close() error {
	if err := p.sync.Close(); err != nil {
		return fmt.Errorf("close kafka producer: %w", err)
	}
	return nil
}
