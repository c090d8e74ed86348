package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant/internal/messaging/kafka"
)

// eventPublisher — публикатор событий, которым владеет приложение.
type eventPublisher interface {
	PublishItemEvent(event *kafka.ItemEvent) error
	Close() error
}

// initEventPublisher подключает Kafka producer. Без брокеров или при
// недоступной Kafka события позиций отключаются, сервис продолжает работу.
func initEventPublisher(cfg Config, logger *log.Entry) eventPublisher {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Debug("kafka brokers are not configured, item events disabled")
		return kafka.NoopPublisher{}
	}

	producer, err := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger.WithField("component", "kafka-producer"))
	if err != nil {
		logger.WithError(err).Warn("kafka is unavailable, item events disabled")
		return kafka.NoopPublisher{}
	}

	logger.WithFields(log.Fields{
		"brokers": cfg.KafkaBrokers,
		"topic":   cfg.KafkaTopic,
	}).Info("item events are published to kafka")
	return producer
}

// closeKafka закрывает publisher если он не nil.
func closeKafka(publisher eventPublisher, logger *log.Entry) {
	if publisher == nil {
		return
	}

	if err := publisher.Close(); err != nil {
		logger.WithError(err).Warn("failed to close kafka producer")
	} else {
		logger.Debug("event publisher closed")
	}
}
