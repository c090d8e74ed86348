package kafka

// NoopPublisher используется, когда брокеры не настроены.
type NoopPublisher struct{}

func (NoopPublisher) PublishItemEvent(*ItemEvent) error { return nil }

func (NoopPublisher) Close() error { return nil }
