package rabbit

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Rabbit is the event bus. Publish is best-effort from the caller's point of
// view: a failure must be logged by the caller, never rolled back. Subscribe
// binds a named consumer group (a durable queue) to one or more topics.
type Rabbit interface {
	Publish(ctx context.Context, topic string, body []byte) error
	Subscribe(ctx context.Context, group string, topics []string, handle func(ctx context.Context, msg amqp.Delivery) error) error
}

type Config struct {
	Address        string
	Port           int32
	Username       string
	Password       string
	Exchange       string
	MaxConsumer    int32
	ConnectRetries int32
	RetryBackoff   time.Duration
}

type rabbit struct {
	conn        *amqp.Connection
	exchange    string
	maxConsumer int32
	logger      *zap.Logger
}

func ReadConfig() *Config {
	if !viper.GetBool("rabbitmq.enabled") {
		return nil
	}
	return &Config{
		Address:        viper.GetString("rabbitmq.address"),
		Port:           viper.GetInt32("rabbitmq.port"),
		Username:       viper.GetString("rabbitmq.username"),
		Password:       viper.GetString("rabbitmq.password"),
		Exchange:       viper.GetString("rabbitmq.exchange"),
		MaxConsumer:    viper.GetInt32("rabbitmq.max_consumer"),
		ConnectRetries: viper.GetInt32("rabbitmq.connect_retries"),
		RetryBackoff:   viper.GetDuration("rabbitmq.retry_backoff"),
	}
}

// New dials the broker with a bounded number of fixed-backoff attempts. When
// the broker stays unreachable the service keeps running without the bus: the
// returned implementation is a no-op Dummy.
func New(cfg *Config, logger *zap.Logger) Rabbit {
	if cfg == nil {
		return &Dummy{}
	}

	if cfg.Exchange == "" {
		cfg.Exchange = "events"
	}
	if cfg.MaxConsumer <= 0 {
		cfg.MaxConsumer = 8
	}
	if cfg.ConnectRetries <= 0 {
		cfg.ConnectRetries = 5
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 3 * time.Second
	}

	url := fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.Username, cfg.Password, cfg.Address, cfg.Port)

	var conn *amqp.Connection
	var err error
	for attempt := int32(1); attempt <= cfg.ConnectRetries; attempt++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			break
		}
		logger.Warn("Failed to connect to RabbitMQ, retrying",
			zap.Int32("attempt", attempt),
			zap.Int32("maxAttempts", cfg.ConnectRetries),
			zap.Error(err))
		time.Sleep(cfg.RetryBackoff)
	}
	if err != nil {
		logger.Error("RabbitMQ unreachable, event bus disabled", zap.Error(err))
		return &Dummy{}
	}

	logger.Info("Connected to RabbitMQ", zap.String("exchange", cfg.Exchange))
	return &rabbit{
		conn:        conn,
		exchange:    cfg.Exchange,
		maxConsumer: cfg.MaxConsumer,
		logger:      logger,
	}
}

func (r *rabbit) declareExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(r.exchange, "topic", true, false, false, false, nil)
}

func (r *rabbit) Publish(ctx context.Context, topic string, body []byte) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := r.declareExchange(ch); err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, r.exchange, topic, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
	if err != nil {
		return err
	}

	r.logger.Debug("Published event", zap.String("topic", topic))
	return nil
}

func (r *rabbit) processMessage(ctx context.Context, msg amqp.Delivery, sem chan struct{}, handle func(ctx context.Context, msg amqp.Delivery) error) {
	defer func() { <-sem }()

	if err := handle(ctx, msg); err != nil {
		r.logger.Error("Consumer handler failed",
			zap.String("routingKey", msg.RoutingKey),
			zap.Error(err))
		msg.Nack(false, true)
	} else {
		msg.Ack(false)
	}
}

// Subscribe blocks draining deliveries for the group until the channel closes
// or ctx is done. Each group gets the event once; groups are independent.
func (r *rabbit) Subscribe(ctx context.Context, group string, topics []string, handle func(ctx context.Context, msg amqp.Delivery) error) error {
	ch, err := r.conn.Channel()
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := r.declareExchange(ch); err != nil {
		return err
	}

	q, err := ch.QueueDeclare(group, true, false, false, false, nil)
	if err != nil {
		return err
	}
	for _, topic := range topics {
		if err := ch.QueueBind(q.Name, topic, r.exchange, false, nil); err != nil {
			return err
		}
	}

	msgs, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	r.logger.Info("Consumer group subscribed",
		zap.String("group", group),
		zap.Strings("topics", topics))

	sem := make(chan struct{}, r.maxConsumer)
	for {
		select {
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			sem <- struct{}{}
			go r.processMessage(ctx, msg, sem, handle)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
