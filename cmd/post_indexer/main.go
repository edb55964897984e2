package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/inkwell/config"
	"github.com/oksasatya/inkwell/internal/domain/entity"
	esinfra "github.com/oksasatya/inkwell/internal/infrastructure/elasticsearch"
	"github.com/oksasatya/inkwell/pkg/events"
	"github.com/oksasatya/inkwell/pkg/helpers"
)

// errPoison marks a message that can never be applied; it is dropped, not requeued.
var errPoison = errors.New("unprocessable post event")

type indexer interface {
	Upsert(ctx context.Context, p *entity.Post) error
	Delete(ctx context.Context, id int64, at time.Time) error
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-indexer", cfg.Env, cfg.LogLevel)

	if !cfg.SearchEnabled {
		logger.Info("SEARCH_ENABLED=false; post indexer disabled")
		return
	}
	if cfg.RabbitMQURL == "" || cfg.RabbitMQPostQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}

	es, err := esinfra.NewClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		log.Fatalf("elasticsearch client: %v", err)
	}
	index := esinfra.NewPostIndex(es, cfg.ESPostsIndex)
	if err := index.EnsureIndex(context.Background()); err != nil {
		log.Fatalf("ensure index: %v", err)
	}

	consumer, err := helpers.NewRabbitConsumer(cfg.RabbitMQURL, cfg.RabbitMQPostQueue, 16)
	if err != nil {
		log.Fatalf("amqp consumer: %v", err)
	}
	defer consumer.Close()

	msgs, err := consumer.Deliveries(cfg.AppName + "-indexer")
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for msg := range msgs {
			handleDelivery(context.Background(), logger, index, msg)
		}
		close(done)
	}()

	logger.WithField("queue", cfg.RabbitMQPostQueue).Info("post indexer listening")
	<-stop
	logger.Info("shutting down")
	// closing the connection ends the delivery channel
	consumer.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}

func handleDelivery(ctx context.Context, logger *logrus.Logger, idx indexer, msg amqp.Delivery) {
	c, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	err := apply(c, idx, msg.Type, msg.Body)
	fields := logrus.Fields{"type": msg.Type, "message_id": msg.MessageId}
	switch {
	case err == nil:
		_ = msg.Ack(false)
	case errors.Is(err, errPoison):
		helpers.LogError(logger, "dropping post event", err, fields)
		_ = msg.Nack(false, false)
	default:
		helpers.LogError(logger, "index update failed, requeueing", err, fields)
		_ = msg.Nack(false, true)
	}
}

// apply projects one event into the index. The body's type wins over the
// AMQP type header, which older publishers may leave empty.
func apply(ctx context.Context, idx indexer, msgType string, body []byte) error {
	var ev events.PostEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return errors.Join(errPoison, err)
	}
	if ev.Type == "" {
		ev.Type = msgType
	}
	if ev.PostID <= 0 {
		return errors.Join(errPoison, errors.New("missing post id"))
	}
	switch ev.Type {
	case events.PostUpserted:
		return idx.Upsert(ctx, &entity.Post{
			ID:         ev.PostID,
			Title:      ev.Title,
			Content:    ev.Content,
			OwnerID:    ev.OwnerID,
			OwnerEmail: ev.OwnerEmail,
			CreatedAt:  ev.CreatedAt,
			UpdatedAt:  ev.OccurredAt,
		})
	case events.PostDeleted:
		return idx.Delete(ctx, ev.PostID, ev.OccurredAt)
	default:
		return errors.Join(errPoison, errors.New("unknown event type "+ev.Type))
	}
}
