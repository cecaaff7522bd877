package queue

import (
	"context"
	"encoding/json"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/relistco/relist-server/internal/usecase"
)

// NotifierInterface is what the worker needs to tell a seller their listing
// went in for review.
type NotifierInterface interface {
	SendListingSubmitted(to, name, designer, itemType, price string) error
}

// WhatsAppNotifierInterface mirrors NotifierInterface for the phone channel.
type WhatsAppNotifierInterface interface {
	SendListingSubmitted(phone, name, designer string) error
}

// Worker consumes listing.submitted events and fans out the confirmation
// email and WhatsApp message, out of the webhook's latency path.
type Worker struct {
	Channel  *amqp.Channel
	Email    NotifierInterface
	WhatsApp WhatsAppNotifierInterface
}

func NewWorker(ch *amqp.Channel, email NotifierInterface, whatsapp WhatsAppNotifierInterface) *Worker {
	return &Worker{
		Channel:  ch,
		Email:    email,
		WhatsApp: whatsapp,
	}
}

func (w *Worker) Start(queueName string) {
	msgs, err := w.Channel.Consume(
		queueName,
		"",    // consumer
		false, // auto-ack (manual is safer)
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		log.Fatalf("RabbitMQ consumer registration failed: %s", err)
	}

	forever := make(chan bool)

	go func() {
		for d := range msgs {
			var event usecase.ListingSubmittedEvent
			if err := json.Unmarshal(d.Body, &event); err != nil {
				log.Printf("[WORKER] bad event JSON: %s", err)
				// Poison message; reject without requeue so the queue keeps
				// moving and the DLQ keeps the evidence.
				d.Nack(false, false)
				continue
			}

			log.Printf("[WORKER] notifying %s about listing %s", event.SellerEmail, event.CatalogID)

			if err := w.process(context.Background(), event); err != nil {
				log.Printf("[WORKER] notification failed: %s", err)
				d.Nack(false, false)
			} else {
				d.Ack(false)
			}
		}
	}()

	log.Printf("[*] notification worker waiting on '%s'", queueName)
	<-forever
}

func (w *Worker) process(ctx context.Context, event usecase.ListingSubmittedEvent) error {
	if w.Email != nil {
		if err := w.Email.SendListingSubmitted(
			event.SellerEmail, event.SellerName, event.Designer, event.ItemType, event.Price,
		); err != nil {
			return err
		}
	}

	if w.WhatsApp != nil && event.SellerPhone != "" {
		if err := w.WhatsApp.SendListingSubmitted(event.SellerPhone, event.SellerName, event.Designer); err != nil {
			// Email already went out; don't fail the whole event over the
			// secondary channel.
			log.Printf("[WORKER] whatsapp notify failed for %s: %v", event.SellerPhone, err)
		}
	}

	return nil
}
