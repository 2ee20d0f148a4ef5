package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"plaza_backoffice/internal/config"
	"plaza_backoffice/internal/service"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// PaymentNotification is the message shape pushed by external payment
// terminals and kiosks onto the notification queue.
type PaymentNotification struct {
	Plate     string `json:"plate"`
	SpaceID   int    `json:"space_id"`
	StartTime string `json:"start_time"`
	Fee       int64  `json:"fee"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
}

// SQSConsumer drains payment notifications from SQS and settles them
// against the payment ledger. Messages that fail processing are left on the
// queue and retried after the visibility timeout.
type SQSConsumer struct {
	sqsClient      *sqs.Client
	queueURL       string
	paymentService *service.PaymentService
}

func NewSQSConsumer(client *sqs.Client, cfg *config.Config, paymentService *service.PaymentService) *SQSConsumer {
	return &SQSConsumer{
		sqsClient:      client,
		queueURL:       cfg.PaymentQueueURL,
		paymentService: paymentService,
	}
}

func (c *SQSConsumer) Start(ctx context.Context) {
	log.Printf("SQS Consumer: listening on queue %s", c.queueURL)
	for {
		select {
		case <-ctx.Done():
			log.Println("SQS Consumer: context cancelled, stopping.")
			return
		default:
			receiveInput := &sqs.ReceiveMessageInput{
				QueueUrl:            &c.queueURL,
				MaxNumberOfMessages: 10,
				WaitTimeSeconds:     20,
				VisibilityTimeout:   60,
			}

			result, err := c.sqsClient.ReceiveMessage(ctx, receiveInput)
			if err != nil {
				log.Printf("SQS Consumer: receive failed: %v", err)
				select {
				case <-time.After(5 * time.Second):
				case <-ctx.Done():
					log.Println("SQS Consumer: context cancelled while waiting for retry.")
					return
				}
				continue
			}

			if len(result.Messages) == 0 {
				continue
			}

			for _, message := range result.Messages {
				if message.Body == nil {
					log.Println("SQS Consumer: message with empty body, deleting.")
					c.deleteMessage(ctx, message.ReceiptHandle)
					continue
				}

				if err := c.handleNotification(ctx, *message.Body); err != nil {
					log.Printf("SQS Consumer: processing message ID %s failed: %v. It will be retried after the visibility timeout.", *message.MessageId, err)
					continue
				}
				c.deleteMessage(ctx, message.ReceiptHandle)
			}
		}
	}
}

func (c *SQSConsumer) handleNotification(ctx context.Context, body string) error {
	var notif PaymentNotification
	if err := json.Unmarshal([]byte(body), &notif); err != nil {
		return fmt.Errorf("unmarshalling payment notification: %w", err)
	}
	if notif.Plate == "" || notif.SpaceID == 0 {
		return fmt.Errorf("payment notification missing plate or space_id")
	}

	start, err := time.Parse(time.RFC3339, notif.StartTime)
	if err != nil {
		return fmt.Errorf("invalid start_time %q: %w", notif.StartTime, err)
	}

	rec, err := c.paymentService.Pay(ctx, notif.Plate, notif.SpaceID, start, notif.Fee, notif.Method, notif.Reference)
	if err != nil {
		return fmt.Errorf("settling payment for plate %s: %w", notif.Plate, err)
	}
	log.Printf("SQS Consumer: settled payment for key '%s' (fee %d)", rec.SessionKey, rec.Fee)
	return nil
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		log.Println("SQS Consumer: empty receipt handle, cannot delete message.")
		return
	}
	_, delErr := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &c.queueURL,
		ReceiptHandle: receiptHandle,
	})
	if delErr != nil {
		log.Printf("SQS Consumer: delete failed: %v", delErr)
	}
}
